package exiftool

import (
	"context"
	"strings"
	"sync"

	"github.com/retakehq/retake/pkg/metadata"
)

// Fake is an in-memory Client for tests. Reads serve the seeded tag
// maps; writes are recorded and folded back into the tag maps the way
// exiftool would surface them on the next read, so multi-pass tests see
// their own writes.
type Fake struct {
	mu sync.Mutex

	// Files maps path to the tags ReadTags returns.
	Files map[string]metadata.Tags

	// ReadErr and WriteErr force failures per path.
	ReadErr  map[string]error
	WriteErr map[string]error

	// Written records every WriteTags call per path, in order.
	Written map[string][][]metadata.Tag

	// Reads counts ReadTags calls per path.
	Reads map[string]int

	closed bool
}

// NewFake returns a Fake seeded with the given tag maps.
func NewFake(files map[string]metadata.Tags) *Fake {
	if files == nil {
		files = make(map[string]metadata.Tags)
	}
	return &Fake{
		Files:    files,
		ReadErr:  make(map[string]error),
		WriteErr: make(map[string]error),
		Written:  make(map[string][][]metadata.Tag),
		Reads:    make(map[string]int),
	}
}

// ReadTags returns a copy of the seeded tags for path.
func (f *Fake) ReadTags(_ context.Context, path string) (metadata.Tags, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Reads[path]++
	if err := f.ReadErr[path]; err != nil {
		return nil, err
	}

	tags := make(metadata.Tags, len(f.Files[path]))
	for k, v := range f.Files[path] {
		tags[k] = v
	}
	return tags, nil
}

// WriteTags records the write and applies it to the in-memory tags.
// Group prefixes are stripped and repeated names become lists, matching
// how a subsequent exiftool read reports the values.
func (f *Fake) WriteTags(_ context.Context, path string, tags []metadata.Tag) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.WriteErr[path]; err != nil {
		return err
	}

	recorded := make([]metadata.Tag, len(tags))
	copy(recorded, tags)
	f.Written[path] = append(f.Written[path], recorded)

	current := f.Files[path]
	if current == nil {
		current = make(metadata.Tags)
		f.Files[path] = current
	}
	for name, values := range groupValues(tags) {
		readName := name
		if i := strings.LastIndex(readName, ":"); i >= 0 {
			readName = readName[i+1:]
		}
		if len(values) == 1 {
			current[readName] = values[0]
		} else {
			list := make([]any, len(values))
			for i, v := range values {
				list[i] = v
			}
			current[readName] = list
		}
	}
	return nil
}

// Close marks the fake closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// WriteCount returns how many WriteTags calls path received.
func (f *Fake) WriteCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Written[path])
}

// ReadCount returns how many ReadTags calls path received.
func (f *Fake) ReadCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Reads[path]
}
