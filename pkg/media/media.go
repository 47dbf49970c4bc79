// Package media models the media files the reconciliation engine operates on:
// their formats, the category each format belongs to, and which logical
// metadata fields a format can carry.
package media

import (
	"path/filepath"
	"strings"
)

// Format identifies a media file format, detected from the file extension.
// A file's format is immutable once detected and determines which canonical
// metadata fields apply to it.
type Format string

// String returns the string representation of a Format.
func (f Format) String() string {
	return string(f)
}

// Supported media formats.
const (
	FormatHEIC        Format = "heic"        // HEIF still images from Apple devices
	FormatJPEG        Format = "jpeg"        // JPEG still images (.jpg and .jpeg)
	FormatMOV         Format = "mov"         // QuickTime video containers
	FormatMP4         Format = "mp4"         // MPEG-4 video containers
	Format3GP         Format = "3gp"         // 3GPP video containers from older phones
	FormatPNG         Format = "png"         // PNG images
	FormatGIF         Format = "gif"         // GIF images
	FormatWEBP        Format = "webp"        // WebP images
	FormatUnsupported Format = "unsupported" // Anything the engine will not touch
)

// Supported reports whether the engine can reconcile metadata for the format.
func (f Format) Supported() bool {
	return f != FormatUnsupported && f != ""
}

// Category groups formats by the tag dialect they use. Photos carry full
// EXIF/IPTC/XMP tag sets, videos use QuickTime keys, and plain images carry
// only XMP dates and descriptions.
type Category string

// String returns the string representation of a Category.
func (c Category) String() string {
	return string(c)
}

// Format categories.
const (
	CategoryPhoto   Category = "photo"   // HEIC, JPEG
	CategoryVideo   Category = "video"   // MOV, MP4, 3GP
	CategoryImage   Category = "image"   // PNG, GIF, WEBP
	CategoryUnknown Category = "unknown" // Unsupported formats
)

// Category returns the tag-dialect category for the format.
func (f Format) Category() Category {
	switch f {
	case FormatHEIC, FormatJPEG:
		return CategoryPhoto
	case FormatMOV, FormatMP4, Format3GP:
		return CategoryVideo
	case FormatPNG, FormatGIF, FormatWEBP:
		return CategoryImage
	default:
		return CategoryUnknown
	}
}

// SupportsDate reports whether the format carries a capture date tag.
func (f Format) SupportsDate() bool {
	return f.Supported()
}

// SupportsGPS reports whether the format carries location tags.
// Plain images have no standard coordinate tags worth writing.
func (f Format) SupportsGPS() bool {
	c := f.Category()
	return c == CategoryPhoto || c == CategoryVideo
}

// SupportsPeople reports whether the format carries people keyword tags.
// Only photos take IPTC keywords; video containers have no equivalent.
func (f Format) SupportsPeople() bool {
	return f.Category() == CategoryPhoto
}

// SupportsRating reports whether the format carries an XMP rating.
func (f Format) SupportsRating() bool {
	return f.Category() == CategoryPhoto
}

// SupportsDescription reports whether the format carries a caption or
// description tag.
func (f Format) SupportsDescription() bool {
	return f.Supported()
}

// formatsByExtension maps lowercase file extensions to formats.
var formatsByExtension = map[string]Format{
	".heic": FormatHEIC,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".mov":  FormatMOV,
	".mp4":  FormatMP4,
	".3gp":  Format3GP,
	".png":  FormatPNG,
	".gif":  FormatGIF,
	".webp": FormatWEBP,
}

// skippedExtensions are media extensions the export process produces but the
// engine deliberately refuses: RAW files (metadata handling is camera-specific
// and risky) and low-resolution GoPro/DJI companion clips.
var skippedExtensions = map[string]struct{}{
	".cr2": {},
	".dng": {},
	".lrv": {},
}

// DetectFormat determines the media format of a path from its extension.
// Detection is case-insensitive; unknown extensions are FormatUnsupported.
func DetectFormat(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	if format, ok := formatsByExtension[ext]; ok {
		return format
	}
	return FormatUnsupported
}

// SkippedExtension reports whether the path carries a recognized media
// extension the engine refuses to process. Traversal records these as
// unsupported instead of ignoring them silently.
func SkippedExtension(path string) bool {
	_, ok := skippedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// File is one media file under consideration.
type File struct {
	Path   string `json:"path" yaml:"path"`     // Absolute or run-relative file identifier
	Format Format `json:"format" yaml:"format"` // Detected format, immutable
}

// NewFile builds a File with its format detected from the path.
func NewFile(path string) File {
	return File{
		Path:   path,
		Format: DetectFormat(path),
	}
}

// Supported reports whether the engine can reconcile this file.
func (f File) Supported() bool {
	return f.Format.Supported()
}

// Base returns the file's base name.
func (f File) Base() string {
	return filepath.Base(f.Path)
}

// Dir returns the directory containing the file.
func (f File) Dir() string {
	return filepath.Dir(f.Path)
}
