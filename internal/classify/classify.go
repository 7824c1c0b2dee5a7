// Package classify maps remote message metadata (names, extensions, MIME
// types) onto file types, category buckets, and safe display names.
package classify

import (
	"strings"

	"github.com/google/uuid"

	"github.com/TG-SkyBox/SkyBox/internal/vfs"
)

// Category bucket names, also the default folder names under the root.
const (
	CategoryImages    = "Images"
	CategoryVideos    = "Videos"
	CategoryAudios    = "Audios"
	CategoryDocuments = "Documents"
	CategoryNotes     = "Notes"
)

// Classification is the category/file-type pair derived from an extension.
type Classification struct {
	Category string
	FileType string
}

var imageExts = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "webp": true, "gif": true,
	"bmp": true, "tiff": true, "svg": true, "heic": true,
}

var videoExts = map[string]bool{
	"mp4": true, "mkv": true, "webm": true, "mov": true, "avi": true,
	"wmv": true, "m4v": true, "flv": true,
}

var audioExts = map[string]bool{
	"mp3": true, "m4a": true, "ogg": true, "wav": true, "flac": true,
	"aac": true, "opus": true, "wma": true,
}

var noteExts = map[string]bool{
	"txt": true, "md": true, "rtf": true, "log": true, "json": true,
	"xml": true, "yaml": true, "yml": true, "csv": true, "ini": true,
	"toml": true,
}

// ByExtension classifies a normalized extension. Unknown extensions fall
// through to the Documents bucket.
func ByExtension(ext string) Classification {
	switch {
	case imageExts[ext]:
		return Classification{CategoryImages, vfs.TypeImage}
	case videoExts[ext]:
		return Classification{CategoryVideos, vfs.TypeVideo}
	case audioExts[ext]:
		return Classification{CategoryAudios, vfs.TypeAudio}
	case noteExts[ext]:
		return Classification{CategoryNotes, vfs.TypeText}
	default:
		return Classification{CategoryDocuments, vfs.TypeDocument}
	}
}

var mimeToExt = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
	"image/bmp":  "bmp",
	"image/tiff": "tiff",
	"image/heic": "heic",
	"image/heif": "heic",

	"video/mp4":        "mp4",
	"video/x-matroska": "mkv",
	"video/webm":       "webm",
	"video/quicktime":  "mov",
	"video/x-msvideo":  "avi",
	"video/x-ms-wmv":   "wmv",

	"audio/mpeg":   "mp3",
	"audio/mp3":    "mp3",
	"audio/mp4":    "m4a",
	"audio/x-m4a":  "m4a",
	"audio/ogg":    "ogg",
	"audio/wav":    "wav",
	"audio/x-wav":  "wav",
	"audio/flac":   "flac",
	"audio/x-flac": "flac",
	"audio/aac":    "aac",
	"audio/opus":   "opus",

	"text/plain":    "txt",
	"text/markdown": "md",

	"application/pdf":              "pdf",
	"application/zip":              "zip",
	"application/x-rar-compressed": "rar",
	"application/x-7z-compressed":  "7z",
	"application/json":             "json",
	"application/xml":              "xml",
	"application/msword":           "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "docx",
	"application/vnd.ms-excel": "xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "xlsx",
	"application/vnd.ms-powerpoint": "ppt",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "pptx",
	"application/octet-stream": "bin",
}

// ExtensionFromMime maps a MIME type to a preferred extension, or "".
func ExtensionFromMime(mime string) string {
	return mimeToExt[strings.ToLower(strings.TrimSpace(mime))]
}

// DefaultExtension returns the fallback extension for a file type.
func DefaultExtension(fileType string) string {
	switch fileType {
	case vfs.TypeImage:
		return "jpg"
	case vfs.TypeVideo:
		return "mp4"
	case vfs.TypeAudio:
		return "mp3"
	case vfs.TypeText:
		return "txt"
	default:
		return "bin"
	}
}

// NormalizeExtension lowercases and strips a leading dot; "" if empty.
func NormalizeExtension(raw string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "."))
}

// ExtensionFromName extracts a normalized extension from a file name, or
// "" when the name has no extension part.
func ExtensionFromName(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return ""
	}
	return NormalizeExtension(name[idx+1:])
}

var reservedNameChars = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeFileName replaces filesystem-reserved characters with
// underscores. Empty input yields "upload.bin".
func SanitizeFileName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "upload.bin"
	}
	return reservedNameChars.Replace(trimmed)
}

// SanitizedOrEmpty is SanitizeFileName without the placeholder fallback.
func SanitizedOrEmpty(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	return reservedNameChars.Replace(trimmed)
}

// GeneratedFileName builds a unique display name for unnamed media,
// e.g. "image_3f2a....jpg".
func GeneratedFileName(fileType, ext string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if ext != "" {
		return fileType + "_" + id + "." + ext
	}
	return fileType + "_" + id
}
