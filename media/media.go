// Package media knows about file content types and inspects video files with
// the ffmpeg tool suite.
package media

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Major media types returned by Guess.
const (
	TypeVideo = "video"
	TypeImage = "image"
	TypeAudio = "audio"
)

// The builtin table of the mime package only covers web types, the system
// tables are not present everywhere.
var extensionTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

func init() {
	for ext, mimeType := range extensionTypes {
		_ = mime.AddExtensionType(ext, mimeType)
	}
}

// Guess returns the major media type of the file at path ("video", "image",
// "application", ...). The extension is consulted first; when it is unknown
// the file content is sniffed. An empty result means the type is unknown.
func Guess(path string) string {
	if mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); mimeType != "" {
		return majorType(mimeType)
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	return majorType(detected.String())
}

// IsVideo ...
func IsVideo(path string) bool {
	return Guess(path) == TypeVideo
}

func majorType(mimeType string) string {
	major, _, _ := strings.Cut(mimeType, "/")
	return major
}
