package mediatypes

import "strings"

// VideoFormat describes one accepted input container.
type VideoFormat struct {
	Extension string `json:"extension"`
	MimeType  string `json:"mimeType"`
}

// AcceptedVideoFormats is the fixed set of containers accepted for upload.
var AcceptedVideoFormats = []VideoFormat{
	{Extension: ".mp4", MimeType: "video/mp4"},
	{Extension: ".webm", MimeType: "video/webm"},
	{Extension: ".mov", MimeType: "video/quicktime"},
	{Extension: ".avi", MimeType: "video/x-msvideo"},
	{Extension: ".mkv", MimeType: "video/x-matroska"},
}

// VideoExtensions maps lowercase extensions to whether they are accepted.
var VideoExtensions = map[string]bool{}

// MimeTypes maps lowercase extensions to their MIME types.
var MimeTypes = map[string]string{}

var acceptedMimeTypes = map[string]bool{}

func init() {
	for _, f := range AcceptedVideoFormats {
		VideoExtensions[f.Extension] = true
		MimeTypes[f.Extension] = f.MimeType
		acceptedMimeTypes[f.MimeType] = true
	}
}

// CompressedMimeType is the content type of every compressed output.
// The engine always writes an MP4 container.
const CompressedMimeType = "video/mp4"

// GetMimeType returns the MIME type for a given file extension.
// The lookup is case-insensitive; the extension must include the leading dot.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[strings.ToLower(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsAcceptedMimeType reports whether a declared content type is an accepted
// video type. Parameters such as "; codecs=..." are ignored.
func IsAcceptedMimeType(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	return acceptedMimeTypes[mediaType]
}

// IsAcceptedVideo reports whether an upload is an accepted video, judged by
// its extension first and its declared content type second.
func IsAcceptedVideo(ext, contentType string) bool {
	if VideoExtensions[strings.ToLower(ext)] {
		return true
	}
	return IsAcceptedMimeType(contentType)
}
