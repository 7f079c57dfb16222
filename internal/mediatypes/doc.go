// Package mediatypes lists the video container formats the compressor
// accepts as input, with their extensions and MIME types.
//
// The package has no dependencies beyond the standard library so that the
// intake, handler and engine packages can share it without import cycles.
//
// # Accepted Formats
//
// The accepted set matches what a browser file picker offers for video:
//
//	.mp4  video/mp4
//	.webm video/webm
//	.mov  video/quicktime
//	.avi  video/x-msvideo
//	.mkv  video/x-matroska
//
// Use IsAcceptedVideo to check an upload by extension or declared content
// type:
//
//	if !mediatypes.IsAcceptedVideo(filepath.Ext(name), header.Get("Content-Type")) {
//	    // reject
//	}
package mediatypes
