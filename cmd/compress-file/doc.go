// Command compress-file compresses a single video from the command line
// using the same session controller as the server.
//
// Usage:
//
//	compress-file [--quality high|medium|low] [-o output] [--threads n] <video>
//
// Progress is shown on one rewritten line when stdout is a terminal and as
// one line per ten percent otherwise. When the encode finishes the original
// and compressed sizes are printed along with the percentage change; a
// result larger than the input is reported as such, not hidden.
//
// The output defaults to <name>_compressed.<ext> next to the input and is
// never allowed to overwrite the input.
//
// Environment:
//
//	FFMPEG_PATH - ffmpeg binary (default: ffmpeg)
//	WORK_DIR    - parent directory for the encoder workspace (default: system temp)
//
// Exit status is 0 on success and 1 on any error.
package main
