package compressor

import (
	"path/filepath"
	"strconv"
	"strings"

	"video-compressor/internal/mediatypes"
)

// DefaultThreads is the encoder thread count when none is configured.
const DefaultThreads = 4

// OutputFileName is the workspace name of the encoded result.
const OutputFileName = "output.mp4"

// CompressArgs builds the encoder invocation: H.264 into an MP4 with the
// index moved to the front for progressive playback, the quality's CRF, a
// fast preset, machine-readable progress on stdout, and overwrite enabled.
func CompressArgs(input, output string, q Quality, threads int) []string {
	if threads <= 0 {
		threads = DefaultThreads
	}
	return []string{
		"-i", input,
		"-threads", strconv.Itoa(threads),
		"-c:v", "libx264",
		"-tag:v", "avc1",
		"-movflags", "faststart",
		"-crf", strconv.Itoa(q.CRF()),
		"-preset", "superfast",
		"-progress", "pipe:1",
		"-y",
		output,
	}
}

// inputFileName picks the workspace name for an upload, keeping a known
// video extension so the demuxer can use it as a hint.
func inputFileName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if mediatypes.VideoExtensions[ext] {
		return "input" + ext
	}
	return "input.mp4"
}
