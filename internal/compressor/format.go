package compressor

import (
	"math"
	"strconv"
	"strings"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// DisplaySize formats a byte count with base-1024 units and one decimal
// place, e.g. "1.5 KB". Zero and negative counts format as "0 Bytes".
// Counts beyond the GB range stay in GB.
func DisplaySize(b int64) string {
	if b <= 0 {
		return "0 Bytes"
	}

	value := float64(b)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}

	// 1023.96 KB would print as "1024.0 KB"; promote it instead.
	if math.Round(value*10)/10 >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}

	return strconv.FormatFloat(value, 'f', 1, 64) + " " + sizeUnits[unit]
}

// PercentChange returns how much larger (positive) or smaller (negative)
// compressed is than original, in percent. It returns 0 when original is
// not positive.
func PercentChange(original, compressed int64) float64 {
	if original <= 0 {
		return 0
	}
	return float64(compressed-original) * 100 / float64(original)
}

// CompressedSuffix is inserted before the extension of downloaded files.
const CompressedSuffix = "_compressed"

// OutputName derives the download name for a compressed file by inserting
// CompressedSuffix before the last extension: "my.video.mp4" becomes
// "my.video_compressed.mp4". Names without an extension, or whose only dot
// is the leading one, get the suffix appended.
func OutputName(inputName string) string {
	dot := strings.LastIndex(inputName, ".")
	if dot <= 0 {
		return inputName + CompressedSuffix
	}
	return inputName[:dot] + CompressedSuffix + inputName[dot:]
}
