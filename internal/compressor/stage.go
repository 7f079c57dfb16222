package compressor

import (
	"fmt"
	"strings"
)

// Stage is a session's position in its workflow.
type Stage int

const (
	StageIdle Stage = iota
	StageQualitySelection
	StageCompressing
	StageCompleted
	StageFailed
)

var stageNames = [...]string{
	StageIdle:             "idle",
	StageQualitySelection: "quality_selection",
	StageCompressing:      "compressing",
	StageCompleted:        "completed",
	StageFailed:           "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText renders the stage as its snake_case name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the stage ends a compression run.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Quality is a named compression strength.
type Quality int

const (
	QualityHigh Quality = iota
	QualityMedium
	QualityLow
)

// DefaultQuality is selected when a file is submitted.
const DefaultQuality = QualityMedium

type qualityInfo struct {
	name  string
	label string
	crf   int
}

// x264 constant rate factors; lower is better quality and larger output.
var qualities = [...]qualityInfo{
	QualityHigh:   {"high", "High", 23},
	QualityMedium: {"medium", "Medium", 30},
	QualityLow:    {"low", "Low", 36},
}

// Qualities lists every option in display order.
func Qualities() []Quality {
	return []Quality{QualityHigh, QualityMedium, QualityLow}
}

// Valid reports whether q is one of the defined options.
func (q Quality) Valid() bool {
	return q >= 0 && int(q) < len(qualities)
}

func (q Quality) String() string {
	if !q.Valid() {
		return fmt.Sprintf("quality(%d)", int(q))
	}
	return qualities[q].name
}

// Label is the human-facing name.
func (q Quality) Label() string {
	if !q.Valid() {
		return q.String()
	}
	return qualities[q].label
}

// CRF returns the encoder quality parameter for q.
func (q Quality) CRF() int {
	if !q.Valid() {
		return qualities[DefaultQuality].crf
	}
	return qualities[q].crf
}

// ParseQuality accepts "high", "medium" or "low" in any case.
func ParseQuality(s string) (Quality, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, info := range qualities {
		if info.name == name {
			return Quality(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownQuality, s)
}

func (q Quality) MarshalText() ([]byte, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownQuality, int(q))
	}
	return []byte(q.String()), nil
}

func (q *Quality) UnmarshalText(text []byte) error {
	parsed, err := ParseQuality(string(text))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
