// Package intake validates uploads before they reach a compression
// session. The controller trusts that anything it receives has already
// passed these checks.
package intake

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"video-compressor/internal/mediatypes"
)

// DefaultMaxSize is the largest accepted upload (2 GiB).
const DefaultMaxSize int64 = 2 << 30

// Reason classifies a rejected upload.
type Reason string

const (
	ReasonNoFile      Reason = "no_file"
	ReasonTooMany     Reason = "too_many_files"
	ReasonUnsupported Reason = "unsupported_type"
	ReasonTooLarge    Reason = "too_large"
	ReasonEmpty       Reason = "empty_file"
)

// ValidationError reports why an upload was rejected.
type ValidationError struct {
	Reason Reason
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid upload (%s): %s", e.Reason, e.Detail)
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Candidate is what the intake knows about an upload before reading it.
type Candidate struct {
	Name        string
	ContentType string
	Size        int64
}

// Validate checks the files of a single drop/selection action. Exactly one
// accepted, non-empty video under maxSize passes; maxSize <= 0 means
// DefaultMaxSize.
func Validate(files []Candidate, maxSize int64) (Candidate, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	switch {
	case len(files) == 0:
		return Candidate{}, &ValidationError{Reason: ReasonNoFile, Detail: "no file provided"}
	case len(files) > 1:
		return Candidate{}, &ValidationError{
			Reason: ReasonTooMany,
			Detail: fmt.Sprintf("%d files provided, only one video can be compressed at a time", len(files)),
		}
	}

	file := files[0]
	file.Name = SanitizeName(file.Name)

	if !mediatypes.IsAcceptedVideo(filepath.Ext(file.Name), file.ContentType) {
		return Candidate{}, &ValidationError{
			Reason: ReasonUnsupported,
			Detail: fmt.Sprintf("%q is not an accepted video (mp4, webm, mov, avi, mkv)", file.Name),
		}
	}
	if file.Size == 0 {
		return Candidate{}, &ValidationError{Reason: ReasonEmpty, Detail: "file is empty"}
	}
	if file.Size > maxSize {
		return Candidate{}, &ValidationError{
			Reason: ReasonTooLarge,
			Detail: fmt.Sprintf("file is %d bytes, limit is %d bytes", file.Size, maxSize),
		}
	}

	return file, nil
}

// SanitizeName strips any directory components a client sent along with
// the file name. An empty result becomes "video".
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		name = name[idx+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "video"
	}
	return name
}
