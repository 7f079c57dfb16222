package intake

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		files      []Candidate
		maxSize    int64
		wantReason Reason
		wantName   string
	}{
		{
			name:     "single mp4",
			files:    []Candidate{{Name: "clip.mp4", ContentType: "video/mp4", Size: 1024}},
			wantName: "clip.mp4",
		},
		{
			name:     "content type only",
			files:    []Candidate{{Name: "recording", ContentType: "video/quicktime", Size: 10}},
			wantName: "recording",
		},
		{
			name:     "path components stripped",
			files:    []Candidate{{Name: `C:\Users\me\holiday.mkv`, Size: 10}},
			wantName: "holiday.mkv",
		},
		{
			name:       "no files",
			files:      nil,
			wantReason: ReasonNoFile,
		},
		{
			name: "two files",
			files: []Candidate{
				{Name: "a.mp4", Size: 1},
				{Name: "b.mp4", Size: 1},
			},
			wantReason: ReasonTooMany,
		},
		{
			name:       "image rejected",
			files:      []Candidate{{Name: "photo.jpg", ContentType: "image/jpeg", Size: 10}},
			wantReason: ReasonUnsupported,
		},
		{
			name:       "empty file",
			files:      []Candidate{{Name: "clip.mp4", Size: 0}},
			wantReason: ReasonEmpty,
		},
		{
			name:       "over limit",
			files:      []Candidate{{Name: "clip.mp4", Size: 101}},
			maxSize:    100,
			wantReason: ReasonTooLarge,
		},
		{
			name:     "exactly at limit",
			files:    []Candidate{{Name: "clip.mp4", Size: 100}},
			maxSize:  100,
			wantName: "clip.mp4",
		},
		{
			name:       "default limit applies",
			files:      []Candidate{{Name: "clip.mp4", Size: DefaultMaxSize + 1}},
			wantReason: ReasonTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.files, tt.maxSize)

			if tt.wantReason != "" {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if ve.Reason != tt.wantReason {
					t.Errorf("Reason = %s, want %s", ve.Reason, tt.wantReason)
				}
				if !IsValidationError(err) {
					t.Error("IsValidationError should be true")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", got.Name, tt.wantName)
			}
		})
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"clip.mp4", "clip.mp4"},
		{"dir/clip.mp4", "clip.mp4"},
		{`dir\clip.mp4`, "clip.mp4"},
		{"  spaced.mov ", "spaced.mov"},
		{"", "video"},
		{"..", "video"},
		{"dir/", "video"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeName(tt.in); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
