package engine

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var durationPattern = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// parseDuration extracts the input duration from an ffmpeg stream banner
// line such as "  Duration: 00:01:02.50, start: 0.000000, bitrate: ...".
func parseDuration(line string) (time.Duration, bool) {
	m := durationPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	hours, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	return total, true
}

// parseClock parses the HH:MM:SS.micro form used by the out_time key.
func parseClock(value string) (time.Duration, bool) {
	return parseDuration("Duration: " + value)
}

// progressTracker turns ffmpeg's -progress key/value blocks into
// completion fractions. The total comes from the input banner on stderr.
type progressTracker struct {
	mu       sync.Mutex
	duration time.Duration
	outTime  time.Duration
}

// observeLog records the input duration the first time it is announced.
func (p *progressTracker) observeLog(line string) {
	d, ok := parseDuration(line)
	if !ok || d <= 0 {
		return
	}
	p.mu.Lock()
	if p.duration == 0 {
		p.duration = d
	}
	p.mu.Unlock()
}

// observeProgress consumes one -progress line. It reports a fraction at the
// end of each block ("progress=continue" or "progress=end").
func (p *progressTracker) observeProgress(line string) (float64, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return 0, false
	}
	value = strings.TrimSpace(value)

	p.mu.Lock()
	defer p.mu.Unlock()

	switch key {
	case "out_time_us", "out_time_ms":
		// ffmpeg reports both keys in microseconds.
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			p.outTime = time.Duration(us) * time.Microsecond
		}
	case "out_time":
		if d, ok := parseClock(value); ok {
			p.outTime = d
		}
	case "progress":
		if value == "end" {
			return 1, true
		}
		if p.duration <= 0 {
			return 0, false
		}
		fraction := float64(p.outTime) / float64(p.duration)
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}
		return fraction, true
	}
	return 0, false
}
