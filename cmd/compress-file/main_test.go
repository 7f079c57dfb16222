package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"video-compressor/internal/compressor"
	"video-compressor/internal/engine"
	"video-compressor/internal/engine/enginetest"
)

func writeInput(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, size), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newFake(output []byte) *enginetest.Fake {
	fake := enginetest.New()
	fake.Output = output
	fake.Script = []engine.Event{
		{Kind: engine.EventProgress, Progress: 0.25},
		{Kind: engine.EventProgress, Progress: 0.6},
		{Kind: engine.EventProgress, Progress: 1},
	}
	return fake
}

// execute runs the command against fake and returns its error.
func execute(ctx context.Context, fake *enginetest.Fake, stdout, stderr *bytes.Buffer, args ...string) error {
	cmd := newRootCommand(fake.Factory())
	// A nil slice would make cobra fall back to os.Args.
	cmd.SetArgs(append([]string{}, args...))
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

func TestRunCompressesFile(t *testing.T) {
	input := writeInput(t, "clip.mp4", 4096)
	output := bytes.Repeat([]byte{0x01}, 1024)
	fake := newFake(output)

	var stdout, stderr bytes.Buffer
	if err := execute(context.Background(), fake, &stdout, &stderr, "--quality", "low", input); err != nil {
		t.Fatalf("execute: %v", err)
	}

	written, err := os.ReadFile(filepath.Join(filepath.Dir(input), "clip_compressed.mp4"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(written, output) {
		t.Error("written file differs from engine output")
	}

	calls := fake.ExecCalls()
	if len(calls) != 1 {
		t.Fatalf("engine ran %d times, want 1", len(calls))
	}
	want := compressor.CompressArgs("input.mp4", compressor.OutputFileName, compressor.QualityLow, compressor.DefaultThreads)
	if !reflect.DeepEqual(calls[0], want) {
		t.Errorf("engine args = %v, want %v", calls[0], want)
	}

	for _, line := range []string{
		"ORIGINAL:   4.0 KB",
		"COMPRESSED: 1.0 KB",
		"CHANGE:     -75.0%",
		"Saved to " + filepath.Join(filepath.Dir(input), "clip_compressed.mp4"),
	} {
		if !strings.Contains(stdout.String(), line) {
			t.Errorf("stdout missing %q:\n%s", line, stdout.String())
		}
	}
}

func TestRunReportsLargerOutput(t *testing.T) {
	input := writeInput(t, "clip.webm", 1000)
	out := filepath.Join(t.TempDir(), "result.mp4")

	var stdout, stderr bytes.Buffer
	if err := execute(context.Background(), newFake(make([]byte, 1250)), &stdout, &stderr, "-o", out, input); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stdout.String(), "+25.0% (larger than the original)") {
		t.Errorf("stdout does not flag the larger result:\n%s", stdout.String())
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written to -o path: %v", err)
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		args      []string
		configure func(*enginetest.Fake)
		wantErr   string
	}{
		{name: "no input", wantErr: "accepts 1 arg(s)"},
		{name: "bad quality", file: "clip.mp4", args: []string{"--quality", "ultra"}, wantErr: "unknown quality"},
		{name: "not a video", file: "notes.txt", wantErr: "not an accepted video"},
		{name: "missing file", args: []string{"/nonexistent/clip.mp4"}, wantErr: "no such file"},
		{
			name:      "engine load failure",
			file:      "clip.mp4",
			configure: func(f *enginetest.Fake) { f.LoadErr = errors.New("no ffmpeg") },
			wantErr:   "engine failed to load",
		},
		{
			name:      "engine exec failure",
			file:      "clip.mp4",
			configure: func(f *enginetest.Fake) { f.ExecErr = &engine.ExecError{Err: errors.New("exit status 1")} },
			wantErr:   "compression failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake([]byte("out"))
			if tt.configure != nil {
				tt.configure(fake)
			}
			args := tt.args
			if tt.file != "" {
				args = append(args, writeInput(t, tt.file, 64))
			}

			var stdout, stderr bytes.Buffer
			err := execute(context.Background(), fake, &stdout, &stderr, args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want one containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRunRefusesToOverwriteInput(t *testing.T) {
	input := writeInput(t, "clip.mp4", 64)

	var stdout, stderr bytes.Buffer
	err := execute(context.Background(), newFake(nil), &stdout, &stderr, "-o", input, input)
	if err == nil || !strings.Contains(err.Error(), "overwrite the input") {
		t.Errorf("err = %v, want overwrite refusal", err)
	}
}

func TestRunInterrupted(t *testing.T) {
	input := writeInput(t, "clip.mp4", 64)
	fake := newFake([]byte("out"))
	fake.ExecGate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var stdout, stderr bytes.Buffer
	go func() {
		done <- execute(ctx, fake, &stdout, &stderr, input)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for len(fake.ExecCalls()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("engine never started")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, errInterrupted) {
			t.Errorf("err = %v, want errInterrupted", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after interrupt")
	}

	if !fake.Terminated() {
		t.Error("engine was not terminated")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(input), "clip_compressed.mp4")); !os.IsNotExist(err) {
		t.Errorf("output written despite interrupt: %v", err)
	}
}

func TestProgressPrinter(t *testing.T) {
	views := []compressor.View{
		{Stage: compressor.StageQualitySelection},
		{Stage: compressor.StageCompressing, Progress: 0, OutputDisplay: "0 Bytes"},
		{Stage: compressor.StageCompressing, Progress: 5, OutputDisplay: "1.0 KB"},
		{Stage: compressor.StageCompressing, Progress: 12, OutputDisplay: "2.0 KB"},
		{Stage: compressor.StageCompressing, Progress: 19, OutputDisplay: "3.0 KB"},
		{Stage: compressor.StageCompressing, Progress: 100, OutputDisplay: "9.0 KB"},
		{Stage: compressor.StageCompleted, Progress: 100},
	}

	t.Run("pipe", func(t *testing.T) {
		var buf bytes.Buffer
		p := &progressPrinter{w: &buf, last: -1}
		for _, v := range views {
			p.update(v)
		}
		p.finish()

		want := "Compressing: 0% (0 Bytes written)\n" +
			"Compressing: 12% (2.0 KB written)\n" +
			"Compressing: 100% (9.0 KB written)\n"
		if buf.String() != want {
			t.Errorf("output = %q, want %q", buf.String(), want)
		}
	})

	t.Run("terminal", func(t *testing.T) {
		var buf bytes.Buffer
		p := &progressPrinter{w: &buf, tty: true, last: -1}
		for _, v := range views {
			p.update(v)
		}
		p.finish()

		out := buf.String()
		if strings.Count(out, "\r") != 5 {
			t.Errorf("expected 5 rewrites, got %q", out)
		}
		if !strings.HasSuffix(out, "\n") || strings.Count(out, "\n") != 1 {
			t.Errorf("expected a single trailing newline, got %q", out)
		}
	})
}
