package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"video-compressor/internal/compressor"
	"video-compressor/internal/engine"
	"video-compressor/internal/intake"
	"video-compressor/internal/logging"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const probeTimeout = 10 * time.Second

var errInterrupted = errors.New("interrupted")

func main() {
	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, stopping encoder...")
		cancel()
	}()

	cmd := newRootCommand(nil)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the parsed command line.
type options struct {
	input      string
	output     string
	quality    compressor.Quality
	threads    int
	ffmpegPath string
	workDir    string
}

// newRootCommand builds the CLI. A nil factory encodes with ffmpeg.
func newRootCommand(factory engine.Factory) *cobra.Command {
	var (
		opts    options
		quality string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "compress-file [flags] <video>",
		Short: "Compress a single video with ffmpeg",
		Long: "Compress a single video with ffmpeg and report how much smaller (or larger) it got.\n\n" +
			"Environment:\n" +
			"  FFMPEG_PATH - ffmpeg binary (default: ffmpeg)\n" +
			"  WORK_DIR    - Encoder workspace parent directory",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := compressor.ParseQuality(quality)
			if err != nil {
				return err
			}
			opts.quality = q
			opts.input = args[0]
			if opts.output == "" {
				opts.output = filepath.Join(filepath.Dir(opts.input), compressor.OutputName(filepath.Base(opts.input)))
			}

			if !verbose {
				logging.SetLevel(logging.LevelError)
			}
			f := factory
			if f == nil {
				f = engine.FFmpegFactory(logging.Scoped("file", filepath.Base(opts.input)))
			}

			stdout := cmd.OutOrStdout()
			return compressFile(cmd.Context(), opts, f, stdout, isTerminal(stdout))
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&quality, "quality", "q", compressor.DefaultQuality.String(), "compression quality: high, medium or low")
	flags.StringVarP(&opts.output, "output", "o", "", "output path (default: <name>_compressed.<ext> next to the input)")
	flags.IntVar(&opts.threads, "threads", compressor.DefaultThreads, "encoder threads")
	flags.StringVar(&opts.ffmpegPath, "ffmpeg", envOr("FFMPEG_PATH", "ffmpeg"), "ffmpeg binary")
	flags.StringVar(&opts.workDir, "work-dir", envOr("WORK_DIR", os.TempDir()), "directory for the encoder workspace")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log engine activity to stderr")

	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func compressFile(ctx context.Context, opts options, factory engine.Factory, stdout io.Writer, tty bool) error {
	if samePath(opts.input, opts.output) {
		return fmt.Errorf("output %s would overwrite the input", opts.output)
	}

	info, err := os.Stat(opts.input)
	if err != nil {
		return err
	}
	if _, err := intake.Validate([]intake.Candidate{{Name: filepath.Base(opts.input), Size: info.Size()}}, 0); err != nil {
		return err
	}

	data, err := os.ReadFile(opts.input)
	if err != nil {
		return err
	}

	s := compressor.New(compressor.Config{
		Engine: factory,
		Load: engine.LoadConfig{
			Binary:       opts.ffmpegPath,
			WorkDir:      opts.workDir,
			ProbeTimeout: probeTimeout,
		},
		Threads: opts.threads,
	})
	defer s.Close()

	updates, cancel := s.Subscribe()
	defer cancel()

	if err := s.SubmitFile(compressor.InputFile{Name: filepath.Base(opts.input), Data: data}); err != nil {
		return err
	}

	v, err := await(ctx, updates, func(v compressor.View) bool {
		return v.EngineReady || v.Stage == compressor.StageFailed
	}, nil)
	if err != nil {
		return err
	}
	if v.Stage == compressor.StageFailed {
		return fmt.Errorf("engine failed to load: %s", v.Failure)
	}

	if err := s.SelectQuality(opts.quality); err != nil {
		return err
	}
	if err := s.StartCompression(); err != nil {
		return err
	}

	progress := &progressPrinter{w: stdout, tty: tty, last: -1}
	v, err = await(ctx, updates, func(v compressor.View) bool {
		return v.Stage == compressor.StageCompleted || v.Stage == compressor.StageFailed
	}, progress.update)
	progress.finish()
	if err != nil {
		return err
	}
	if v.Stage == compressor.StageFailed {
		return fmt.Errorf("compression failed: %s", v.Failure)
	}

	output, ok := s.Output()
	if !ok {
		return errors.New("compressed output missing")
	}
	if err := os.WriteFile(opts.output, output, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.output, err)
	}

	printSummary(stdout, v, opts.output)
	return nil
}

// await reads views until done holds, passing each one to onView.
func await(ctx context.Context, updates <-chan compressor.View, done func(compressor.View) bool, onView func(compressor.View)) (compressor.View, error) {
	for {
		select {
		case v, open := <-updates:
			if !open {
				return compressor.View{}, compressor.ErrClosed
			}
			if onView != nil {
				onView(v)
			}
			if done(v) {
				return v, nil
			}
		case <-ctx.Done():
			return compressor.View{}, errInterrupted
		}
	}
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// progressPrinter rewrites a single line on a terminal and prints one line
// per ten percent otherwise.
type progressPrinter struct {
	w       io.Writer
	tty     bool
	last    int
	printed bool
}

func (p *progressPrinter) update(v compressor.View) {
	if v.Stage != compressor.StageCompressing {
		return
	}
	pct := int(v.Progress)

	if p.tty {
		fmt.Fprintf(p.w, "\rCompressing: %3d%%  %-10s", pct, v.OutputDisplay)
		p.last = pct
		p.printed = true
		return
	}

	if p.last >= 0 && pct/10 == p.last/10 {
		return
	}
	fmt.Fprintf(p.w, "Compressing: %d%% (%s written)\n", pct, v.OutputDisplay)
	p.last = pct
	p.printed = true
}

func (p *progressPrinter) finish() {
	if p.tty && p.printed {
		fmt.Fprintln(p.w)
	}
}

func printSummary(w io.Writer, v compressor.View, path string) {
	fmt.Fprintf(w, "ORIGINAL:   %s\n", v.OriginalDisplay)
	fmt.Fprintf(w, "COMPRESSED: %s\n", v.OutputDisplay)
	if v.PercentChange != nil {
		change := fmt.Sprintf("%.1f%%", *v.PercentChange)
		if *v.PercentChange > 0 {
			change = "+" + change + " (larger than the original)"
		}
		fmt.Fprintf(w, "CHANGE:     %s\n", change)
	}
	fmt.Fprintf(w, "Saved to %s\n", path)
}
