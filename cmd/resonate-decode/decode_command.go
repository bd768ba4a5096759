// ABOUTME: decode command: decode local files or URLs in process
// ABOUTME: Runs the single-flight scheduler with the native backend and prints results
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Resonate-Protocol/resonate-decode/internal/config"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio/resample"
	"github.com/Resonate-Protocol/resonate-decode/pkg/decodequeue"
	"github.com/Resonate-Protocol/resonate-decode/pkg/fetch"
	"github.com/Resonate-Protocol/resonate-decode/pkg/store"
)

type decodeOptions struct {
	stagingDir string
	play       bool
	rate       int
	volume     int
	mute       bool
}

func newDecodeCommand(ctx *commandContext) *cobra.Command {
	var opts decodeOptions

	cmd := &cobra.Command{
		Use:   "decode <file-or-url>...",
		Short: "Decode inputs and print channel, frame and rate details",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var console io.Writer
			if cfg.Logging.Debug {
				console = cmd.ErrOrStderr()
			}
			closeLog, err := setupLogging(cfg.Logging.File, console)
			if err != nil {
				return err
			}
			defer closeLog()

			return runDecode(cmd.Context(), cfg, opts, args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.stagingDir, "staging-dir", "", "Stage inputs in this directory instead of memory")
	cmd.Flags().BoolVar(&opts.play, "play", false, "Play each decoded buffer after decoding")
	cmd.Flags().IntVar(&opts.rate, "rate", 0, "Resample decoded buffers to this rate (0 keeps the source rate)")
	cmd.Flags().IntVar(&opts.volume, "volume", 100, "Playback volume (0-100)")
	cmd.Flags().BoolVar(&opts.mute, "mute", false, "Play silently")

	return cmd
}

// openStore returns a directory store when dir is set, otherwise memory
func openStore(dir string) (store.Store, func(), error) {
	if dir == "" {
		return store.NewMemory(), func() {}, nil
	}

	d, err := store.OpenDir(dir)
	if err != nil {
		return nil, nil, err
	}
	return d, func() {
		if err := d.Close(); err != nil {
			log.Printf("Failed to release staging dir: %v", err)
		}
	}, nil
}

func newFetcher(cfg *config.Config) (*fetch.Fetcher, error) {
	return fetch.New(fetch.Config{
		MaxBytes: cfg.Fetch.MaxBytes,
		CacheDir: cfg.Fetch.CacheDir,
		Client:   &http.Client{Timeout: time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second},
	})
}

func runDecode(ctx context.Context, cfg *config.Config, opts decodeOptions, args []string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	stagingDir := cfg.Staging.Dir
	if opts.stagingDir != "" {
		stagingDir = opts.stagingDir
	}

	st, closeStore, err := openStore(stagingDir)
	if err != nil {
		return err
	}
	defer closeStore()

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return err
	}

	sched := decodequeue.New(st, fetcher)
	defer sched.Close()
	sched.Attach(decode.NewNative(st))

	futures := make([]*decodequeue.Future, len(args))
	for i, arg := range args {
		futures[i] = sched.Submit(decodequeue.Ref(inputName(arg), arg))
	}

	outcomes := make([]outcome, len(args))
	g, gctx := errgroup.WithContext(ctx)
	for i, future := range futures {
		g.Go(func() error {
			buf, err := future.Wait(gctx)
			outcomes[i] = outcome{Input: args[i], Name: future.Name(), Buf: buf, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if opts.rate > 0 {
		for i := range outcomes {
			if outcomes[i].Err != nil {
				continue
			}
			outcomes[i].Buf, outcomes[i].Err = resample.Buffer(outcomes[i].Buf, opts.rate)
		}
	}

	if opts.play {
		if err := playOutcomes(outcomes, opts, out); err != nil {
			return err
		}
	}

	return writeOutcomes(out, outcomes)
}

func playOutcomes(outcomes []outcome, opts decodeOptions, out io.Writer) error {
	player := output.NewOto()
	defer player.Close()
	player.SetVolume(opts.volume)
	player.SetMuted(opts.mute)

	// oto opens one context per process, so everything plays at the first rate
	rate := 0
	for _, o := range outcomes {
		if o.Err != nil || o.Buf.NumChannels() == 0 {
			continue
		}
		if rate == 0 {
			rate = o.Buf.SampleRate
		}

		buf, err := resample.Buffer(o.Buf, rate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "playback of %s failed: %v\n", o.Input, err)
			continue
		}

		fmt.Fprintf(out, "Playing %s (%s)\n", o.Input, buf.Duration().Round(time.Millisecond))
		if err := output.Play(player, buf); err != nil {
			fmt.Fprintf(os.Stderr, "playback of %s failed: %v\n", o.Input, err)
			continue
		}
		player.Drain()
	}
	return nil
}
