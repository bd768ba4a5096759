// ABOUTME: submit command: send inputs to a remote decode server
// ABOUTME: Local files go inline, URLs are fetched by the server
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Resonate-Protocol/resonate-decode/internal/client"
	"github.com/Resonate-Protocol/resonate-decode/internal/discovery"
	"github.com/Resonate-Protocol/resonate-decode/internal/protocol"
	"github.com/Resonate-Protocol/resonate-decode/internal/version"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		serverURL string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "submit <file-or-url>...",
		Short: "Decode inputs on a remote decode server",
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

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}

			if serverURL == "" {
				findCtx, cancel := context.WithTimeout(runCtx, 10*time.Second)
				info, err := discovery.FindServer(findCtx)
				cancel()
				if err != nil {
					return err
				}
				serverURL = info.URL()
				fmt.Fprintf(cmd.ErrOrStderr(), "Using %s at %s\n", info.Name, serverURL)
			}

			return runSubmit(runCtx, serverURL, timeout, args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "Server WebSocket URL (default: discover via mDNS)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Maximum time to wait for all results")

	return cmd
}

func runSubmit(ctx context.Context, serverURL string, timeout time.Duration, args []string, out io.Writer) error {
	hostname, _ := os.Hostname()

	c := client.NewClient(client.Config{
		URL:  serverURL,
		Name: hostname + "-submit",
		DeviceInfo: protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
	})

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := c.Connect(connectCtx)
	cancel()
	if err != nil {
		return err
	}
	defer c.Close()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcomes := make([]outcome, len(args))
	g, gctx := errgroup.WithContext(waitCtx)

	// submit in argument order so results come back in that order
	for i, arg := range args {
		req := client.Request{Name: inputName(arg)}
		if isURL(arg) {
			req.Href = arg
		} else {
			data, err := os.ReadFile(arg)
			if err != nil {
				outcomes[i] = outcome{Input: arg, Name: req.Name, Err: err}
				continue
			}
			req.Data = data
		}

		results, err := c.Submit(req)
		if err != nil {
			outcomes[i] = outcome{Input: arg, Name: req.Name, Err: err}
			continue
		}

		g.Go(func() error {
			select {
			case res := <-results:
				outcomes[i] = outcome{Input: arg, Name: req.Name, Buf: res.Buffer, Err: res.Err}
				return nil
			case <-gctx.Done():
				return fmt.Errorf("waiting for %s: %w", arg, gctx.Err())
			}
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return writeOutcomes(out, outcomes)
}
