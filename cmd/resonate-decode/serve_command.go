// ABOUTME: serve command: run the WebSocket decode service
// ABOUTME: Wires config, staging store, fetcher and scheduler into the server
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/resonate-decode/internal/server"
	"github.com/Resonate-Protocol/resonate-decode/internal/version"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio/decode"
	"github.com/Resonate-Protocol/resonate-decode/pkg/decodequeue"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var (
		port   int
		name   string
		noMDNS bool
		noTUI  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket decode service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if name != "" {
				cfg.Server.Name = name
			}

			useTUI := cfg.Server.TUI && !noTUI && stdoutIsTerminal()

			// TUI mode logs only to file
			var console io.Writer = os.Stdout
			if useTUI {
				console = nil
			}
			closeLog, err := setupLogging(cfg.Logging.File, console)
			if err != nil {
				return err
			}
			defer closeLog()

			log.Printf("Starting %s %s: %s on port %d", version.Product, version.Version, cfg.Server.Name, cfg.Server.Port)
			if cfg.Logging.Debug {
				log.Printf("Debug logging enabled")
			}

			st, closeStore, err := openStore(cfg.Staging.Dir)
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

			native := decode.NewNative(st)
			sched.Attach(native)

			formats := make([]string, 0, len(native.Formats()))
			for _, f := range native.Formats() {
				formats = append(formats, string(f))
			}

			srv := server.New(server.Config{
				Port:           cfg.Server.Port,
				Name:           cfg.Server.Name,
				EnableMDNS:     cfg.Server.MDNS && !noMDNS,
				Debug:          cfg.Logging.Debug,
				UseTUI:         useTUI,
				MaxInlineBytes: cfg.Fetch.MaxBytes,
			}, sched, formats)

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			go func() {
				sig, ok := <-sigChan
				if !ok {
					return
				}
				log.Printf("Received %v signal, shutting down gracefully...", sig)
				srv.Stop()
			}()

			if err := srv.Start(); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 8928, "WebSocket server port")
	cmd.Flags().StringVar(&name, "name", "", "Server friendly name (default from config)")
	cmd.Flags().BoolVar(&noMDNS, "no-mdns", false, "Disable mDNS advertisement")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable TUI, stream logs instead")

	return cmd
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
