// ABOUTME: Root cobra command and shared command context
// ABOUTME: Loads configuration once and wires persistent flags
package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/resonate-decode/internal/config"
)

type commandContext struct {
	configFlag *string
	debugFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if *c.debugFlag {
			cfg.Logging.Debug = true
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var debugFlag bool

	ctx := &commandContext{configFlag: &configFlag, debugFlag: &debugFlag}

	rootCmd := &cobra.Command{
		Use:           "resonate-decode",
		Short:         "Decode audio files into per-channel float samples",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newDecodeCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newSubmitCommand(ctx))
	rootCmd.AddCommand(newClearCacheCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
