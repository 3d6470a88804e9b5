package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/palmistry/internal/config"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "palmctl",
		Short: "Palm reading × horoscope from the terminal",
		Long: `palmctl walks through the palm reading flow against a running relay:
pick a photo (or a still frame standing in for the camera), choose a zodiac
sign, and render the fortune report.

The model credential lives only on the relay. palmctl needs the relay URL and,
when the relay is gated, a token minted with "palmctl token".`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env files if present (ignore errors)
			config.LoadEnvFiles()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config (defaults to $PALM_CONFIG)")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Verbose logging")

	cmd.AddCommand(newReadCmd(opts))
	cmd.AddCommand(newZodiacsCmd())
	cmd.AddCommand(newTokenCmd(opts))
	cmd.AddCommand(newHealthCmd(opts))

	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = strings.TrimSpace(os.Getenv("PALM_CONFIG"))
	}
	return config.Load(path)
}

func (o *rootOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
