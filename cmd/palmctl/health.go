package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satriahrh/palmistry/adapters/relay"
)

func newHealthCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the relay is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			client, err := relay.NewClient(relay.Config{BaseURL: cfg.Client.RelayURL}, root.logger())
			if err != nil {
				return err
			}
			if err := client.Health(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "relay %s is healthy\n", cfg.Client.RelayURL)
			return nil
		},
	}
}
