package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satriahrh/palmistry/domain/entities"
)

func newZodiacsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "zodiacs",
		Short: "List the twelve zodiac signs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, entry := range entities.ZodiacList() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\n", entry.Icon, entry.Sign, entry.ID)
			}
			return nil
		},
	}
}
