package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/subfrost/brc20shrew/modules/brc20"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show brc20shrew version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Println(brc20.ClientVersion)
			return nil
		},
	}
}
