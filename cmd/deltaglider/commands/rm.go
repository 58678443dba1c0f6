package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <bucket> <key>",
		Short: "Delete a logical object (does not touch its group's reference)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, key := args[0], args[1]
			if _, err := DG.Engine.DeleteObject(ctx(), bucket, key); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", key)
			return nil
		},
	}
}
