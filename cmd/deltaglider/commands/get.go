package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <bucket> <key> <dest-file>",
		Short: "Download an object, transparently patching any delta",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, key, dest := args[0], args[1], args[2]

			body, _, err := DG.Engine.GetObject(ctx(), bucket, key)
			if err != nil {
				return err
			}
			defer body.Close()

			f, err := os.Create(dest)
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := io.Copy(f, body)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %d bytes to %s\n", n, dest)
			return nil
		},
	}
}
