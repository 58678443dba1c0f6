package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func headCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "head <bucket> <key>",
		Short: "Show metadata for a logical object without downloading it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, key := args[0], args[1]

			out, err := DG.Engine.HeadObject(ctx(), bucket, key)
			if err != nil {
				return err
			}

			fmt.Printf("key:          %s\n", key)
			fmt.Printf("size:         %s\n", humanize.Bytes(uint64(out.ContentLength)))
			fmt.Printf("etag:         %s\n", out.ETag)
			fmt.Printf("delta:        %v\n", out.IsDelta)
			fmt.Printf("last-modified: %s\n", out.LastModified)
			if out.IsDelta {
				fmt.Printf("ref-key:      %s\n", out.Metadata["deltaglider-ref-key"])
				fmt.Printf("ratio:        %s\n", out.Metadata["deltaglider-compression-ratio"])
			}
			fmt.Printf("sha256:       %s\n", out.Metadata["deltaglider-sha256"])
			fmt.Printf("tool-version: %s\n", out.Metadata["deltaglider-tool-version"])
			return nil
		},
	}
}
