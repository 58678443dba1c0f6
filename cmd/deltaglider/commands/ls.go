package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/beshu-tech/deltaglider/pkg/objectstore"
)

func lsCmd() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "ls <bucket>",
		Short: "List logical objects under a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := args[0]

			out, err := DG.Engine.ListObjects(ctx(), bucket, objectstore.ListOptions{Prefix: prefix})
			if err != nil {
				return err
			}

			for _, obj := range out.Contents {
				if obj.Metadata["deltaglider-is-delta"] == "true" {
					fmt.Printf("%-10s  %s  (delta, ratio %s)\n", humanize.Bytes(uint64(obj.Size)), obj.Key, obj.Metadata["deltaglider-compression-ratio"])
					continue
				}
				fmt.Printf("%-10s  %s\n", humanize.Bytes(uint64(obj.Size)), obj.Key)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix to list under")
	return cmd
}
