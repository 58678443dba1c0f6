package commands

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <bucket> <key> <file>",
		Short: "Upload a file, delta-encoded against its group's reference when eligible",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, key, path := args[0], args[1], args[2]

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}

			out, err := DG.Engine.PutObject(ctx(), bucket, key, f, info.Size())
			if err != nil {
				return err
			}

			if out.IsDelta {
				fmt.Printf("uploaded %s (delta, %s -> %s, ratio %.3f)\n",
					key, humanize.Bytes(uint64(out.OriginalSize)), humanize.Bytes(uint64(out.StoredSize)), out.Ratio)
			} else {
				fmt.Printf("uploaded %s (direct, %s)\n", key, humanize.Bytes(uint64(out.StoredSize)))
			}
			return nil
		},
	}
}
