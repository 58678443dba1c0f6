package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <bucket> <key>",
		Short: "Reconstruct an object and confirm its digest matches what was recorded at upload time",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, key := args[0], args[1]
			if err := DG.Engine.Verify(ctx(), bucket, key); err != nil {
				return err
			}
			fmt.Printf("%s: OK\n", key)
			return nil
		},
	}
}

func purgeGroupCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "purge-group <bucket> <prefix> <family>",
		Short: "Delete a group's reference and every delta and direct object sharing it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, prefix, family := args[0], args[1], args[2]

			n, err := DG.Engine.PurgeGroup(ctx(), bucket, prefix, family, force)
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d object(s)\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete the reference even if deltas still depend on it")
	return cmd
}

func purgeTempCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-temp <bucket>",
		Short: "Delete expired rehydrated temp copies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := args[0]
			n, err := DG.Engine.PurgeExpiredTemp(ctx(), bucket)
			if err != nil {
				return err
			}
			fmt.Printf("purged %d expired temp object(s)\n", n)
			return nil
		},
	}
}
