package main

import (
	"fmt"

	"github.com/metalagman/quest/internal/runlog"
	"github.com/spf13/cobra"
)

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete every recorded run and its events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			storeDB, _, closeFn, err := openRunLog()
			if err != nil {
				return err
			}
			defer closeFn()

			if err := runlog.NewStore(storeDB).PurgeAll(cmd.Context()); err != nil {
				return fmt.Errorf("purge failed: %w", err)
			}
			fmt.Println("Run log purged.")
			return nil
		},
	}
}
