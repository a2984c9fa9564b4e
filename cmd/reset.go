package cmd

import (
	"fmt"

	"github.com/blacktop/tootshare/internal/share"
	"github.com/spf13/cobra"
)

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <post-id>",
		Short: "Forget a post's share result so it can be shared again",
		Long: "Clear the stored share url and error and move the post back to draft. " +
			"The next publish shares it again.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := store.SetStatus(ctx, id, share.StatusDraft); err != nil {
				return fmt.Errorf("reset post %d: %w", id, err)
			}
			if err := store.ClearShareResult(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared share state for post %d; moved back to draft\n", id)
			return nil
		},
	}
}
