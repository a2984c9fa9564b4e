package cmd

import (
	"fmt"
	"io"

	"github.com/blacktop/tootshare/internal/share"
	"github.com/blacktop/tootshare/internal/share/mastodon"
	"github.com/spf13/cobra"
)

func newPublishCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "publish <post-id>",
		Short: "Publish a post and share it to Mastodon",
		Args:  cobra.ExactArgs(1),
		RunE:  runPublish,
	}
}

func runPublish(cmd *cobra.Command, args []string) error {
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

	from, err := store.SetStatus(ctx, id, share.StatusPublish)
	if err != nil {
		return fmt.Errorf("publish post %d: %w", id, err)
	}
	post, err := store.Post(ctx, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	opts := cfg.Options()
	client, err := mastodon.New(mastodon.Config{Server: opts.Instance, AccessToken: opts.AccessToken})
	if err != nil {
		fmt.Fprintf(out, "published post %d; not shared: %v\n", id, err)
		return nil
	}

	composer := share.NewComposer(opts, store, store, client, share.Hooks{})
	outcome := composer.ComposeAndPost(ctx, post, share.Transition{From: from, To: share.StatusPublish})
	return report(out, id, outcome)
}

func report(out io.Writer, id int64, outcome share.Outcome) error {
	switch outcome.State {
	case share.StateShared:
		fmt.Fprintf(out, "shared post %d: %s\n", id, outcome.Result.URL)
	case share.StateAlreadyShared:
		fmt.Fprintf(out, "post %d already shared: %s\n", id, outcome.Result.URL)
	case share.StateSkipped:
		fmt.Fprintf(out, "post %d not shared: %s\n", id, outcome.Reason)
	case share.StateFailed:
		return fmt.Errorf("share post %d: %s", id, outcome.Result.Error)
	}
	return nil
}
