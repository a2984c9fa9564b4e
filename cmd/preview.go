package cmd

import (
	"fmt"
	"unicode/utf8"

	"github.com/blacktop/tootshare/internal/share"
	"github.com/spf13/cobra"
)

func newPreviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <post-id>",
		Short: "Show the status and images that would be shared, without posting",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreview,
	}
}

func runPreview(cmd *cobra.Command, args []string) error {
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

	post, err := store.Post(ctx, id)
	if err != nil {
		return err
	}

	// No remote: preview never uploads or posts.
	composer := share.NewComposer(cfg.Options(), store, store, nil, share.Hooks{})
	out := cmd.OutOrStdout()

	text := composer.StatusText(post)
	fmt.Fprintf(out, "[preview] status (%d chars):\n%s\n", utf8.RuneCountInString(text), text)
	if cfg.ContentWarning && post.SupportsCustomFields && post.ContentWarning != "" {
		fmt.Fprintf(out, "[preview] content warning: %s\n", share.PlainText(post.ContentWarning))
	}

	images, err := composer.Images(ctx, post)
	if err != nil {
		return fmt.Errorf("resolve images: %w", err)
	}
	if len(images) == 0 {
		fmt.Fprintln(out, "[preview] no images")
	}
	for _, img := range images {
		file, err := composer.Uploader().Prepare(ctx, img)
		if err != nil {
			fmt.Fprintf(out, "[preview] image %d (alt: %q): would be skipped: %v\n", img.ID, img.Alt, err)
			continue
		}
		fmt.Fprintf(out, "[preview] image %d (alt: %q): %s [%s]\n", img.ID, img.Alt, file.Path, file.MimeType)
	}

	stored, err := store.ShareResult(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case stored.URL != "":
		fmt.Fprintf(out, "[preview] already shared: %s\n", stored.URL)
	case stored.Error != "":
		fmt.Fprintf(out, "[preview] last attempt failed: %s\n", stored.Error)
	}
	return nil
}
