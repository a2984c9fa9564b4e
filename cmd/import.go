package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file.yaml]",
		Short: "Import posts and media from YAML",
		Long:  "Import posts and media from a YAML file, or from stdin when data is piped in.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runImport,
		Example: `  tootshare import posts.yaml
  cat posts.yaml | tootshare import`,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var (
		r       io.Reader
		baseDir string
	)
	switch {
	case len(args) == 1:
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()
		r = f
		baseDir = filepath.Dir(args[0])
	default:
		stdin := cmd.InOrStdin()
		if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return errors.New("provide a YAML file or pipe one on stdin")
		}
		r = stdin
		if wd, err := os.Getwd(); err == nil {
			baseDir = wd
		}
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Import(ctx, r, baseDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d posts and %d media\n", stats.Posts, stats.Media)
	return nil
}
