/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blacktop/tootshare/internal/config"
	"github.com/blacktop/tootshare/internal/logutil"
	"github.com/blacktop/tootshare/internal/store/sqlite"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	databaseFlag string
	verboseFlag  bool

	cfg config.Config
)

// Execute runs the root command.
func Execute() error {
	return newRootCommand().Execute()
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tootshare",
		Short: "Share blog posts to Mastodon",
		Long: "tootshare composes a Mastodon status for a blog post, uploads its images " +
			"and posts the status once. Posts and media live in a local SQLite database.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
		Example: `  tootshare import posts.yaml
  tootshare preview 42
  tootshare publish 42
  tootshare reset 42`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (default $TOOTSHARE_CONFIG)")
	cmd.PersistentFlags().StringVar(&databaseFlag, "database", "", "Path to the SQLite database (overrides config)")
	cmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "V", false, "Enable debug logging")

	cmd.AddCommand(
		newPublishCommand(),
		newPreviewCommand(),
		newResetCommand(),
		newImportCommand(),
		newCompletionCommand(),
	)

	return cmd
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if databaseFlag != "" {
		loaded.Database = databaseFlag
	}
	cfg = loaded

	logutil.SetVerbose(verboseFlag || cfg.Verbose)
	logutil.SetDebugResponses(cfg.DebugLogging)
	return nil
}

func openStore(ctx context.Context) (*sqlite.Store, error) {
	store, err := sqlite.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Database, err)
	}
	return store, nil
}

func parsePostID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid post id %q", arg)
	}
	return id, nil
}
