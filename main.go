package main

import (
	"os"

	"github.com/blacktop/tootshare/cmd"
	"github.com/blacktop/tootshare/internal/logutil"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logutil.Errorf("%v", err)
		os.Exit(1)
	}
}
