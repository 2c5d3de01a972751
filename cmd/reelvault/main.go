// Command reelvault archives saved short-form posts: a daemon that
// downloads, transcribes, OCRs, and autotags them, and a CLI over the
// resulting archive.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// A canceled context means an orderly shutdown, not a failure
		// worth printing.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
