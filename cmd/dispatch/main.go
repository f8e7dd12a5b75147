// Command dispatch runs the support desk: an interactive chat loop, one-shot
// questions, archive inspection and the knowledge indexer.
package main

import (
	"os"

	"github.com/sweetpotato0/ai-dispatch/pkg/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Logger().Error("dispatch failed", "error", err)
		os.Exit(1)
	}
}
