package main

import (
	"context"
	"errors"
	"os"

	"devbox/internal/errs"
)

func main() {
	rootCmd, cmdCtx := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			cmdCtx.renderer().Error(err)
		}
		os.Exit(errs.GetExitCode(err))
	}
	os.Exit(cmdCtx.exitCode)
}
