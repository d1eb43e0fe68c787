package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/arthur-debert/tmpfiles/cmd/tmpfiles"
	"github.com/arthur-debert/tmpfiles/pkg/display"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := tmpfiles.NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		// Reports already said what went wrong
		var exitErr *tmpfiles.ExitError
		if !errors.As(err, &exitErr) {
			renderer, rerr := display.NewRenderer(os.Stderr, display.Options{
				Format: display.FormatText,
				Color:  display.UseColor(os.Stderr, "auto"),
			})
			if rerr == nil {
				_ = renderer.RenderError(err)
			}
		}
		os.Exit(tmpfiles.ExitCode(err))
	}
}
