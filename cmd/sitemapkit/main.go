package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"sitemapkit/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError writes err and any suggested fixes it carries.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	var se *errors.SitemapError
	if !stderrors.As(err, &se) {
		return
	}
	for _, fix := range se.SuggestedFixes {
		switch fix.Type {
		case errors.RunCommand:
			fmt.Fprintf(w, "  hint: %s (run: %s)\n", fix.Description, fix.Command)
		case errors.EditConfig:
			fmt.Fprintf(w, "  hint: %s (config: %s)\n", fix.Description, fix.Key)
		}
	}
}
