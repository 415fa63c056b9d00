// Command trafficprep cleans a traffic-violation CSV and writes the
// analysis-ready table used by the dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	dferrors "github.com/paveg/trafficprep/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, diagnose(err))
		return 1
	}
	return 0
}

// processingFailure marks errors raised while the job was running.
type processingFailure struct {
	err error
}

func (e *processingFailure) Error() string { return e.err.Error() }
func (e *processingFailure) Unwrap() error { return e.err }

// diagnose renders err as the single line printed on failure.
func diagnose(err error) string {
	var notFound *dferrors.InputNotFoundError
	if errors.As(err, &notFound) {
		return fmt.Sprintf("Error: %s not found!", notFound.Path)
	}
	var failure *processingFailure
	if errors.As(err, &failure) {
		return fmt.Sprintf("Error during preprocessing: %v", failure.err)
	}
	return fmt.Sprintf("Error: %v", err)
}
