// Command permitctl runs a single export or result reconciliation from the
// command line, using the same configuration as the server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/permits/internal/core"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(loadRunner).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", exitMessage(err))
		stop()
		os.Exit(1)
	}
}

// exitMessage describes a run failure with its support code; other errors
// (flags, configuration) are printed as they are.
func exitMessage(err error) string {
	if core.IsUserFacing(err) {
		return core.FormatUserError(err)
	}
	return err.Error()
}
