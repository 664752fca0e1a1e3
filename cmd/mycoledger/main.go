// Command mycoledger records forest mycorrhizal networks and their carbon
// and funding history.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"mycoledger/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
