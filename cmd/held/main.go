package main

import (
	"context"
	"fmt"
	"os"

	// Profile timezones must resolve on hosts without zoneinfo.
	_ "time/tzdata"

	"github.com/heldhq/held/internal/infrastructure/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	root, closeContainer := cli.NewRootCmd()
	defer func() {
		if err := closeContainer(); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}()

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
