// Copyright 2026, Square, Inc.

package main

import (
	"fmt"
	"os"

	"github.com/square/vertigo/cli"
)

func main() {
	if err := cli.Run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if err != cli.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
