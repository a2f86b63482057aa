package main

import (
	"fmt"
	"os"

	"nodestore/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "nodestore: %v\n", err)
		os.Exit(1)
	}
}
