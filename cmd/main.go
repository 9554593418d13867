package main

import (
	"fmt"
	"os"

	"github.com/themodernway/themodernway-server-core-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vfsctl:", err)
		os.Exit(1)
	}
}
