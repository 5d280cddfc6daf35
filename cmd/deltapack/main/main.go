package main

import (
	"os"

	"github.com/arthur-debert/deltapack/cmd/deltapack"
)

func main() {
	rootCmd := deltapack.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		deltapack.ReportError(os.Stderr, err)
		os.Exit(1)
	}
}
