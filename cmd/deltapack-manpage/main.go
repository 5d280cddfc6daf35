package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/arthur-debert/deltapack/cmd/deltapack"
	"github.com/arthur-debert/deltapack/internal/version"
)

func main() {
	rootCmd := deltapack.NewRootCmd()

	header := &doc.GenManHeader{
		Title:   "DELTAPACK",
		Section: "1",
		Source:  "deltapack " + version.Version,
		Manual:  "deltapack manual",
	}

	if err := doc.GenMan(rootCmd, header, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
