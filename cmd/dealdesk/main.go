// Command dealdesk works on dataset CSV files from the terminal: check an
// import, list and filter records, edit one record, and show the stage board.
package main

import (
	"fmt"
	"os"

	_ "github.com/JonMunkholm/dealdesk/internal/core/tables" // Register built-in datasets
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
