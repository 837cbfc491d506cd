// Command ferroterm wraps a shell in a GPU-fed terminal core and an
// in-process AI streaming path.
package main

import (
	"fmt"
	"os"

	"github.com/ferroterm/ferroterm/internal/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
