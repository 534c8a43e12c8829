// Command leafrender drives the leaf template engine from the shell: lex a
// template, render one, or report how many ASTs a cache holds after
// rendering a set of templates.
package main

import (
	"fmt"
	"os"

	"github.com/leafkit/leaf/cmd/leafrender/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
