// The main package for the site-crawler executable.
package main

import (
	"github.com/JakeFAU/site-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
