// Command rulesctl manages rule sources and rulesets from the command line,
// working directly against the Scirius database.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
