// Command learnhubctl runs maintenance tasks against a LearnHub database.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
