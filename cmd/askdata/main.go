// Command askdata answers natural-language questions about two tabular
// datasets.
package main

import (
	"os"

	"github.com/spektr-org/askdata/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
