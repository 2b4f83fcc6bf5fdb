// Command talentflow is the TalentFlow command-line client.
package main

import (
	"os"

	"github.com/kilupskalvis/talentflow/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
