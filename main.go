package main

import (
	"os"

	"github.com/scan-io-git/lintgraph/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
