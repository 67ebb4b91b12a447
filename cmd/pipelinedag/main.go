// # cmd/pipelinedag/main.go
package main

import (
	"os"

	"pipelinedag/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
