package main

import (
	"os"

	"github.com/fidokit/nodediff/internal/cli"
)

func main() {
	code, _ := cli.Run(os.Args, nil)
	os.Exit(code)
}
