package main

import (
	"os"

	"github.com/burl-vcs/burl/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Stdout, os.Stderr, os.Args[1:]))
}
