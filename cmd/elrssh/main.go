package main

//go-build: CGO_ENABLED=0

import (
	"github.com/rcwire/elrsctl/pkg/cli/sh"

	_ "github.com/rcwire/elrsctl/pkg/cli/cmds/radio"
)

func main() {
	sh.Main()
}
