package main

import (
	"github.com/oneconcern/dagpipe/cmd/dagpipe/cmd"
)

func main() {
	cmd.Execute()
}
