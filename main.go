package main

import (
	"github.com/OpenCHAMI/patchbay/cmd"
)

func main() {
	cmd.Execute()
}
