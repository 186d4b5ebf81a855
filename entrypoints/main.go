package main

import (
	"github.com/Laisky/laisky-vfs/cmd"
)

func main() {
	cmd.Execute()
}
