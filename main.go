package main

import (
	"github.com/fatih/color"

	"tspm/cmd"
)

func main() {
	color.New(color.FgHiCyan).Println("tspm - tenant security posture manager")
	cmd.Execute()
}
