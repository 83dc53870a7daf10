// Package main is the entry of the mmusim command.
package main

import "github.com/sarchlab/mmusim/mmusim/cmd"

func main() {
	cmd.Execute()
}
