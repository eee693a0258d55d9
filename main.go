package main

import "github.com/merlin-pgm/merlin/cmd"

func main() {
	cmd.Execute()
}
