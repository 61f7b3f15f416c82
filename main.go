package main

import "github.com/embtoolkit/elftoolchain-go/cmd"

func main() {
	cmd.Execute()
}
