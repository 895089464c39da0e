package main

import "github.com/notargets/godg/cmd"

func main() {
	cmd.Execute()
}
