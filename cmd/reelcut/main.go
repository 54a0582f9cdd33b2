package main

import "reelcut/internal/cli"

func main() {
	cli.Execute()
}
