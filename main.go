package main

import "memory-match-server/cli"

func main() {
	cli.Execute()
}
