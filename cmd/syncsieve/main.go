package main

import "github.com/forPelevin/syncsieve/internal/cli"

func main() {
	cli.Main()
}
