package main

import "github.com/healthrelay/healthrelay-cli/internal/cli"

func main() {
	cli.Execute()
}
