package main

import "github.com/fbettag/sgpt/internal/cli"

func main() {
	cli.Execute()
}
