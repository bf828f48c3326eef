package main

import "github.com/aalvaropc/doclane/internal/cli"

func main() {
	cli.Execute()
}
