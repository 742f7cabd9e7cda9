package main

import "github.com/lensview/lensview/internal/cli"

func main() {
	cli.Execute()
}
