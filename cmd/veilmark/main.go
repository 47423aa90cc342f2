package main

import "github.com/ppiankov/veilmark/internal/cli"

func main() {
	cli.Execute()
}
