package main

import "indian-airlines-ivr/internal/cli"

func main() {
	cli.Execute()
}
