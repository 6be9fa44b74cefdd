package main

import "github.com/agusx1211/loopdash/internal/cli"

func main() {
	cli.Execute()
}
