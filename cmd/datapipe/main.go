package main

import "github.com/datapipe-project/datapipe/internal/cli"

func main() {
	cli.Execute()
}
