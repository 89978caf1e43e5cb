package main

import "skillchisel/internal/cli"

func main() {
	cli.LoadEnvFile()
	Execute()
}
