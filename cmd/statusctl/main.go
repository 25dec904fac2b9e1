package main

import "github.com/turtacn/statusservice/cmd/cli"

func main() {
	cli.Execute()
}
