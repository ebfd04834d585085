package main

import "github.com/KaramelBytes/nestloom-cli/cmd"

func main() {
	cmd.Execute()
}
