package main

import "github.com/taskboard/taskboard-cli/cmd/taskboard/cmd"

func main() {
	cmd.Execute()
}
