package main

import "github.com/stackgen-cli/compose-edit/cmd"

func main() {
	cmd.Execute()
}
