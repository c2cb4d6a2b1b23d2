package main

import "lighter-api/cmd/lighter-cli/cmd"

func main() {
	cmd.Execute()
}
