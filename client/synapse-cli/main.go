package main

import "Synapse/client/synapse-cli/cmd"

func main() {
	cmd.Execute()
}
