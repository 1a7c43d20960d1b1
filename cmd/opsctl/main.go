package main

import "opsboard/api/cmd/opsctl/cmd"

func main() {
	cmd.Execute()
}
