package main

import "eduquest/cmd"

func main() {
	cmd.Execute()
}
