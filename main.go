package main

import "tracegen/cmd"

func main() {
	cmd.Execute()
}
