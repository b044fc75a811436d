package main

import "rodoku/cmd"

func main() {
	cmd.Execute()
}
