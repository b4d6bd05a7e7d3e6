package main

import "hibiki/cmd"

func main() {
	cmd.Execute()
}
