package main

import "github.com/courserate-sg/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
