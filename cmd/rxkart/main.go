package main

import "github.com/rxkart/rxkart-go/cmd/rxkart/cmd"

func main() {
	cmd.Execute()
}
