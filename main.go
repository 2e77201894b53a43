package main

import "github.com/KaramelBytes/exodash/cmd"

func main() {
	cmd.Execute()
}
