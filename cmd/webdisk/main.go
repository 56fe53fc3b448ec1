package main

import "github.com/marmos91/webdisk/cmd/webdisk/commands"

func main() {
	commands.Execute()
}
