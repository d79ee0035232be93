package main

import "github.com/spec-kit/study-share/cmd/admin/commands"

func main() {
	commands.Execute()
}
