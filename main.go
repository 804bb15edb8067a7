package main

import "github.com/timvw/judge-patrol/cmd"

func main() {
	cmd.Execute()
}
