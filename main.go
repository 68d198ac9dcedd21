package main

import "github.com/jmehdipour/worktimer/cmd"

func main() {
	cmd.Execute()
}
