package main

import "github.com/user/bookmarksync/cmd"

func main() {
	cmd.Execute()
}
