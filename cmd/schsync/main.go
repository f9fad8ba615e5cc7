package main

import "github.com/OpenTraceLab/schsync/cmd/schsync/cmd"

func main() {
	cmd.Execute()
}
