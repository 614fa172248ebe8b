package main

import "github.com/OpenTraceLab/OpenTraceLVS/cmd/l2n/cmd"

func main() {
	cmd.Execute()
}
