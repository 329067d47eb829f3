package main

import "github.com/notargets/yada/cmd"

func main() {
	cmd.Execute()
}
