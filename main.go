package main

import "picking-control.com/picking-control/cmd"

func main() {
	cmd.Execute()
}
