package main

import (
	"kvblast/cmd"
)

func main() {
	cmd.Execute()
}
