package main

import (
	"github.com/praetorian-inc/asea-lza/cmd"
)

func main() {
	cmd.Execute()
}
