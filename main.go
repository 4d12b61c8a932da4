// The main package for the stockwatch executable.
package main

import (
	"github.com/JakeFAU/stockwatch/cmd"
)

func main() {
	cmd.Execute()
}
