package main

import (
	"os"

	"github.com/Lunar-Chipter/crystalconf/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
