package main

import (
	"os"

	"github.com/stridelake/stridelake/internal/cli"
)

func main() {
	os.Exit(int(cli.Run()))
}
