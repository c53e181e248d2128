package main

import (
	"os"

	"printvault/cmd/printvault/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
