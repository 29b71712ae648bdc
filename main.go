package main

import (
	"fmt"
	"os"

	"github.com/Broccolito/PilotR/cmd/root"
)

func main() {
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
