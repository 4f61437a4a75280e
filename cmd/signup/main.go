package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"signup/internal/cli"
)

func main() {
	_ = godotenv.Load()
	if err := cli.Execute(); err != nil {
		if !errors.Is(err, cli.ErrAborted) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
