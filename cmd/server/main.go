// Package main is the entry point for the RAAVE outfit server.
//
// The binary is a small CLI: `serve` (the default) runs the API, the other
// commands are operator helpers. Configuration comes from flags, then
// environment variables, then an optional .env file in the working
// directory.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	app := newCLIApp(os.Stdin, os.Stdout)
	app.ErrWriter = os.Stderr
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
