package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nwscript-tools/nwsoutline/internal/cli"
)

func main() {
	// NWSOUTLINE_* settings may live in .env files; real environment
	// variables win since godotenv never overrides.
	for _, f := range []string{".env.local", ".env"} {
		_ = godotenv.Load(f)
	}

	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		cobra.CheckErr(err)
	}
}
