package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "clipper",
	Short: "Local ad-creative generation toolkit",
	Long: `clipper inspects and exercises the local generation setup:
which GPU and model weights are installed, and which engine
chain each job type would run with right now.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
