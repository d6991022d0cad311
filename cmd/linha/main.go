package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "linha",
	Short: "Linha - production floor kiosk terminal",
	Long:  `Linha is the production-floor kiosk suite: the operator terminal, the development backend and the record administration commands.`,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	apiAddr string
)

func init() {
	defaultAPI := os.Getenv("LINHA_API")
	if defaultAPI == "" {
		defaultAPI = "http://127.0.0.1:7467"
	}
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", defaultAPI, "Backend API address")

	// Add subcommands
	rootCmd.AddCommand(terminalCmd)
	rootCmd.AddCommand(backendCmd)
	rootCmd.AddCommand(recordsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
