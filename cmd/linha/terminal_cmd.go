package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/linhaops/linha/internal/api"
	"github.com/linhaops/linha/internal/tui"
	"github.com/spf13/cobra"
)

var (
	terminalPost   string
	requireConfirm bool
	noAutoStart    bool
)

var terminalCmd = &cobra.Command{
	Use:   "terminal",
	Short: "Launch the kiosk terminal",
	Long:  `Launches the interactive kiosk terminal for the post this machine is installed at. When the backend is unreachable a local development backend is started automatically.`,
	RunE:  runTerminal,
}

func init() {
	terminalCmd.Flags().StringVar(&terminalPost, "posto", "", "Post this terminal is installed at (required)")
	terminalCmd.Flags().BoolVar(&requireConfirm, "confirmar-cracha", false, "Require a badge re-scan before a submission is accepted")
	terminalCmd.Flags().BoolVar(&noAutoStart, "no-backend", false, "Do not auto-start a local backend when unreachable")
	terminalCmd.MarkFlagRequired("posto")
}

func runTerminal(cmd *cobra.Command, args []string) error {
	if !isBackendRunning(apiAddr) {
		if noAutoStart {
			return fmt.Errorf("backend not reachable at %s", apiAddr)
		}
		fmt.Println("Backend not running. Starting local development backend...")
		if err := startBackend(); err != nil {
			return fmt.Errorf("failed to start backend: %w", err)
		}
	}

	app := tui.New(apiAddr, terminalPost, requireConfirm)
	if err := app.Run(); err != nil {
		return fmt.Errorf("terminal error: %w", err)
	}
	return nil
}

func isBackendRunning(addr string) bool {
	client := api.NewClient(addr)
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	ok, err := client.CheckHealth(ctx)
	return err == nil && ok
}

func startBackend() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	// Start "linha backend --seed" detached so it survives terminal exit.
	cmd := exec.Command(exe, "backend", "--seed")
	configureBackendProc(cmd)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return err
	}

	fmt.Print("   Waiting for backend...")
	for i := 0; i < 20; i++ {
		if isBackendRunning(apiAddr) {
			fmt.Println(" Done.")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" Timeout!")
	return fmt.Errorf("backend started but API not reachable at %s", apiAddr)
}
