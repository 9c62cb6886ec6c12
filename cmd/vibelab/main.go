package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuemby/vibelab/pkg/client"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vibelab",
	Short: "Vibelab - fleet control plane for cloud coding workspaces",
	Long: `Vibelab launches and manages a fleet of containerized coding
workspaces on AWS, routes browser traffic to them through a shared
load balancer and CDN, and hands out per-participant credentials.

Run 'vibelab server' to start the control plane, then use the
workspace, participant, and setup commands against it.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Vibelab version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("server", "http://localhost:8090", "Control plane address")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(participantCmd)
	rootCmd.AddCommand(setupCmd)
}

// tokenPath is where the admin bearer token is cached between CLI runs.
func tokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".vibelab", "token"), nil
}

func saveToken(token string) error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

func loadToken() string {
	if token := os.Getenv("VIBELAB_TOKEN"); token != "" {
		return token
	}
	path, err := tokenPath()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// apiClient builds a client from the --server flag and the cached token.
func apiClient(cmd *cobra.Command) (*client.Client, error) {
	addr, _ := cmd.Flags().GetString("server")
	token := loadToken()
	if token == "" {
		return nil, fmt.Errorf("not logged in, run 'vibelab login' first")
	}
	return client.NewWithToken(addr, token), nil
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the control plane",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("server")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("VIBELAB_ADMIN_PASSWORD")
		}
		if password == "" {
			return fmt.Errorf("--password or VIBELAB_ADMIN_PASSWORD is required")
		}

		c := client.New(addr)
		if err := c.Login(context.Background(), password); err != nil {
			return err
		}
		if err := saveToken(c.Token()); err != nil {
			return err
		}
		fmt.Println("✓ Logged in")
		return nil
	},
}

func init() {
	loginCmd.Flags().String("password", "", "Admin password")
}
