package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/vibelab/pkg/llm"
	"github.com/cuemby/vibelab/pkg/log"
	"github.com/cuemby/vibelab/pkg/session"
	"github.com/cuemby/vibelab/pkg/tools"
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
	Use:   "vibelab-agent",
	Short: "In-workspace coding agent",
	Long: `vibelab-agent runs inside a workspace container. It serves the
agent WebSocket, drives the model over Bedrock, and executes sandboxed
tools against the project directory.

Model selection: BEDROCK_MODEL_ID overrides; otherwise the default model
is picked with an inference-profile prefix derived from AWS_REGION.`,
	Version: Version,
	RunE:    runAgent,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"vibelab-agent version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.Flags().String("listen", ":8081", "WebSocket listen address")
	rootCmd.Flags().String("project-root", "/workspace/project", "Project directory the tools operate on")
	rootCmd.Flags().Bool("json-log", true, "Log as JSON")
}

func runAgent(cmd *cobra.Command, args []string) error {
	listen, _ := cmd.Flags().GetString("listen")
	projectRoot, _ := cmd.Flags().GetString("project-root")
	jsonLog, _ := cmd.Flags().GetBool("json-log")

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: jsonLog})
	logger := log.WithComponent("main")

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "/workspace/data"
	}
	historyPath := filepath.Join(dataDir, "chat-history.json")

	modelID := llm.ResolveModelID(os.Getenv("BEDROCK_MODEL_ID"), os.Getenv("AWS_REGION"))
	caller, err := llm.NewClient(cmd.Context(), modelID)
	if err != nil {
		return fmt.Errorf("failed to initialize model client: %w", err)
	}

	registry, err := tools.New(projectRoot)
	if err != nil {
		return fmt.Errorf("failed to initialize tools: %w", err)
	}
	defer registry.StopPreview()

	mux := http.NewServeMux()
	mux.Handle("/ws", session.NewServer(caller, registry, historyPath))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info().
		Str("listen", listen).
		Str("project_root", projectRoot).
		Str("model", modelID).
		Msg("Agent is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("Shutting down")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	return server.Close()
}
