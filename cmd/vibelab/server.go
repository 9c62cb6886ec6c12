package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/vibelab/pkg/api"
	"github.com/cuemby/vibelab/pkg/cloud"
	"github.com/cuemby/vibelab/pkg/edge"
	"github.com/cuemby/vibelab/pkg/log"
	"github.com/cuemby/vibelab/pkg/metrics"
	"github.com/cuemby/vibelab/pkg/orchestrator"
	"github.com/cuemby/vibelab/pkg/reconciler"
	"github.com/cuemby/vibelab/pkg/storage"
	"github.com/cuemby/vibelab/pkg/types"
)

// serverConfig is the YAML configuration for the control plane.
type serverConfig struct {
	Listen  string `yaml:"listen"`
	DataDir string `yaml:"data_dir"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`

	Cloud struct {
		Fake    bool   `yaml:"fake"`
		ModelID string `yaml:"model_id"`
	} `yaml:"cloud"`

	Cluster struct {
		Region        string   `yaml:"region"`
		Cluster       string   `yaml:"cluster"`
		TaskFamily    string   `yaml:"task_family"`
		VPCID         string   `yaml:"vpc_id"`
		Subnets       []string `yaml:"subnets"`
		SecurityGroup string   `yaml:"security_group"`
	} `yaml:"cluster"`
}

func loadServerConfig(path string) (*serverConfig, error) {
	cfg := &serverConfig{
		Listen:  ":8090",
		DataDir: "./vibelab-data",
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the fleet control plane",
	Long: `Run the control plane: the REST API, the background reconciler,
and the metrics collector, backed by a JSON snapshot store and the
configured AWS account.

Pass --fake-cloud to run against an in-memory cloud for local
development; no AWS credentials are needed in that mode.`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringP("config", "c", "", "YAML config file")
	serverCmd.Flags().String("listen", "", "Listen address (overrides config)")
	serverCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	serverCmd.Flags().Bool("fake-cloud", false, "Use an in-memory cloud instead of AWS")
}

func runServer(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadServerConfig(configPath)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("listen"); v != "" {
		cfg.Listen = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetBool("fake-cloud"); v {
		cfg.Cloud.Fake = true
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})
	metrics.SetVersion(Version)
	logger := log.WithComponent("main")

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	// Seed the identity half of the cluster config. Edge and registry
	// handles stay as persisted.
	if cfg.Cluster.Cluster != "" {
		err := store.UpdateConfig(func(c *types.ClusterConfig) {
			c.Region = cfg.Cluster.Region
			c.Cluster = cfg.Cluster.Cluster
			c.TaskFamily = cfg.Cluster.TaskFamily
			c.VPCID = cfg.Cluster.VPCID
			c.Subnets = cfg.Cluster.Subnets
			c.SecurityGroup = cfg.Cluster.SecurityGroup
		})
		if err != nil {
			return fmt.Errorf("failed to seed cluster config: %w", err)
		}
	}

	modelID := cfg.Cloud.ModelID
	if v := os.Getenv("BEDROCK_MODEL_ID"); v != "" {
		modelID = v
	}

	var capability cloud.Capability
	if cfg.Cloud.Fake {
		logger.Warn().Msg("Running against the in-memory cloud")
		capability = cloud.NewFake()
	} else {
		capability, err = cloud.NewAWS(cmd.Context(), store.Config, modelID)
		if err != nil {
			return fmt.Errorf("failed to initialize cloud: %w", err)
		}
	}

	e := edge.New(capability, store)
	orch := orchestrator.New(store, capability, e)

	collector := metrics.NewCollector(store)
	collector.Start()

	recon := reconciler.NewReconciler(orch)
	recon.Start()

	apiServer := api.NewServer(store, orch, e, capability, Version)
	errCh := make(chan error, 1)
	go func() {
		if err := apiServer.Start(cfg.Listen); err != nil {
			errCh <- fmt.Errorf("API server error: %w", err)
		}
	}()

	logger.Info().
		Str("listen", cfg.Listen).
		Str("data_dir", cfg.DataDir).
		Str("version", Version).
		Msg("Control plane is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("Shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("API server failed")
	}

	recon.Stop()
	collector.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	return nil
}
