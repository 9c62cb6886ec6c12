package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "One-shot cloud bring-up",
}

var setupStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cloud identity and bring-up state",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		status, err := c.GetSetupStatus(cmd.Context())
		if err != nil {
			return err
		}

		if status.Identity != nil {
			fmt.Printf("Account:   %s (%s)\n", status.Identity.AccountID, status.Identity.Region)
		} else {
			fmt.Printf("Identity:  unavailable (%s)\n", status.IdentityError)
		}
		fmt.Printf("Edge:      %s\n", readiness(status.EdgeReady))
		fmt.Printf("Registry:  %s\n", readiness(status.RegistryReady))
		if cfg := status.Config; cfg != nil {
			fmt.Printf("Cluster:   %s\n", cfg.Cluster)
			fmt.Printf("Subnets:   %s\n", strings.Join(cfg.Subnets, ", "))
			if cfg.CDNDomain != "" {
				fmt.Printf("CDN:       https://%s\n", cfg.CDNDomain)
			}
			if cfg.RegistryURI != "" {
				fmt.Printf("Registry:  %s\n", cfg.RegistryURI)
			}
		}
		return nil
	},
}

func readiness(ready bool) string {
	if ready {
		return "ready"
	}
	return "not configured"
}

var setupEdgeCmd = &cobra.Command{
	Use:   "edge",
	Short: "Create or discover the shared load balancer and CDN",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		cfg, err := c.SetupEdge(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("✓ Load balancer: %s\n", cfg.LoadBalancerDNS)
		fmt.Printf("✓ CDN:           https://%s\n", cfg.CDNDomain)
		return nil
	},
}

var setupRegistryCmd = &cobra.Command{
	Use:   "registry [NAME]",
	Short: "Create or discover the image repository",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		uri, err := c.SetupRegistry(cmd.Context(), name)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Repository: %s\n", uri)
		return nil
	},
}

func init() {
	setupCmd.AddCommand(setupStatusCmd)
	setupCmd.AddCommand(setupEdgeCmd)
	setupCmd.AddCommand(setupRegistryCmd)
}
