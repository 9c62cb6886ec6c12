package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cuemby/vibelab/pkg/client"
)

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"ws"},
	Short:   "Manage workspaces",
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		workspaces, err := c.ListWorkspaces(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFAMILY\tSTATE\tPARTICIPANT\tIDE URL")
		for _, ws := range workspaces {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				ws.ID, ws.Family, ws.State, ws.ParticipantEmail, ws.VSCodeURL)
		}
		return w.Flush()
	},
}

var workspaceSpinUpCmd = &cobra.Command{
	Use:   "spin-up",
	Short: "Launch new workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		family, _ := cmd.Flags().GetString("extension")
		autoAssign, _ := cmd.Flags().GetBool("auto-assign")

		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		result, err := c.SpinUp(cmd.Context(), count, family, autoAssign)
		if err != nil {
			return err
		}

		fmt.Printf("✓ Launched %d workspace(s)\n", len(result.Instances))
		for _, ws := range result.Instances {
			fmt.Printf("  %s (%s)\n", ws.ID, ws.Family)
		}
		if result.ParticipantsAssigned > 0 {
			fmt.Printf("✓ Assigned %d participant(s)\n", result.ParticipantsAssigned)
		}
		for ordinal, reason := range result.Errors {
			fmt.Fprintf(os.Stderr, "  instance %d failed: %s\n", ordinal, reason)
		}
		return nil
	},
}

var workspaceStopCmd = &cobra.Command{
	Use:   "stop ID",
	Short: "Stop a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		ws, err := c.StopWorkspace(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("✓ Workspace %s is %s\n", ws.ID, ws.State)
		return nil
	},
}

var workspaceStartCmd = &cobra.Command{
	Use:   "start ID",
	Short: "Start a stopped workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		ws, err := c.StartWorkspace(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("✓ Workspace %s is %s\n", ws.ID, ws.State)
		return nil
	},
}

var workspaceDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		if err := c.DeleteWorkspace(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Workspace %s deleted\n", args[0])
		return nil
	},
}

var workspaceUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a workspace's participant fields or notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch client.WorkspacePatch
		if cmd.Flags().Changed("name") {
			v, _ := cmd.Flags().GetString("name")
			patch.ParticipantName = &v
		}
		if cmd.Flags().Changed("email") {
			v, _ := cmd.Flags().GetString("email")
			patch.ParticipantEmail = &v
		}
		if cmd.Flags().Changed("notes") {
			v, _ := cmd.Flags().GetString("notes")
			patch.Notes = &v
		}
		if patch.ParticipantName == nil && patch.ParticipantEmail == nil && patch.Notes == nil {
			return fmt.Errorf("nothing to update: pass --name, --email, or --notes")
		}

		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		ws, err := c.UpdateWorkspace(cmd.Context(), args[0], patch)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Workspace %s updated\n", ws.ID)
		return nil
	},
}

var workspaceStopAllCmd = &cobra.Command{
	Use:   "stop-all",
	Short: "Stop every live workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		reasons, err := c.StopAll(cmd.Context())
		if err != nil {
			return err
		}
		if len(reasons) == 0 {
			fmt.Println("✓ All workspaces stopped")
			return nil
		}
		for id, reason := range reasons {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", id, reason)
		}
		return fmt.Errorf("%d workspace(s) failed to stop", len(reasons))
	},
}

var workspaceDeleteAllCmd = &cobra.Command{
	Use:   "delete-all",
	Short: "Delete every workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirmed, _ := cmd.Flags().GetBool("yes")
		if !confirmed {
			return fmt.Errorf("refusing to delete the fleet without --yes")
		}
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		reasons, err := c.DeleteAll(cmd.Context())
		if err != nil {
			return err
		}
		if len(reasons) == 0 {
			fmt.Println("✓ All workspaces deleted")
			return nil
		}
		for id, reason := range reasons {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", id, reason)
		}
		return fmt.Errorf("%d workspace(s) failed to delete", len(reasons))
	},
}

var orphanCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Manage cloud tasks not tracked by any workspace",
}

var orphanScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List untracked cloud tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		orphans, err := c.ScanOrphans(cmd.Context())
		if err != nil {
			return err
		}
		if len(orphans) == 0 {
			fmt.Println("No orphaned tasks")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TASK ID\tSTATUS\tSTARTED\tARN")
		for _, o := range orphans {
			started := ""
			if o.StartedAt != nil {
				started = o.StartedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.TaskID, o.Status, started, o.TaskARN)
		}
		return w.Flush()
	},
}

var orphanImportCmd = &cobra.Command{
	Use:   "import TASK_ARN TASK_ID",
	Short: "Adopt an untracked task into the fleet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		ws, err := c.ImportOrphan(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("✓ Imported as workspace %s\n", ws.ID)
		return nil
	},
}

var orphanTerminateCmd = &cobra.Command{
	Use:   "terminate TASK_ARN",
	Short: "Stop an untracked task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		if err := c.TerminateOrphan(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("✓ Task terminated")
		return nil
	},
}

var orphanTerminateAllCmd = &cobra.Command{
	Use:   "terminate-all",
	Short: "Stop every untracked task",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		terminated, reasons, err := c.TerminateAllOrphans(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("✓ Terminated %d task(s)\n", terminated)
		for arn, reason := range reasons {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", arn, reason)
		}
		return nil
	},
}

func init() {
	workspaceSpinUpCmd.Flags().Int("count", 1, "Number of workspaces to launch")
	workspaceSpinUpCmd.Flags().String("extension", "continue", "Image family")
	workspaceSpinUpCmd.Flags().Bool("auto-assign", false, "Assign unassigned participants to the new workspaces")
	workspaceDeleteAllCmd.Flags().Bool("yes", false, "Confirm fleet deletion")
	workspaceUpdateCmd.Flags().String("name", "", "Participant display name")
	workspaceUpdateCmd.Flags().String("email", "", "Participant email")
	workspaceUpdateCmd.Flags().String("notes", "", "Operator notes")

	orphanCmd.AddCommand(orphanScanCmd)
	orphanCmd.AddCommand(orphanImportCmd)
	orphanCmd.AddCommand(orphanTerminateCmd)
	orphanCmd.AddCommand(orphanTerminateAllCmd)

	workspaceCmd.AddCommand(workspaceListCmd)
	workspaceCmd.AddCommand(workspaceSpinUpCmd)
	workspaceCmd.AddCommand(workspaceStopCmd)
	workspaceCmd.AddCommand(workspaceStartCmd)
	workspaceCmd.AddCommand(workspaceDeleteCmd)
	workspaceCmd.AddCommand(workspaceUpdateCmd)
	workspaceCmd.AddCommand(workspaceStopAllCmd)
	workspaceCmd.AddCommand(workspaceDeleteAllCmd)
	workspaceCmd.AddCommand(orphanCmd)
}
