package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cuemby/vibelab/pkg/client"
)

var participantCmd = &cobra.Command{
	Use:   "participant",
	Short: "Manage participants",
}

var participantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List participants",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		participants, err := c.ListParticipants(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tEMAIL\tTOKEN\tWORKSPACE")
		for _, p := range participants {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				p.ID, p.Name, p.Email, p.AccessToken, p.WorkspaceID)
		}
		return w.Flush()
	},
}

// readParticipantCSV parses name,email[,notes] rows. A header row is
// skipped when the first cell is literally "name".
func readParticipantCSV(path string) ([]client.ParticipantImport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var entries []client.ParticipantImport
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		if len(record) < 2 {
			continue
		}
		if record[0] == "name" && len(entries) == 0 {
			continue
		}
		entry := client.ParticipantImport{Name: record[0], Email: record[1]}
		if len(record) > 2 {
			entry.Notes = record[2]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

var participantImportCmd = &cobra.Command{
	Use:   "import -f FILE",
	Short: "Bulk-import participants from a CSV file",
	Long: `Import participants from a CSV file of name,email[,notes] rows.
Each imported participant gets a generated access token and password,
printed once; they are not recoverable afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		entries, err := readParticipantCSV(path)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("no participants found in %s", path)
		}

		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		imported, failures, err := c.ImportParticipants(cmd.Context(), entries)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tEMAIL\tTOKEN\tPASSWORD")
		for _, p := range imported {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.Email, p.AccessToken, p.Password)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		for email, reason := range failures {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", email, reason)
		}
		fmt.Printf("✓ Imported %d participant(s)\n", len(imported))
		return nil
	},
}

var participantAddCmd = &cobra.Command{
	Use:   "add NAME EMAIL [NOTES]",
	Short: "Create one participant",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		notes := ""
		if len(args) > 2 {
			notes = args[2]
		}
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		p, password, err := c.CreateParticipant(cmd.Context(), args[0], args[1], notes)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Created %s (%s)\n", p.Name, p.Email)
		fmt.Printf("  Access token: %s\n", p.AccessToken)
		fmt.Printf("  Password:     %s\n", password)
		return nil
	},
}

var participantDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a participant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		if err := c.DeleteParticipant(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("✓ Participant deleted")
		return nil
	},
}

var participantRegenerateCmd = &cobra.Command{
	Use:   "regenerate-password ID",
	Short: "Issue a fresh password for a participant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		password, err := c.RegeneratePassword(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("✓ New password: %s\n", password)
		return nil
	},
}

var participantAssignCmd = &cobra.Command{
	Use:   "assign PARTICIPANT_ID WORKSPACE_ID",
	Short: "Bind a participant to a workspace",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		if err := c.AssignParticipant(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Println("✓ Assigned")
		return nil
	},
}

var participantUnassignCmd = &cobra.Command{
	Use:   "unassign PARTICIPANT_ID",
	Short: "Free a participant's workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		if err := c.UnassignParticipant(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("✓ Unassigned")
		return nil
	},
}

var participantAutoAssignCmd = &cobra.Command{
	Use:   "auto-assign",
	Short: "Pair unassigned participants with free workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := apiClient(cmd)
		if err != nil {
			return err
		}
		assigned, err := c.AutoAssign(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("✓ Assigned %d participant(s)\n", assigned)
		return nil
	},
}

func init() {
	participantImportCmd.Flags().StringP("file", "f", "", "CSV file of name,email[,notes] rows (required)")
	_ = participantImportCmd.MarkFlagRequired("file")

	participantCmd.AddCommand(participantListCmd)
	participantCmd.AddCommand(participantImportCmd)
	participantCmd.AddCommand(participantAddCmd)
	participantCmd.AddCommand(participantDeleteCmd)
	participantCmd.AddCommand(participantRegenerateCmd)
	participantCmd.AddCommand(participantAssignCmd)
	participantCmd.AddCommand(participantUnassignCmd)
	participantCmd.AddCommand(participantAutoAssignCmd)
}
