package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/agent-portal-api/internal/lifecycle"
	"github.com/noah-isme/agent-portal-api/internal/models"
	"github.com/noah-isme/agent-portal-api/pkg/processdef"
)

func newProcessCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Inspect and import process definitions",
	}

	cmd.AddCommand(
		newProcessValidateCmd(),
		newProcessJourneyCmd(),
		newProcessImportCmd(app),
	)

	return cmd
}

func loadProcess(path string) (*models.Process, error) {
	process, err := processdef.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.ValidateProcess(process); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return process, nil
}

func newProcessValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a process definition and print its statuses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			process, err := loadProcess(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Process %s (%s) is valid.\n\n", process.ID, process.Name)

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STAGE\tSTATUS\tMILESTONES\tREQUIRED")
			for _, stage := range process.Stages {
				for _, binding := range stage.Statuses {
					required := 0
					for _, m := range binding.Milestones {
						if m.Required {
							required++
						}
					}
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", stage.Name, binding.Status.ID, len(binding.Milestones), required)
				}
			}
			return tw.Flush()
		},
	}
}

func newProcessJourneyCmd() *cobra.Command {
	var (
		statusID  string
		cancelled bool
		rejected  bool
	)

	cmd := &cobra.Command{
		Use:   "journey FILE",
		Short: "Preview the journey trail of an application sitting at a status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			process, err := loadProcess(args[0])
			if err != nil {
				return err
			}
			if statusID == "" {
				statusID = process.FirstStatusID()
			}

			app := &models.Application{
				ID:              "preview",
				ProcessID:       process.ID,
				CurrentStatusID: statusID,
				IsCancelled:     cancelled,
				IsRejected:      rejected,
			}
			views, err := lifecycle.Project(process, app)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, view := range views {
				line := fmt.Sprintf("%d. %-10s %s", i+1, strings.ToUpper(string(view.State)), view.Name)
				if view.StatusLabel != "" {
					line += " (" + view.StatusLabel + ")"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&statusID, "status", "", "current status id (defaults to the first status)")
	cmd.Flags().BoolVar(&cancelled, "cancelled", false, "preview a cancelled application")
	cmd.Flags().BoolVar(&rejected, "rejected", false, "preview a rejected application")
	cmd.MarkFlagsMutuallyExclusive("cancelled", "rejected")

	return cmd
}

func newProcessImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Validate a process definition and store it in the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			process, err := loadProcess(args[0])
			if err != nil {
				return err
			}
			process.UpdatedAt = app.now()

			return app.withBackend(cmd.Context(), func(b *Backend) error {
				if err := b.Processes.Upsert(cmd.Context(), process); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported process %s with %d stages.\n", process.ID, len(process.Stages))
				return nil
			})
		},
	}
}
