package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/noah-isme/agent-portal-api/internal/lifecycle"
	"github.com/noah-isme/agent-portal-api/internal/models"
)

func newApplicationCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "application",
		Short: "Seed applications and institution completion flags",
	}

	cmd.AddCommand(
		newApplicationCreateCmd(app),
		newApplicationFlagsCmd(app),
	)

	return cmd
}

func newApplicationCreateCmd(app *App) *cobra.Command {
	var (
		id        string
		processID string
		applicant string
		channel   string
		statusID  string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an application at the first (or given) status of a process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			referral := models.ReferralChannel(strings.ToUpper(channel))
			if referral != models.ReferralChannelAgent && referral != models.ReferralChannelDirect {
				return fmt.Errorf("--channel must be AGENT or DIRECT, got %q", channel)
			}
			if id == "" {
				id = uuid.NewString()
			}

			return app.withBackend(cmd.Context(), func(b *Backend) error {
				process, err := b.Processes.GetProcess(cmd.Context(), processID)
				if err != nil {
					return fmt.Errorf("load process %s: %w", processID, err)
				}
				if statusID == "" {
					statusID = process.FirstStatusID()
				}
				if _, ok := lifecycle.Locate(process, statusID); !ok {
					return fmt.Errorf("status %q is not part of process %s", statusID, processID)
				}

				record := &models.Application{
					ID:              id,
					ProcessID:       processID,
					ApplicantName:   applicant,
					ReferralChannel: referral,
					CurrentStatusID: statusID,
					UpdatedAt:       app.now(),
				}
				if err := b.Applications.Create(cmd.Context(), record); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created application %s at status %s.\n", record.ID, record.CurrentStatusID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "application id (generated when empty)")
	cmd.Flags().StringVar(&processID, "process", "", "process id")
	cmd.Flags().StringVar(&applicant, "applicant", "", "applicant name")
	cmd.Flags().StringVar(&channel, "channel", string(models.ReferralChannelAgent), "referral channel (AGENT or DIRECT)")
	cmd.Flags().StringVar(&statusID, "status", "", "initial status id")
	_ = cmd.MarkFlagRequired("process")
	_ = cmd.MarkFlagRequired("applicant")

	return cmd
}

func newApplicationFlagsCmd(app *App) *cobra.Command {
	var flags models.CompletionFlags

	cmd := &cobra.Command{
		Use:   "flags ID",
		Short: "Overwrite the institution completion flags of an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withBackend(cmd.Context(), func(b *Backend) error {
				if err := b.Applications.UpdateFlags(cmd.Context(), args[0], flags, app.now()); err != nil {
					return err
				}
				state := "not eligible"
				if flags.All() {
					state = "eligible"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated flags of %s (%s for booking).\n", args[0], state)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.SubmittedToInstitute, "submitted", false, "submitted to institute")
	f.BoolVar(&flags.UnconditionalReceived, "unconditional", false, "unconditional offer received")
	f.BoolVar(&flags.FeePaid, "fee-paid", false, "fee paid")
	f.BoolVar(&flags.SponsorshipLetterReceived, "sponsorship", false, "sponsorship letter received")
	f.BoolVar(&flags.VisaGranted, "visa", false, "visa granted")
	f.BoolVar(&flags.Enrolled, "enrolled", false, "enrolled")

	return cmd
}
