package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/noah-isme/agent-portal-api/internal/lifecycle"
	"github.com/noah-isme/agent-portal-api/internal/models"
)

func newBookingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "booking",
		Short: "Enrollment booking helpers",
	}
	cmd.AddCommand(newBookingQuoteCmd())
	return cmd
}

func newBookingQuoteCmd() *cobra.Command {
	var tuition, scholarship, deposit, enrollmentFee string

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Validate booking amounts and print the derived figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var figures models.BookingFigures
			for _, f := range []struct {
				name string
				raw  string
				dst  *decimal.Decimal
			}{
				{"tuition", tuition, &figures.TuitionFee},
				{"scholarship", scholarship, &figures.ScholarshipAmount},
				{"deposit", deposit, &figures.InitialDeposit},
				{"enrollment-fee", enrollmentFee, &figures.EnrollmentFee},
			} {
				value, err := decimal.NewFromString(f.raw)
				if err != nil {
					return fmt.Errorf("--%s: %q is not a number", f.name, f.raw)
				}
				*f.dst = value
			}

			quote, err := lifecycle.ValidateAndCompute(figures)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(tw, "Fee payable\t%s\t\n", quote.FeePayable.StringFixed(2))
			fmt.Fprintf(tw, "Total paid\t%s\t\n", quote.TotalPaid.StringFixed(2))
			fmt.Fprintf(tw, "Remaining\t%s\t\n", quote.RemainingFee.StringFixed(2))
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&tuition, "tuition", "0", "tuition fee")
	cmd.Flags().StringVar(&scholarship, "scholarship", "0", "scholarship amount")
	cmd.Flags().StringVar(&deposit, "deposit", "0", "initial deposit")
	cmd.Flags().StringVar(&enrollmentFee, "enrollment-fee", "0", "enrollment fee")

	return cmd
}
