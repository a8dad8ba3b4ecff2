package main

import (
	"fmt"

	"GEMSentinel/internal/calculator"

	"github.com/spf13/cobra"
)

func newWindowCmd(_ *globalOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "window",
		Short: "Print the momentum window for a reference date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asOf, err := parseDate(date)
			if err != nil {
				return err
			}
			w := calculator.ComputeWindow(asOf)
			fmt.Fprintf(cmd.OutOrStdout(), "Analysis date: %s\nMomentum window (12-1): %s to %s\n",
				asOf.Format("2006-01-02"), w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Reference date YYYY-MM-DD (default today)")
	return cmd
}
