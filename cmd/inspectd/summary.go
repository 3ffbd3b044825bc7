package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"truck-inspection-backend/internal/dashboard"
)

var summaryJSON bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the inspection dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, gormDB, err := openRepository(false)
		if err != nil {
			return err
		}
		defer closeDB(gormDB)

		summary := dashboard.NewService(repo, log).Load(cmd.Context())
		if summaryJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}
		dashboard.WriteTable(cmd.OutOrStdout(), summary, exportLocation())
		return nil
	},
}

func init() {
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "Print the summary as JSON")
}
