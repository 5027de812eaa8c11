package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/intelligrit/chronomap/internal/coexist"
	"github.com/intelligrit/chronomap/internal/timeline"
)

var (
	reportYear float64
	reportJSON bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show which empires were active in a year",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.LoadAll(cmd.Context()); err != nil {
			return err
		}
		r := coexist.ForYear(s, reportYear)

		if reportJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		}

		fmt.Printf("%s\n", timeline.FormatYear(float64(r.Year)))
		fmt.Printf("==========\n")
		if len(r.Active) == 0 {
			fmt.Printf("No empires active.\n")
		}
		for _, id := range r.Active {
			e, _ := s.Get(id)
			fmt.Printf("  %-24s  size: %.2f\n", e.Name, r.Sizes[id])
		}
		if r.Dominant != nil {
			fmt.Printf("\nDominant: %s (%d years in)\n", r.Dominant.Name, r.Dominant.YearsActive)
		}
		if r.Coexistence != "" {
			fmt.Printf("%s\n", r.Coexistence)
		}
		if r.GlobalFact != "" {
			fmt.Printf("\n%s\n", r.GlobalFact)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().Float64Var(&reportYear, "year", 1, "Year to report on (negative for BCE)")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(reportCmd)
}
