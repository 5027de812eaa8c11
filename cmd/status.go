package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/intelligrit/chronomap/internal/logs"
	"github.com/intelligrit/chronomap/internal/store"
	"github.com/intelligrit/chronomap/internal/timeline"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarise and validate the dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		issues, err := s.Validate(ctx)
		if err != nil {
			return err
		}
		if err := s.LoadAll(ctx); err != nil {
			logs.Warn("not every empire loaded", zap.Error(err))
		}
		st, err := s.Stats(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Dataset Status (%s)\n", s.Source())
		fmt.Printf("==============\n")
		fmt.Printf("Empires:        %d\n", st.Entities)
		fmt.Printf("Loaded:         %d\n", st.Resident)
		fmt.Printf("Geometry slices: %d\n", st.Slices)
		fmt.Printf("Span:           %s to %s\n",
			timeline.FormatYear(float64(st.EarliestYear)), timeline.FormatYear(float64(st.LatestYear)))

		if len(st.ByEra) > 0 {
			fmt.Printf("\nPer-Era Breakdown\n")
			fmt.Printf("-----------------\n")

			var eras []string
			for era := range st.ByEra {
				eras = append(eras, era)
			}
			sort.Strings(eras)

			for _, era := range eras {
				fmt.Printf("  %-14s  %3d\n", era, st.ByEra[era])
			}
		}

		var gaps []string
		for _, entry := range s.Manifest() {
			e, ok := s.Get(entry.ID)
			if !ok {
				continue
			}
			for _, g := range store.Gaps(e) {
				gaps = append(gaps, fmt.Sprintf("%s: no geometry %s to %s", entry.ID,
					timeline.FormatYear(float64(g.StartYear)), timeline.FormatYear(float64(g.EndYear))))
			}
		}
		if len(gaps) > 0 {
			fmt.Printf("\nGaps\n----\n")
			for _, g := range gaps {
				fmt.Printf("  %s\n", g)
			}
		}

		if len(issues) == 0 {
			fmt.Printf("\nNo issues found.\n")
			return nil
		}
		fmt.Printf("\nIssues\n------\n")
		for _, i := range issues {
			fmt.Printf("  %s\n", i)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
