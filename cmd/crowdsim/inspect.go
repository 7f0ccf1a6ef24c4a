package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/crowdsense/internal/persistence"
	"github.com/talgya/crowdsense/internal/recording"
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize recorded runs",
	}
	cmd.AddCommand(inspectTraceCmd())
	cmd.AddCommand(inspectRunsCmd())
	return cmd
}

func inspectTraceCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "trace <file" + recording.Ext + ">",
		Short: "Summarize a cycle trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := recording.Summarize(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			fmt.Fprintf(out, "cycles        %s (%d..%d)\n", humanize.Comma(int64(s.Cycles)), s.FirstCycle, s.LastCycle)
			fmt.Fprintf(out, "events        %s\n", humanize.Comma(int64(s.EventsMade)))
			fmt.Fprintf(out, "peak resolved %d\n", s.PeakResolved)
			names := make([]string, 0, len(s.Recognitions))
			for name := range s.Recognitions {
				names = append(names, name)
			}
			sort.Slice(names, func(i, j int) bool {
				return s.Recognitions[names[i]] > s.Recognitions[names[j]]
			})
			for _, name := range names {
				fmt.Fprintf(out, "  %-10s %s\n", name, humanize.Comma(int64(s.Recognitions[name])))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func inspectRunsCmd() *cobra.Command {
	var (
		dbPath string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List stored runs, or tally one run's recognitions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := persistence.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				runs, err := db.Runs(limit)
				if err != nil {
					return err
				}
				for _, r := range runs {
					fmt.Fprintf(out, "%s  seed=%-20d %s\n", r.ID, r.Seed, r.StartedAt)
				}
				return nil
			}

			tally, err := db.Tally(args[0])
			if err != nil {
				return err
			}
			if len(tally) == 0 {
				fmt.Fprintln(out, "no recognitions stored")
				return nil
			}
			for _, t := range tally {
				fmt.Fprintf(out, "%-10s %8s  avg %5.1f%%\n", t.Event, humanize.Comma(int64(t.Count)), t.Avg)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "data/crowdsim.db", "run database")
	cmd.Flags().IntVar(&limit, "limit", 20, "runs to list")
	return cmd
}
