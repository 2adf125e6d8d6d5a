/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/nmtg/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the evaluation run history",
	Long:  `List, inspect, and clear the evaluation runs recorded in the SQLite history.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.GetString("db"))
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(cmd.Context(), store.RunFilter{
			Task:           cfg.GetString("task"),
			RefFingerprint: cfg.GetString("fingerprint"),
			Limit:          cfg.GetInt("limit"),
		})
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tTASK\tENGINE\tLANGS\tHYPS\tREFS\tBLEU\tSOURCE")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Task, orDash(r.Engine),
				langPair(r), r.Hypotheses, r.References, scoreText(r), r.ValidSrc)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one run, optionally with its hypotheses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.GetString("db"))
		if err != nil {
			return err
		}
		defer db.Close()

		r, err := db.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID:           %s\n", r.ID)
		fmt.Printf("Created:      %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Task:         %s\n", r.Task)
		fmt.Printf("Engine:       %s\n", orDash(r.Engine))
		fmt.Printf("Source:       %s\n", r.ValidSrc)
		fmt.Printf("References:   %s\n", orDash(r.ValidTgt))
		fmt.Printf("Languages:    %s\n", langPair(*r))
		fmt.Printf("BPE symbol:   %q\n", r.BPESymbol)
		fmt.Printf("Lowercase:    %v\n", r.Lower)
		fmt.Printf("Hypotheses:   %d\n", r.Hypotheses)
		fmt.Printf("Ref lines:    %d\n", r.References)
		fmt.Printf("Report:       %s\n", orDash(r.Report))
		fmt.Printf("Fingerprint:  %s\n", orDash(r.RefFingerprint))

		if !cfg.GetBool("hypotheses") {
			return nil
		}
		hyps, err := db.Hypotheses(cmd.Context(), r.ID)
		if err != nil {
			return fmt.Errorf("failed to load hypotheses: %w", err)
		}
		fmt.Println()
		for _, h := range hyps {
			fmt.Println(h)
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show run history statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.GetString("db"))
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Total runs:   %d\n", stats.TotalRuns)
		fmt.Printf("Scored runs:  %d\n", stats.ScoredRuns)
		fmt.Printf("Best BLEU:    %.2f\n", stats.BestScore)
		fmt.Printf("Mean BLEU:    %.2f\n", stats.MeanScore)
		fmt.Printf("Hypotheses:   %d\n", stats.Hypotheses)
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a run by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.GetString("db"))
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteRun(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}
		fmt.Printf("Deleted run: %s\n", args[0])
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all runs from the history",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.GetString("db"))
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearRuns(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Printf("Cleared %d runs from history.\n", n)
		return nil
	},
}

func scoreText(r store.Run) string {
	if !r.HasScore {
		return "-"
	}
	return fmt.Sprintf("%.2f", r.Score)
}

func langPair(r store.Run) string {
	if r.SourceLang == "" && r.TargetLang == "" {
		return "-"
	}
	return orDash(r.SourceLang) + "->" + orDash(r.TargetLang)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.PersistentFlags().String("db", defaultDBPath, "Database path")

	historyListCmd.Flags().String("task", "", "Only runs of this task")
	historyListCmd.Flags().String("fingerprint", "", "Only runs scored against references with this fingerprint")
	historyListCmd.Flags().Int("limit", 20, "Maximum number of runs (0 = all)")
	historyShowCmd.Flags().Bool("hypotheses", false, "Also print the stored hypotheses")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
}
