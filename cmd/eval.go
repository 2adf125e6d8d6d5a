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

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/valpere/nmtg/internal/task"
	"github.com/valpere/nmtg/internal/task/translation"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Score a results file against the validation corpus",
	Long: `Score hypotheses produced by an external system.

The results file holds one hypothesis per line. When it holds k lines per
reference (an n-best list flattened in source order), the first hypothesis
of every group is scored.

Example:
  nmtg eval --valid_src valid.fr --valid_tgt valid.en --results hyp.en`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := clog.FromContext(ctx)

		taskName := cfg.GetString("task")
		resultsPath := cfg.GetString("results")
		if resultsPath == "" {
			return fmt.Errorf("--results is required")
		}

		t, err := task.Setup(ctx, taskName, cfg)
		if err != nil {
			return err
		}

		results, err := t.LoadResults(resultsPath)
		if err != nil {
			return fmt.Errorf("failed to load results: %w", err)
		}
		log.Infof("Loaded %d hypotheses from %s", len(results), resultsPath)

		if cfg.GetBool("check-lang") {
			checkLanguage(ctx, t, results)
		}

		score, report, err := scoreTask(ctx, t, results)
		if err != nil {
			return err
		}

		if out := cfg.GetString("save"); out != "" {
			if err := t.SaveResults(results, out); err != nil {
				return fmt.Errorf("failed to save results: %w", err)
			}
			log.Infof("Saved %d hypotheses to %s", len(results), out)
		}

		if cfg.GetBool("no-history") {
			return nil
		}
		_, err = recordRun(ctx, cfg.GetString("db"), runRecord{
			taskName:   taskName,
			task:       t,
			hypotheses: results,
			score:      score,
			report:     report,
		})
		return err
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().String("task", translation.Name, "Task to evaluate (see nmtg tasks)")
	addTaskFlags(evalCmd.Flags())

	evalCmd.Flags().String("results", "", "File with one hypothesis per line (required)")
	evalCmd.Flags().String("save", "", "Also write the hypotheses to this file")
	evalCmd.Flags().String("db", defaultDBPath, "Database path for the run history")
	evalCmd.Flags().Bool("no-history", false, "Do not record the run")
	evalCmd.Flags().Bool("check-lang", false, "Warn about hypotheses not in the target language")
}
