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
	"io"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/valpere/nmtg/internal/chunker"
	"github.com/valpere/nmtg/internal/inference"
	"github.com/valpere/nmtg/internal/task/translation"
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate the validation source with an engine and score the output",
	Long: `Translate every line of the validation source through one engine,
write the hypotheses to --output and score them when references are given.

Available engines:
  - google      Google Cloud Translation (requires credentials)
  - ollama      Ollama LLM (self-hosted)
  - openrouter  OpenRouter LLM (requires API key)

The target language comes from --valid_tgt_lang ("auto" detects it from
--valid_tgt). With --nbest K the engine is asked for K hypotheses per
sentence and the output holds K lines per source line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := clog.FromContext(ctx)

		output := cfg.GetString("output")
		if output == "" {
			return fmt.Errorf("--output is required")
		}
		if output == cfg.GetString("valid_src") {
			return fmt.Errorf("output file and validation source cannot be the same")
		}

		t, err := translation.Setup(ctx, cfg)
		if err != nil {
			return err
		}
		if t.TargetLanguage() == "" {
			return fmt.Errorf("target language is unknown, set --valid_tgt_lang")
		}

		engineName := cfg.GetString("engine")
		ec, err := engineConfig(cfg)
		if err != nil {
			return err
		}
		engine, err := inference.NewEngine(engineName, ec)
		if err != nil {
			return err
		}
		if c, ok := engine.(io.Closer); ok {
			defer c.Close()
		}

		runner := inference.NewRunner(engine, inference.RunnerConfig{
			Workers:       cfg.GetInt("workers"),
			Timeout:       cfg.GetDuration("timeout"),
			MaxAttempts:   cfg.GetInt("max-retries"),
			RetryDelay:    cfg.GetDuration("retry-delay"),
			NBest:         cfg.GetInt("nbest"),
			BatchSize:     cfg.GetInt("batch-size"),
			MaxBatchChars: cfg.GetInt("max-batch-chars"),
		})

		log.Infof("Translating %d sentences %s -> %s with %s",
			len(t.Source()), orAuto(t.SourceLanguage()), t.TargetLanguage(), engineName)
		start := time.Now()
		results, err := runner.Run(ctx, stripBPE(t.Source(), t.BPESymbol()), t.SourceLanguage(), t.TargetLanguage())
		if err != nil {
			return fmt.Errorf("translation failed: %w", err)
		}
		log.Infof("Translated in %s", time.Since(start).Round(time.Millisecond))

		if err := t.SaveResults(results, output); err != nil {
			return fmt.Errorf("failed to save results: %w", err)
		}
		fmt.Printf("Wrote %d hypotheses to %s\n", len(results), output)

		if cfg.GetBool("check-lang") {
			checkLanguage(ctx, t, results)
		}

		score, report, err := scoreTask(ctx, t, results)
		if err != nil {
			return err
		}

		if cfg.GetBool("no-history") {
			return nil
		}
		_, err = recordRun(ctx, cfg.GetString("db"), runRecord{
			taskName:   translation.Name,
			engine:     engine.Name(),
			task:       t,
			hypotheses: results,
			score:      score,
			report:     report,
		})
		return err
	},
}

// stripBPE joins subword units so engines see plain sentences.
func stripBPE(lines []string, symbol string) []string {
	if symbol == "" {
		return lines
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = strings.ReplaceAll(line, symbol, "")
	}
	return out
}

func orAuto(lang string) string {
	if lang == "" {
		return translation.AutoLanguage
	}
	return lang
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translation.AddFlags(translateCmd.Flags())

	translateCmd.Flags().StringP("output", "o", "", "Output file for the hypotheses (required)")
	translateCmd.Flags().String("engine", "google", "Translation engine ("+strings.Join(inference.Engines, ", ")+")")
	translateCmd.Flags().StringP("credentials", "c", "", "Path to Google Cloud credentials")
	translateCmd.Flags().StringP("project", "p", "", "Google Cloud Project ID")
	translateCmd.Flags().String("api-key", "", "API key (OpenRouter, or Google instead of credentials)")
	translateCmd.Flags().String("model", "", "Model name for LLM engines")
	translateCmd.Flags().String("base-url", "", "Engine base URL")

	translateCmd.Flags().Int("workers", 4, "Concurrent engine calls")
	translateCmd.Flags().Int("nbest", 1, "Hypotheses per source sentence")
	translateCmd.Flags().Int("batch-size", 64, "Sentences per call for batch engines")
	translateCmd.Flags().Int("max-batch-chars", chunker.DefaultMaxChars, "Characters per call for batch engines")
	translateCmd.Flags().Duration("timeout", 60*time.Second, "Timeout per engine call")
	translateCmd.Flags().Int("max-retries", 3, "Total attempts per call including the first (1 = no retries)")
	translateCmd.Flags().Duration("retry-delay", time.Second, "Base delay between attempts")

	translateCmd.Flags().String("db", defaultDBPath, "Database path for the run history")
	translateCmd.Flags().Bool("no-history", false, "Do not record the run")
	translateCmd.Flags().Bool("check-lang", false, "Warn about hypotheses not in the target language")
}
