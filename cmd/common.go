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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/valpere/nmtg/internal/bleu"
	"github.com/valpere/nmtg/internal/dataset"
	"github.com/valpere/nmtg/internal/inference"
	"github.com/valpere/nmtg/internal/store"
	"github.com/valpere/nmtg/internal/task"
	"github.com/valpere/nmtg/internal/task/translation"
	"github.com/valpere/nmtg/internal/validator"
)

const defaultDBPath = "./data/nmtg.db"

// addTaskFlags declares the options of every registered task on fs. Tasks
// sharing an option name share the flag.
func addTaskFlags(fs *pflag.FlagSet) {
	for _, name := range task.Names() {
		reg, _ := task.Lookup(name)
		if reg.AddFlags == nil {
			continue
		}
		taskFlags := pflag.NewFlagSet(name, pflag.ContinueOnError)
		reg.AddFlags(taskFlags)
		fs.AddFlagSet(taskFlags)
	}
}

// engineConfig decodes engine settings from flags, environment and config.
func engineConfig(v *viper.Viper) (inference.Config, error) {
	var ec inference.Config
	if err := v.Unmarshal(&ec); err != nil {
		return inference.Config{}, fmt.Errorf("failed to decode engine options: %w", err)
	}
	return ec, nil
}

func openStore(path string) (*store.Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// runRecord describes a finished evaluation for the run history.
type runRecord struct {
	taskName   string
	engine     string
	task       task.Task
	hypotheses []string
	score      *bleu.Score
	report     []string
}

// recordRun stores r in the database at path and returns the new run ID.
func recordRun(ctx context.Context, path string, r runRecord) (string, error) {
	db, err := openStore(path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	run := store.Run{
		ID:         uuid.New().String(),
		Task:       r.taskName,
		Engine:     r.engine,
		ValidSrc:   cfg.GetString("valid_src"),
		ValidTgt:   cfg.GetString("valid_tgt"),
		Hypotheses: len(r.hypotheses),
		CreatedAt:  time.Now(),
	}
	if len(r.report) > 0 {
		run.Report = r.report[0]
	}
	if r.score != nil {
		run.Score = r.score.Score
		run.HasScore = true
	}
	if tt, ok := r.task.(*translation.Task); ok {
		run.SourceLang = tt.SourceLanguage()
		run.TargetLang = tt.TargetLanguage()
		run.BPESymbol = tt.BPESymbol()
		run.Lower = tt.Lower()
		if tt.HasReferences() {
			run.References = len(tt.Target())
			run.RefFingerprint = dataset.Fingerprint(tt.Target())
		}
	}

	if err := db.SaveRun(ctx, run, r.hypotheses); err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	clog.FromContext(ctx).Infof("Recorded run %s in %s", run.ID, path)
	return run.ID, nil
}

// scoreTask scores results with t and prints the report. Translation tasks
// also print the detailed BLEU line.
func scoreTask(ctx context.Context, t task.Task, results []string) (*bleu.Score, []string, error) {
	if tt, ok := t.(*translation.Task); ok {
		score, err := tt.Evaluate(results)
		if err != nil {
			return nil, nil, err
		}
		if score == nil {
			clog.FromContext(ctx).Info("No references loaded, skipping scoring")
			return nil, nil, nil
		}
		report := []string{score.Format()}
		printReport(report)
		fmt.Println(score.String())
		return score, report, nil
	}

	report, err := t.ScoreResults(results)
	if err != nil {
		return nil, nil, err
	}
	printReport(report)
	return nil, report, nil
}

func printReport(report []string) {
	for _, line := range report {
		fmt.Println(line)
	}
}

// checkLanguage warns about hypotheses that are not in the task's target
// language. Only translation tasks with a target language tag are checked.
func checkLanguage(ctx context.Context, t task.Task, results []string) {
	log := clog.FromContext(ctx)

	tt, ok := t.(*translation.Task)
	if !ok || tt.TargetLanguage() == "" {
		log.Warn("Language check needs a target language (--valid_tgt_lang), skipping")
		return
	}

	report := validator.New().CheckCorpus(results, tt.TargetLanguage())
	log.Infof("Language check: %d checked, %d skipped, %d mismatched",
		report.Checked, report.Skipped, len(report.Mismatched))
	for _, m := range report.Mismatched {
		log.Warnf("Line %d looks like %q, expected %q", m.Line+1, m.Detected, tt.TargetLanguage())
	}
}
