package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"costpilot/internal/cperrors"
	"costpilot/internal/license"
	"costpilot/internal/pipeline"
	"costpilot/internal/report"
)

var analyzeActor string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <plan.json>",
	Short: "Run the full pipeline over a Terraform plan or CDK diff",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeActor, "actor", "cli", "Actor identity recorded in audit entries")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	logger.Info("analyze starting", zap.String("invocation_id", invocationID), zap.String("plan", args[0]))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read plan %q: %w", args[0], err)
	}

	session, err := pipeline.Open(cfg, "", "")
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	rl := license.NewRateLimiter(cfg.Paths.RateLimit, rateLimitSecret(cfg))
	session.ResolveLicense(license.DefaultTrustedKeys(), rl, time.Now())

	result, err := session.Run(cmd.Context(), pipeline.Inputs{
		RawPlan: raw,
		Actor:   analyzeActor,
		Now:     time.Now(),
	})
	if err != nil {
		return err
	}

	out, err := report.Marshal(result.Document)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return err
	}

	if result.ExitCode != pipeline.ExitSuccess {
		os.Exit(result.ExitCode)
	}
	return nil
}

// exitCodeFromErr maps a returned error to the process exit code per
// spec.md §6: structured *cperrors.Error values resolve to their
// category's code, anything else is a generic failure.
func exitCodeFromErr(err error) int {
	if ce, ok := err.(*cperrors.Error); ok {
		return pipeline.ExitCodeForError(ce)
	}
	return 1
}
