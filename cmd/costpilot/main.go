// Package main implements the costpilot CLI: the thin cobra glue around
// internal/pipeline's Session/Run. No business logic lives here — every
// subcommand loads a Session, drives one operation, and renders the
// result.
//
// # File Index
//
//   - main.go           - entry point, rootCmd, global flags, init()
//   - cmd_analyze.go    - analyzeCmd, runAnalyze()
//   - cmd_audit.go      - verifyAuditCmd, runVerifyAudit()
//   - cmd_snapshot.go   - snapshotCmd, snapshotCreateCmd, snapshotListCmd
//   - cmd_license.go    - licenseCmd, licenseShowCmd
//   - cmd_policy.go     - policyCmd, policyLintCmd
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"costpilot/internal/config"
	"costpilot/internal/logging"
)

// rateLimitSecret resolves the HMAC secret protecting the license
// rate-limit state file the same way internal/pipeline.Open resolves the
// audit ledger's secret: from the configured environment variable,
// falling back to the well-known genesis sentinel.
func rateLimitSecret(cfg *config.Config) []byte {
	if v := os.Getenv(cfg.Audit.SecretEnvVar); v != "" {
		return []byte(v)
	}
	return []byte(config.GenesisSentinel)
}

var (
	configPath    string
	heuristicsArg string
	policiesArg   string
	baselineArg   string
	licenseArg    string
	auditLogArg   string
	debugMode     bool

	logger *zap.Logger
	// invocationID correlates one CLI run's log lines; it never feeds a
	// canonical document, a stable node ID, or an audit sequence.
	invocationID string
)

var rootCmd = &cobra.Command{
	Use:   "costpilot",
	Short: "CostPilot - pre-merge, offline cost-governance for IaC changes",
	Long: `CostPilot runs a deterministic pipeline over a Terraform plan or CDK
diff: Detection -> Prediction -> Explain -> Policy -> Baseline/Regression ->
canonicalized output, with a hash-chained audit log and a sandbox envelope
bounding any pluggable computation.

It performs no network I/O and no live pricing lookups; every estimate comes
from the local, versioned heuristic table.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		invocationID = uuid.NewString()

		zapCfg := zap.NewProductionConfig()
		if debugMode {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		wd, _ := os.Getwd()
		if err := logging.Initialize(wd, debugMode); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if heuristicsArg != "" {
		cfg.Paths.Heuristics = heuristicsArg
	}
	if policiesArg != "" {
		cfg.Paths.PolicyDir = policiesArg
	}
	if baselineArg != "" {
		cfg.Paths.Baseline = baselineArg
	}
	if licenseArg != "" {
		cfg.Paths.License = licenseArg
	}
	if auditLogArg != "" {
		cfg.Paths.AuditLog = auditLogArg
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to costpilot.yaml (defaults embedded if omitted)")
	rootCmd.PersistentFlags().StringVar(&heuristicsArg, "heuristics", "", "Override the heuristic table path")
	rootCmd.PersistentFlags().StringVar(&policiesArg, "policies", "", "Override the policy directory")
	rootCmd.PersistentFlags().StringVar(&baselineArg, "baseline", "", "Override the baseline table path")
	rootCmd.PersistentFlags().StringVar(&licenseArg, "license", "", "Override the license file path")
	rootCmd.PersistentFlags().StringVar(&auditLogArg, "audit-log", "", "Override the audit ledger path")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug-level operator logging")

	rootCmd.AddCommand(analyzeCmd, verifyAuditCmd, snapshotCmd, licenseCmd, policyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFromErr(err))
	}
}
