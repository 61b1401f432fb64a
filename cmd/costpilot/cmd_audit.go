package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"costpilot/internal/audit"
)

var verifyAuditCmd = &cobra.Command{
	Use:   "verify-audit <path>",
	Short: "Verify a hash-chained audit ledger's integrity",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVerifyAudit,
}

func runVerifyAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	path := cfg.Paths.AuditLog
	if len(args) == 1 {
		path = args[0]
	}

	log, err := audit.Open(path, rateLimitSecret(cfg))
	if err != nil {
		return fmt.Errorf("open audit log %q: %w", path, err)
	}
	defer log.Close()

	if err := log.VerifyChain(); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "BrokenChain{%v}\n", err)
		os.Exit(1)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Ok")
	return nil
}
