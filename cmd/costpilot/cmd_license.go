package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"costpilot/internal/license"
)

var licenseCmd = &cobra.Command{
	Use:   "license",
	Short: "Inspect the configured license",
}

var licenseShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the decoded, verified license",
	RunE:  runLicenseShow,
}

func init() {
	licenseCmd.AddCommand(licenseShowCmd)
}

func runLicenseShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rl := license.NewRateLimiter(cfg.Paths.RateLimit, rateLimitSecret(cfg))
	now := time.Now()
	if err := rl.CheckAndGuard(now); err != nil {
		return err
	}

	verified, err := license.Resolve(license.DefaultTrustedKeys(), cfg.Paths.License, now)
	if err != nil {
		_ = rl.RecordFailure(now)
		fmt.Fprintf(cmd.OutOrStdout(), "Free edition (no license): %v\n", err)
		return nil
	}

	if verified.Edition == license.Free {
		fmt.Fprintln(cmd.OutOrStdout(), "Free edition (no license)")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s edition, expires %s\n", verified.Edition, verified.Expires.Format(time.RFC3339))
	return nil
}
