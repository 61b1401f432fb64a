package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"costpilot/internal/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Work with policy rule files",
}

var policyLintCmd = &cobra.Command{
	Use:   "lint <dir>",
	Short: "Parse and validate a policy directory without running the pipeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicyLint,
}

func init() {
	policyCmd.AddCommand(policyLintCmd)
}

func runPolicyLint(cmd *cobra.Command, args []string) error {
	rules, err := policy.LoadDir(args[0])
	if err != nil {
		return err
	}
	for _, r := range rules {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", r.ID, r.Severity, r.Action, r.State)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d rule(s) ok\n", len(rules))
	return nil
}
