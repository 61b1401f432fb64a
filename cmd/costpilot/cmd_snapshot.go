package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"costpilot/internal/cperrors"
	"costpilot/internal/domain"
	"costpilot/internal/license"
	"costpilot/internal/pipeline"
	"costpilot/internal/report"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Create or list persisted prediction snapshots",
}

var snapshotCreatePlanPath string
var snapshotCreateActor string

var snapshotCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Run the pipeline against the most recent snapshot and persist the result",
	RunE:  runSnapshotCreate,
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted snapshots, most recent first",
	RunE:  runSnapshotList,
}

func init() {
	snapshotCreateCmd.Flags().StringVar(&snapshotCreatePlanPath, "plan", "", "Path to the plan/diff document (required)")
	snapshotCreateCmd.Flags().StringVar(&snapshotCreateActor, "actor", "cli", "Actor identity recorded in audit entries")
	snapshotCreateCmd.MarkFlagRequired("plan")
	snapshotCmd.AddCommand(snapshotCreateCmd, snapshotListCmd)
}

func runSnapshotCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	raw, err := os.ReadFile(snapshotCreatePlanPath)
	if err != nil {
		return fmt.Errorf("read plan %q: %w", snapshotCreatePlanPath, err)
	}

	session, err := pipeline.Open(cfg, "", "")
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	prior, err := loadLatestSnapshot(cfg.Paths.SnapshotsDir)
	if err != nil {
		return fmt.Errorf("load prior snapshot: %w", err)
	}
	session.Prior = prior

	rl := license.NewRateLimiter(cfg.Paths.RateLimit, rateLimitSecret(cfg))
	session.ResolveLicense(license.DefaultTrustedKeys(), rl, time.Now())

	now := time.Now()
	result, err := session.Run(cmd.Context(), pipeline.Inputs{
		RawPlan: raw,
		Actor:   snapshotCreateActor,
		Now:     now,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Paths.SnapshotsDir, 0o755); err != nil {
		return fmt.Errorf("create snapshots dir: %w", err)
	}
	out, err := report.MarshalSnapshot(result.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	name := now.UTC().Format("20060102T150405Z") + ".json"
	path := filepath.Join(cfg.Paths.SnapshotsDir, name)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write snapshot %q: %w", path, err)
	}

	if len(result.Regressions) > 0 {
		regOut, err := report.MarshalRegressions(result.Regressions)
		if err != nil {
			return fmt.Errorf("marshal regressions: %w", err)
		}
		if _, err := cmd.OutOrStdout().Write(regOut); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "snapshot written: %s\n", path)
	return nil
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	entries, err := os.ReadDir(cfg.Paths.SnapshotsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read snapshots dir %q: %w", cfg.Paths.SnapshotsDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}

// loadLatestSnapshot reads the most recent snapshot file in dir by
// filename (snapshot file names are UTC timestamps, so lexicographic
// order is chronological order), returning nil if the directory has no
// snapshots yet.
func loadLatestSnapshot(dir string) (*domain.Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	sort.Strings(names)
	latest := names[len(names)-1]
	raw, err := os.ReadFile(filepath.Join(dir, latest))
	if err != nil {
		return nil, err
	}
	var doc report.SnapshotDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, cperrors.New(cperrors.KindValidation, cperrors.CodeUnresolvableReference,
			fmt.Sprintf("snapshot file %q is not valid JSON", latest), nil)
	}
	return &doc.Snapshot, nil
}
