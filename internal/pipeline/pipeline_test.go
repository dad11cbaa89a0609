package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"fmcg-sim/internal/catalog"
	"fmcg-sim/internal/config"
	"fmcg-sim/internal/warehouse"
)

func testRunConfig(t *testing.T, out string) *config.RunConfig {
	t.Helper()
	cfg := config.Default()
	cfg.Years = 2
	cfg.GlobalSeed = 42
	cfg.OutDir = out
	cfg.Workers = 4
	cfg.Catalog.Products = 6
	cfg.Catalog.Routes = 3
	cfg.Catalog.Customers = 20
	cfg.Projection.PathCount = 200
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return cfg
}

// treeDigests hashes every file under dir, keyed by relative path.
func treeDigests(t *testing.T, dir string) map[string]string {
	t.Helper()
	digests := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		digests[rel] = hex.EncodeToString(sum[:])
		return nil
	})
	if err != nil {
		t.Fatalf("walking output tree: %v", err)
	}
	return digests
}

func expectedHistoricalPartitions(years int) []string {
	var parts []string
	for y := catalog.HistoryEndYear - years + 1; y <= catalog.HistoryEndYear; y++ {
		for m := 1; m <= 12; m++ {
			parts = append(parts, fmt.Sprintf("period=%04d-%02d", y, m))
		}
	}
	return parts
}

func TestRunDeterministic(t *testing.T) {
	dir := t.TempDir()
	outA := filepath.Join(dir, "a")
	outB := filepath.Join(dir, "b")

	if _, err := Run(context.Background(), testRunConfig(t, outA)); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	if _, err := Run(context.Background(), testRunConfig(t, outB)); err != nil {
		t.Fatalf("second Run() error: %v", err)
	}

	a := treeDigests(t, outA)
	b := treeDigests(t, outB)

	// out_dir differs between the two configs, so the manifests carry
	// different config digests. Every data file must match bit for bit.
	delete(a, warehouse.ManifestFile)
	delete(b, warehouse.ManifestFile)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("identical seed and config produced different outputs:\na: %v\nb: %v", a, b)
	}
}

func TestRunWorkerCountInvariance(t *testing.T) {
	dir := t.TempDir()
	outA := filepath.Join(dir, "serial")
	outB := filepath.Join(dir, "parallel")

	cfgA := testRunConfig(t, outA)
	cfgA.Workers = 1
	cfgB := testRunConfig(t, outB)
	cfgB.Workers = 8

	if _, err := Run(context.Background(), cfgA); err != nil {
		t.Fatalf("serial Run() error: %v", err)
	}
	if _, err := Run(context.Background(), cfgB); err != nil {
		t.Fatalf("parallel Run() error: %v", err)
	}

	a := treeDigests(t, outA)
	b := treeDigests(t, outB)
	delete(a, warehouse.ManifestFile)
	delete(b, warehouse.ManifestFile)
	if !reflect.DeepEqual(a, b) {
		t.Error("worker count changed the output data")
	}

	ma, err := warehouse.ReadManifest(outA)
	if err != nil {
		t.Fatalf("ReadManifest() error: %v", err)
	}
	mb, err := warehouse.ReadManifest(outB)
	if err != nil {
		t.Fatalf("ReadManifest() error: %v", err)
	}
	for name, ta := range ma.Tables {
		if tb := mb.Tables[name]; ta.Digest != tb.Digest {
			t.Errorf("table %s digest differs across worker counts", name)
		}
	}
}

func TestRunManifestAgreement(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	cfg := testRunConfig(t, out)

	summary, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	m, err := warehouse.ReadManifest(out)
	if err != nil {
		t.Fatalf("ReadManifest() error: %v", err)
	}
	if m.RunID != summary.RunID {
		t.Errorf("manifest run id = %s, want %s", m.RunID, summary.RunID)
	}
	if m.Seed != cfg.GlobalSeed {
		t.Errorf("manifest seed = %d, want %d", m.Seed, cfg.GlobalSeed)
	}
	if m.ConfigDigest != cfg.Digest() {
		t.Errorf("manifest config digest = %s, want %s", m.ConfigDigest, cfg.Digest())
	}

	tx := m.Tables[warehouse.TableTransactions]
	if tx.Rows != int64(summary.Facts) {
		t.Errorf("transaction rows = %d, want %d facts", tx.Rows, summary.Facts)
	}
	fin := m.Tables[warehouse.TableFinancial]
	if fin.Rows != tx.Rows {
		t.Errorf("financial rows = %d, want %d", fin.Rows, tx.Rows)
	}
	if got := m.Tables[warehouse.TableRiskSignals].Rows; got != int64(summary.Signals) {
		t.Errorf("risk rows = %d, want %d signals", got, summary.Signals)
	}

	wantParts := expectedHistoricalPartitions(cfg.Years)
	if !reflect.DeepEqual(tx.Partitions, wantParts) {
		t.Errorf("transaction partitions = %v, want %v", tx.Partitions, wantParts)
	}
	if !reflect.DeepEqual(fin.Partitions, wantParts) {
		t.Errorf("financial partitions = %v, want %v", fin.Partitions, wantParts)
	}

	proj := m.Tables[warehouse.TableProjection]
	if len(proj.Partitions) != 12 {
		t.Fatalf("projection partitions = %d, want 12", len(proj.Partitions))
	}
	if proj.Partitions[0] != fmt.Sprintf("period=%d-01", catalog.HorizonYear) {
		t.Errorf("first projection partition = %s", proj.Partitions[0])
	}
	if proj.Rows != 12*2*3 {
		t.Errorf("projection rows = %d, want 72", proj.Rows)
	}
}

func TestRunSummary(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	cfg := testRunConfig(t, out)

	summary, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if summary.Periods != cfg.Years*12 {
		t.Errorf("Periods = %d, want %d", summary.Periods, cfg.Years*12)
	}
	if summary.Facts == 0 {
		t.Error("run produced no facts")
	}
	if summary.Records != summary.Facts {
		t.Errorf("Records = %d, want %d", summary.Records, summary.Facts)
	}
	if summary.Signals == 0 {
		t.Error("run produced no risk signals")
	}
	if summary.Projection == nil {
		t.Fatal("summary has no projection outcome")
	}
	if summary.Projection.GoalTarget <= 0 {
		t.Errorf("derived goal = %v, want > 0", summary.Projection.GoalTarget)
	}
	if summary.RunID == "" {
		t.Error("summary missing run id")
	}
	if summary.Elapsed <= 0 {
		t.Error("summary missing elapsed time")
	}

	// Same inputs, same run id.
	if other := runID(testRunConfig(t, out)); other != summary.RunID {
		t.Errorf("runID() = %s, want %s", other, summary.RunID)
	}
}

func TestRunRejectsBadSimulationConfig(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	cfg := testRunConfig(t, out)
	cfg.Simulation.ElasticityCoefficients = map[string]float64{"PRD-999": 0.3}

	_, err := Run(context.Background(), cfg)
	if err == nil {
		t.Fatal("Run() accepted an elasticity override for an unknown product")
	}

	// Nothing valid may be left behind: no manifest means no dataset.
	if _, err := warehouse.ReadManifest(out); err == nil {
		t.Error("failed run left a manifest behind")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	cfg := testRunConfig(t, out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Run(ctx, cfg); err == nil {
		t.Fatal("Run() ignored a canceled context")
	}
	if _, err := warehouse.ReadManifest(out); err == nil {
		t.Error("canceled run left a manifest behind")
	}
}
