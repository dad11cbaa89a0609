package warehouse

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestFile is the manifest's name inside the output directory.
const ManifestFile = "manifest.json"

// TableManifest describes one completed table.
type TableManifest struct {
	Rows       int64    `json:"rows"`
	Partitions []string `json:"partitions,omitempty"`
	Digest     string   `json:"digest"`
}

// Manifest is the run's completion marker. Downstream consumers treat
// its presence as the validity signal: a failed run leaves none. It
// carries no timestamps, so identical runs produce identical bytes.
type Manifest struct {
	RunID        string                   `json:"run_id"`
	Seed         int64                    `json:"seed"`
	ConfigDigest string                   `json:"config_digest"`
	Tables       map[string]TableManifest `json:"tables"`
}

// Manifest snapshots the tables written so far. Tables a run skipped
// (an aborted projection, a stockout-free risk table) are simply
// absent.
func (w *Warehouse) Manifest(runID string, seed int64, configDigest string) Manifest {
	tables := make(map[string]TableManifest, len(w.tables))
	for name, state := range w.tables {
		tables[name] = TableManifest{
			Rows:       state.rows,
			Partitions: append([]string(nil), state.partitions...),
			Digest:     hex.EncodeToString(state.digest.Sum(nil)),
		}
	}
	return Manifest{
		RunID:        runID,
		Seed:         seed,
		ConfigDigest: configDigest,
		Tables:       tables,
	}
}

// WriteManifest persists the manifest. The write goes through a temp
// file so a crash mid-write cannot leave a truncated manifest behind.
func (w *Warehouse) WriteManifest(m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(w.dir, ManifestFile)
	tmpPath := path + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp manifest: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest from an output directory.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return m, nil
}
