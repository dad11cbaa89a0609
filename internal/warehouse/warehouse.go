package warehouse

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/rs/zerolog/log"

	"fmcg-sim/internal/catalog"
)

// Output table names.
const (
	TableTransactions = "facts_transactions"
	TableFinancial    = "facts_financial"
	TableProjection   = "facts_projection_2026"
	TableRiskSignals  = "facts_risk_signals"
)

const partFile = "part-0.parquet"

var compression = parquet.Compression(&zstd.Codec{})

// Warehouse writes the output tables under one directory: one
// zstd-compressed parquet file per (table, period) partition, plus the
// run manifest. Partitions flush as they are written, so peak memory
// is bounded by one period's rows. Not safe for concurrent use; the
// pipeline writes from a single sink goroutine.
type Warehouse struct {
	dir    string
	tables map[string]*tableState
}

// tableState tracks what the manifest will need: row count, partition
// list in write order, and a running digest over the part files.
type tableState struct {
	rows       int64
	partitions []string
	digest     hash.Hash
}

// Open creates the output directory and returns a warehouse rooted
// there.
func Open(dir string) (*Warehouse, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Warehouse{
		dir:    dir,
		tables: make(map[string]*tableState),
	}, nil
}

// Dir returns the output directory.
func (w *Warehouse) Dir() string {
	return w.dir
}

// WriteTransactions writes one period's partition of the transaction
// table. An empty period still produces a partition file, so the
// partition set always mirrors the calendar.
func (w *Warehouse) WriteTransactions(period catalog.Period, rows []TransactionRow) error {
	return writeTyped(w, TableTransactions, periodPartition(period), rows)
}

// WriteFinancial writes one period's partition of the financial table
// using the configuration-derived column set.
func (w *Warehouse) WriteFinancial(period catalog.Period, cols *FinancialColumns, rows []map[string]any) error {
	partition := periodPartition(period)
	f, state, err := w.createPart(TableFinancial, partition)
	if err != nil {
		return err
	}

	pw := parquet.NewWriter(io.MultiWriter(f, state.digest), cols.Schema(), compression)
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s row: %w", TableFinancial, err)
		}
	}
	if err := pw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to close %s writer: %w", TableFinancial, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s partition: %w", TableFinancial, err)
	}

	state.finish(partition, len(rows))
	return nil
}

// WriteProjection writes one horizon period's partition of the
// projection table.
func (w *Warehouse) WriteProjection(period string, rows []ProjectionRow) error {
	return writeTyped(w, TableProjection, "period="+period, rows)
}

// WriteRiskSignals writes the risk signal table. Signals summarize the
// whole window, so the table is a single unpartitioned file.
func (w *Warehouse) WriteRiskSignals(rows []RiskSignalRow) error {
	return writeTyped(w, TableRiskSignals, "", rows)
}

// writeTyped writes one partition of a table whose schema is fixed at
// compile time.
func writeTyped[T any](w *Warehouse, table, partition string, rows []T) error {
	f, state, err := w.createPart(table, partition)
	if err != nil {
		return err
	}

	pw := parquet.NewGenericWriter[T](io.MultiWriter(f, state.digest), compression)
	if len(rows) > 0 {
		if _, err := pw.Write(rows); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s rows: %w", table, err)
		}
	}
	if err := pw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to close %s writer: %w", table, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s partition: %w", table, err)
	}

	state.finish(partition, len(rows))
	return nil
}

// createPart makes the partition directory and opens its part file.
func (w *Warehouse) createPart(table, partition string) (*os.File, *tableState, error) {
	dir := filepath.Join(w.dir, table)
	if partition != "" {
		dir = filepath.Join(dir, partition)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create partition directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, partFile))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create partition file: %w", err)
	}

	state, ok := w.tables[table]
	if !ok {
		state = &tableState{digest: sha256.New()}
		w.tables[table] = state
	}
	return f, state, nil
}

func (s *tableState) finish(partition string, rows int) {
	s.rows += int64(rows)
	if partition != "" {
		s.partitions = append(s.partitions, partition)
	}
	log.Debug().Str("partition", partition).Int("rows", rows).Msg("Partition written")
}

func periodPartition(p catalog.Period) string {
	return "period=" + p.Key()
}
