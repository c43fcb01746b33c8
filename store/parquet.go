// Package store persists rollout transitions as Parquet.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const SchemaName = "transition_row_v1"

// TransitionRow is one (observation, action, reward) step of an episode.
//
// Observation is the observation the action was chosen from. Return is the
// discounted return from this step onward, normalised across the episode.
type TransitionRow struct {
	RunID       string    `parquet:"run_id,dict"`
	Episode     int32     `parquet:"episode"`
	Step        int32     `parquet:"step"`
	Seed        int64     `parquet:"seed"`
	BoardSize   int32     `parquet:"board_size"`
	Policy      string    `parquet:"policy,dict"`
	Observation []float32 `parquet:"observation"`
	Action      int32     `parquet:"action"`
	Reward      float32   `parquet:"reward"`
	Done        bool      `parquet:"done"`
	Return      float32   `parquet:"return"`
	Score       int32     `parquet:"score"`
}

func writerOptions() []parquet.WriterOption {
	return []parquet.WriterOption{
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.SkipPageBounds("observation"),
		parquet.KeyValueMetadata("schema", SchemaName),
	}
}

func batchName() string {
	return fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
}

// WriteBatchParquetAtomic writes rows into outDir/tmp and then renames the
// file into outDir, so readers globbing outDir never see a partial file.
func WriteBatchParquetAtomic(outDir string, rows []TransitionRow) (string, error) {
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := batchName()
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows, writerOptions()...); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadRows loads every row of a transition file.
func ReadRows(path string) ([]TransitionRow, error) {
	rows, err := parquet.ReadFile[TransitionRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}
