package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// BatchWriter streams rows into a single Parquet file under outDir/tmp and
// moves it into outDir on Finalize.
type BatchWriter struct {
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[TransitionRow]

	episodes int
	rows     int
}

func NewBatchWriter(outDir string) (*BatchWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		absOut = outDir
	}
	tmpDir := filepath.Join(absOut, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := batchName()
	tmpPath := filepath.Join(tmpDir, name)
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	return &BatchWriter{
		tmpPath: tmpPath,
		outPath: filepath.Join(absOut, name),
		file:    f,
		writer:  parquet.NewGenericWriter[TransitionRow](f, writerOptions()...),
	}, nil
}

func (b *BatchWriter) OutPath() string { return b.outPath }
func (b *BatchWriter) Episodes() int   { return b.episodes }
func (b *BatchWriter) Rows() int       { return b.rows }

// WriteEpisode appends one episode's rows.
func (b *BatchWriter) WriteEpisode(rows []TransitionRow) error {
	if b.writer == nil {
		return fmt.Errorf("batch writer is closed")
	}
	if len(rows) == 0 {
		return nil
	}
	if _, err := b.writer.Write(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	b.rows += len(rows)
	b.episodes++
	return nil
}

// Finalize closes the file and moves it into place. With no rows written the
// tmp file is removed and outPath is empty.
func (b *BatchWriter) Finalize() (outPath string, rows int, episodes int, err error) {
	if b.writer == nil {
		return "", 0, 0, nil
	}

	closeErr := b.writer.Close()
	b.writer = nil
	_ = b.file.Sync()
	fileErr := b.file.Close()
	b.file = nil
	if closeErr != nil {
		return "", 0, 0, fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return "", 0, 0, fmt.Errorf("close parquet file: %w", fileErr)
	}

	if b.rows == 0 {
		_ = os.Remove(b.tmpPath)
		return "", 0, 0, nil
	}
	if err := os.Rename(b.tmpPath, b.outPath); err != nil {
		return "", 0, 0, fmt.Errorf("rename parquet: %w", err)
	}
	return b.outPath, b.rows, b.episodes, nil
}
