package gen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dave/jennifer/jen"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

// Writer writes emitted Go files in parallel and formats them with
// goimports when FeatureFormat is enabled.
type Writer struct {
	cfg     *Config
	outDir  string
	workers int

	// Metrics for performance monitoring
	mu      sync.Mutex
	metrics *WriterMetrics
}

// WriterMetrics tracks generation performance
type WriterMetrics struct {
	FilesGenerated int
	TotalBytes     int64
	RenderTime     time.Duration
	FormatTime     time.Duration
}

// GeneratedFile is a file emitted by a generator.
type GeneratedFile struct {
	// Name is the path of the file relative to the output directory.
	Name string
	File *jen.File
}

// NewWriter returns a writer for the configured target directory.
func NewWriter(c *Config) (*Writer, error) {
	if c == nil || c.Target == "" {
		return nil, NewConfigError("Target", nil, "missing target directory in config")
	}
	return &Writer{
		cfg:     c,
		outDir:  c.Target,
		workers: c.NumWorkers(),
		metrics: &WriterMetrics{},
	}, nil
}

// Metrics returns the generation metrics.
func (w *Writer) Metrics() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.metrics
}

// Write writes all files. It stops at the first failure.
func (w *Writer) Write(ctx context.Context, files ...GeneratedFile) error {
	if err := os.MkdirAll(w.outDir, 0o755); err != nil {
		return NewGenerationError("write", w.outDir, "create output directory", err)
	}
	format, err := w.cfg.FeatureEnabled(FeatureFormat.Name)
	if err != nil {
		return err
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(w.workers)
	for _, f := range files {
		f := f
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return w.writeFile(f, format)
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	m := w.Metrics()
	w.cfg.Log().Info("files written",
		zap.String("target", w.outDir),
		zap.Int("files", m.FilesGenerated),
		zap.Int64("bytes", m.TotalBytes),
	)
	return nil
}

// writeFile renders, formats and writes a single file.
func (w *Writer) writeFile(f GeneratedFile, format bool) error {
	start := time.Now()
	var buf bytes.Buffer
	if err := f.File.Render(&buf); err != nil {
		return NewGenerationError("render", f.Name, "", err)
	}
	rendered := time.Since(start)

	fullPath := filepath.Join(w.outDir, f.Name)
	out := buf.Bytes()
	var formatTime time.Duration
	if format {
		start = time.Now()
		formatted, err := imports.Process(fullPath, out, nil)
		if err != nil {
			// Write unformatted file for debugging (errors intentionally ignored as we're already in error state)
			debugPath := fullPath + ".error"
			_ = os.MkdirAll(filepath.Dir(debugPath), 0o755)
			_ = os.WriteFile(debugPath, out, 0o644)
			return NewGenerationError("format", f.Name, fmt.Sprintf("unformatted written to %s", debugPath), err)
		}
		out = formatted
		formatTime = time.Since(start)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return NewGenerationError("write", f.Name, "create directory", err)
	}
	if err := os.WriteFile(fullPath, out, 0o644); err != nil {
		return NewGenerationError("write", f.Name, "", err)
	}

	w.mu.Lock()
	w.metrics.FilesGenerated++
	w.metrics.TotalBytes += int64(len(out))
	w.metrics.RenderTime += rendered
	w.metrics.FormatTime += formatTime
	w.mu.Unlock()

	w.cfg.Log().Debug("file written", zap.String("file", f.Name), zap.Int("bytes", len(out)))
	return nil
}
