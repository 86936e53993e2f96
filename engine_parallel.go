package refscope

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/jward/refscope/internal/store"
)

// indexFilesParallel indexes files using a three-phase pipeline:
//
//	Phase A (serial):   Hash check, delete old data, insert file records.
//	Phase B (parallel): Parse and extract via worker pool (each with own Runtime).
//	Phase C (serial):   Commit batches to SQLite.
func (e *Engine) indexFilesParallel(ctx context.Context, paths []string, force bool) error {
	// ---- Phase A: Serial file preparation ----
	var items []workItem
	for _, path := range paths {
		item, skip, err := e.prepareFile(path, force, store.NewBatchedStore())
		if err != nil {
			return fmt.Errorf("prepare %s: %w", path, err)
		}
		if skip {
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil
	}

	// ---- Phase B: Parallel extraction ----
	numWorkers := e.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = max(1, min(numWorkers, len(items)))

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item workItem
		err  error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				if err := ctx.Err(); err != nil {
					resultCh <- result{item: item, err: err}
					continue
				}
				resultCh <- result{item: item, err: e.extractFile(ctx, item)}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	var errs []error
	for res := range resultCh {
		if res.err != nil {
			// Drop the file record so the next run retries it.
			_ = e.store.DeleteFileData(res.item.fileID)
			errs = append(errs, fmt.Errorf("extract %s: %w", res.item.path, res.err))
			continue
		}
		if err := e.store.CommitBatch(res.item.batch); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// extractFile runs the extraction script for a single file into its
// BatchedStore. Each call creates its own Runtime so tree-sitter parsing is
// goroutine-safe.
func (e *Engine) extractFile(ctx context.Context, item workItem) error {
	rt := e.newRuntime(item.batch)
	if err := rt.ExtractFile(ctx, item.fileID, item.path, item.lang, item.content); err != nil {
		return fmt.Errorf("extraction script: %w", err)
	}
	return nil
}
