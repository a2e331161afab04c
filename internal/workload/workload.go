// Package workload implements the Workload Driver (component C3): the
// parallel write/read fan-out for one (pool, thread_count, iteration)
// tuple, with segment-change signalling at the write/read boundary.
package workload

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// BytesPerThread is the fixed per-thread, per-iteration byte budget (20480
// blocks of 1 MiB = 20 GiB), independent of pool_block_size per SPEC_FULL.md
// §10's resolved Open Question.
const BytesPerThread = 20480 * (1 << 20)

// IterationResult is the outcome of one Run call.
type IterationResult struct {
	WriteSpeedMBps float64
	ReadSpeedMBps  float64
	BytesWritten   int64
}

// Driver runs iterations for a fixed (dataset path, block size).
type Driver struct {
	logger *log.Logger
}

func New(logger *log.Logger) *Driver {
	return &Driver{logger: logger}
}

// Sweep returns the thread-count sweep [1, cores/4, cores/2, cores],
// duplicates allowed — spec.md §4.3 requires no de-duplication so the
// result stays shape-stable even when cores is small.
func Sweep(cores int) []int {
	if cores < 1 {
		cores = 1
	}
	return []int{1, max1(cores / 4), max1(cores / 2), cores}
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Run drives one iteration: write fan-out, then read fan-out, then
// cleanup. onSegmentChange is called exactly twice, at the write-start and
// read-start boundaries (spec.md §4.3 steps 1 and 4).
func (d *Driver) Run(ctx context.Context, threads int, blockSizeBytes int64, filePrefix, datasetPath string, onSegmentChange func(label string)) (IterationResult, error) {
	writeLabel := fmt.Sprintf("%dT-write", threads)
	readLabel := fmt.Sprintf("%dT-read", threads)

	paths := make([]string, threads)
	for i := 0; i < threads; i++ {
		paths[i] = filepath.Join(datasetPath, fmt.Sprintf("%s_%d.dat", filePrefix, i))
	}

	defer d.cleanup(paths)

	onSegmentChange(writeLabel)
	writeElapsed, err := d.fanOut(ctx, threads, func(i int) error {
		return writeOneFile(ctx, paths[i], blockSizeBytes)
	})
	if err != nil {
		return IterationResult{}, fmt.Errorf("write fan-out: %w", err)
	}

	bytesWritten := int64(threads) * BytesPerThread
	writeSpeed := float64(bytesWritten) / (writeElapsed.Seconds() * float64(1<<20))

	onSegmentChange(readLabel)
	readElapsed, err := d.fanOut(ctx, threads, func(i int) error {
		return readOneFile(ctx, paths[i])
	})
	if err != nil {
		return IterationResult{}, fmt.Errorf("read fan-out: %w", err)
	}
	readSpeed := float64(bytesWritten) / (readElapsed.Seconds() * float64(1<<20))

	return IterationResult{
		WriteSpeedMBps: writeSpeed,
		ReadSpeedMBps:  readSpeed,
		BytesWritten:   bytesWritten,
	}, nil
}

// fanOut runs task(i) for i in [0,threads) concurrently, all started
// before timing begins and all awaited before it ends (spec.md §4.3 step
// 2: "one shared start-time/end-time pair bounds the whole fan-out").
func (d *Driver) fanOut(ctx context.Context, threads int, task func(i int) error) (time.Duration, error) {
	var wg sync.WaitGroup
	errs := make([]error, threads)
	begin := make(chan struct{})

	wg.Add(threads)
	for i := 0; i < threads; i++ {
		i := i
		go func() {
			defer wg.Done()
			<-begin
			errs[i] = task(i)
		}()
	}
	start := time.Now()
	close(begin)
	wg.Wait()
	elapsed := time.Since(start)

	for _, err := range errs {
		if err != nil {
			return elapsed, err
		}
	}
	return elapsed, nil
}

func writeOneFile(ctx context.Context, path string, blockSizeBytes int64) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	remaining := int64(BytesPerThread)
	buf := make([]byte, blockSizeBytes)
	for remaining > 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n := blockSizeBytes
		if remaining < n {
			n = remaining
		}
		if _, err := io.ReadFull(rand.Reader, buf[:n]); err != nil {
			return err
		}
		if _, err := f.Write(buf[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return f.Sync()
}

func readOneFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	_, err = io.Copy(io.Discard, f)
	return err
}

// cleanup removes the per-iteration files; best-effort, matching spec.md
// §4.3 step 6's "must happen before returning" requirement via defer.
func (d *Driver) cleanup(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			d.logger.Printf("WARN: cleanup %s: %v", p, err)
		}
	}
}

// CleanupResidual removes any leftover "file_*.dat" entries under dir,
// matching the coordinator's best-effort post-pool cleanup hook (spec.md
// §4.7 step 9).
func CleanupResidual(dir string, logger *log.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matched, _ := filepath.Match("file_*.dat", e.Name())
		if !matched {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.Remove(p); err != nil {
			logger.Printf("WARN: residual cleanup %s: %v", p, err)
		}
	}
}
