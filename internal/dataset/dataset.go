// Package dataset implements the Dataset Manager (component C2): ensuring
// the per-pool "<pool>/tn-bench" dataset exists with the correct record
// size before a run, validating free space against the thread sweep, and
// tearing the dataset down with retry-and-force escalation afterward.
package dataset

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/nickf1227/tn-bench-go/internal/platform"
)

const bytesPerThreadGiB = 20

// deleteRetryInterval matches spec.md §4.2 ("sleep ~= 1s, re-query").
const deleteRetryInterval = time.Second

// Manager wraps a platform.Adapter with dataset lifecycle operations.
// Grounded on the teacher's collector/storage.go pattern of a thin wrapper
// struct holding the adapter and a logger.
type Manager struct {
	adapter *platform.Adapter
	logger  *log.Logger
}

func New(adapter *platform.Adapter, logger *log.Logger) *Manager {
	return &Manager{adapter: adapter, logger: logger}
}

func datasetName(pool string) string {
	return pool + "/tn-bench"
}

// EnsureDataset makes sure "<pool>/tn-bench" exists, creating it with the
// given recordsize if absent. If it already exists its mountpoint is reused
// and its recordsize is NOT reconciled against recordsize — spec.md's
// documented present-behaviour caveat (SPEC_FULL.md §10). The existing
// dataset's recordsize is neither read nor compared; a log line noting the
// reuse is written every time.
func (m *Manager) EnsureDataset(ctx context.Context, pool, recordsize string) (string, error) {
	name := datasetName(pool)
	recordsize = NormalizeRecordsize(recordsize)

	existing, err := m.adapter.ListDatasets(ctx)
	if err != nil {
		return "", err
	}
	for _, ds := range existing {
		if ds.Name == name {
			m.logger.Printf("dataset %s already exists, reusing mountpoint %s (recordsize not reconciled)", name, ds.Mountpoint)
			return ds.Mountpoint, nil
		}
	}

	return m.adapter.CreateDataset(ctx, pool, recordsize)
}

// ValidateSpace reports whether the pool has at least 20 GiB per thread of
// free space, per spec.md §4.2.
func (m *Manager) ValidateSpace(ctx context.Context, pool string, threads int) (ok bool, availableGiB, requiredGiB float64, err error) {
	requiredGiB = float64(bytesPerThreadGiB * threads)

	datasets, err := m.adapter.ListDatasets(ctx)
	if err != nil {
		return false, 0, requiredGiB, err
	}

	name := datasetName(pool)
	var availBytes int64
	for _, ds := range datasets {
		if ds.Name == name {
			availBytes = ds.AvailableBytes
			break
		}
	}
	availableGiB = float64(availBytes) / (1 << 30)

	return availableGiB >= requiredGiB, availableGiB, requiredGiB, nil
}

// DeleteDatasetRobust attempts delete, sleeps ~1s, re-queries; escalates to
// force=true when attempts remain and the dataset is still visible. Returns
// true iff the final re-query shows absence (spec.md §4.2, testable
// property 3).
func (m *Manager) DeleteDatasetRobust(ctx context.Context, pool string, retries int, force bool) bool {
	name := datasetName(pool)

	for attempt := 0; attempt <= retries; attempt++ {
		useForce := force || attempt > 0
		if err := m.adapter.DeleteDataset(ctx, name, false, useForce); err != nil {
			m.logger.Printf("WARN: delete %s (attempt %d, force=%v): %v", name, attempt, useForce, err)
		}

		time.Sleep(deleteRetryInterval)

		gone, err := m.isAbsent(ctx, name)
		if err != nil {
			m.logger.Printf("WARN: re-query after delete %s: %v", name, err)
			continue
		}
		if gone {
			return true
		}
	}

	return false
}

func (m *Manager) isAbsent(ctx context.Context, name string) (bool, error) {
	datasets, err := m.adapter.ListDatasets(ctx)
	if err != nil {
		return false, err
	}
	for _, ds := range datasets {
		if ds.Name == name {
			return false, nil
		}
	}
	return true, nil
}

// PreRunSafetyCheck removes a stale "<pool>/tn-bench" dataset left over
// from a prior interrupted run, before the workload starts (spec.md §4.2).
func (m *Manager) PreRunSafetyCheck(ctx context.Context, pool string) bool {
	name := datasetName(pool)

	datasets, err := m.adapter.ListDatasets(ctx)
	if err != nil {
		m.logger.Printf("WARN: pre-run safety check for %s: %v", pool, err)
		return true
	}

	stale := false
	for _, ds := range datasets {
		if ds.Name == name {
			stale = true
			break
		}
	}
	if !stale {
		return true
	}

	m.logger.Printf("stale dataset %s found, removing before run", name)
	return m.DeleteDatasetRobust(ctx, pool, 3, true)
}

// NormalizeRecordsize mirrors the platform adapter's uppercase-recordsize
// convention. EnsureDataset applies it to the requested recordsize before
// passing it to dataset creation, so "128k" and "128K" are treated as the
// same recordsize.
func NormalizeRecordsize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
