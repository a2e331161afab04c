package platform

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// DatasetInfo is one entry from pool.dataset.query.
type DatasetInfo struct {
	Name           string
	Mountpoint     string
	AvailableBytes int64
}

type datasetQueryResponse struct {
	Name       string `json:"name"`
	Mountpoint string `json:"mountpoint"`
	Available  struct {
		Parsed *int64 `json:"parsed"`
		Value  string `json:"value"`
	} `json:"available"`
}

// ListDatasets calls pool.dataset.query.
func (a *Adapter) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	var resp []datasetQueryResponse
	if err := midcltCall(ctx, &resp, "pool.dataset.query"); err != nil {
		return nil, err
	}

	out := make([]DatasetInfo, 0, len(resp))
	for _, d := range resp {
		avail := int64(0)
		if d.Available.Parsed != nil {
			avail = *d.Available.Parsed
		} else {
			avail = parseHumanBytes(d.Available.Value)
		}
		out = append(out, DatasetInfo{Name: d.Name, Mountpoint: d.Mountpoint, AvailableBytes: avail})
	}
	return out, nil
}

// parseHumanBytes parses a human value string like "512G", "1.5T" into
// bytes using binary multipliers, matching
// original_source/core/dataset.py's get_dataset_available_bytes fallback.
func parseHumanBytes(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	unit := s[len(s)-1]
	numeric := s
	mult := 1.0
	switch unit {
	case 'T':
		mult = 1 << 40
		numeric = s[:len(s)-1]
	case 'G':
		mult = 1 << 30
		numeric = s[:len(s)-1]
	case 'M':
		mult = 1 << 20
		numeric = s[:len(s)-1]
	case 'K':
		mult = 1 << 10
		numeric = s[:len(s)-1]
	case 'B':
		numeric = s[:len(s)-1]
	}
	val, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0
	}
	return int64(val * mult)
}

// CreateDataset creates "<pool>/tn-bench" with the given recordsize
// (normalised uppercase), compression=off, sync=disabled and returns its
// mountpoint. If the dataset already exists, its existing mountpoint is
// returned as-is and recordsize is NOT reconciled — spec §4.2's documented
// limitation, not a bug to be silently fixed (see SPEC_FULL.md §10).
func (a *Adapter) CreateDataset(ctx context.Context, pool, recordsize string) (string, error) {
	datasetName := pool + "/tn-bench"

	existing, err := a.ListDatasets(ctx)
	if err != nil {
		return "", err
	}
	for _, ds := range existing {
		if ds.Name == datasetName {
			return ds.Mountpoint, nil
		}
	}

	config := map[string]interface{}{
		"name":       datasetName,
		"recordsize": strings.ToUpper(recordsize),
		"compression": "OFF",
		"sync":        "DISABLED",
	}
	if err := midcltCall(ctx, nil, "pool.dataset.create", config); err != nil {
		return "", err
	}

	existing, err = a.ListDatasets(ctx)
	if err != nil {
		return "", err
	}
	for _, ds := range existing {
		if ds.Name == datasetName {
			return ds.Mountpoint, nil
		}
	}
	return "", newError("CreateDataset", NotFound, fmt.Errorf("dataset %s not found after creation", datasetName))
}

// DeleteDataset calls pool.dataset.delete. A nil error does NOT guarantee
// the dataset is gone — spec §4.1: "deletion may return OK while the
// dataset is still visible, so the caller MUST re-query" (see
// internal/dataset.Manager.DeleteDatasetRobust).
func (a *Adapter) DeleteDataset(ctx context.Context, name string, recursive, force bool) error {
	args := map[string]interface{}{"id": name, "recursive": recursive}
	if force {
		args["force"] = true
	}
	return midcltCall(ctx, nil, "pool.dataset.delete", args)
}

// DetectL2ARC reports true when any line of `zpool status <pool>` output,
// with surrounding whitespace trimmed, is exactly "cache" (the L2ARC vdev
// group). Where that line appears in the output is not checked.
func (a *Adapter) DetectL2ARC(ctx context.Context, pool string) (bool, error) {
	proc, err := Spawn(ctx, "zpool", "status", pool)
	if err != nil {
		return false, err
	}
	defer proc.Terminate()

	found := false
	for line := range proc.Lines() {
		if strings.TrimSpace(line) == "cache" {
			found = true
		}
	}
	return found, nil
}
