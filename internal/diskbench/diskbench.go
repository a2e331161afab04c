// Package diskbench implements the individual-disk benchmark spec.md names
// as out of scope but whose result model and CLI surface require to exist
// (SPEC_FULL.md §6.1): serial, parallel and seek_stress modes over a raw
// block device, grounded in original_source/benchmarks/disk_enhanced.go's
// three test modes, mechanically reusing internal/workload's fan-out
// discipline.
package diskbench

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/nickf1227/tn-bench-go/internal/model"
)

// Mode is one of the three test modes.
type Mode string

const (
	ModeSerial     Mode = "serial"
	ModeParallel   Mode = "parallel"
	ModeSeekStress Mode = "seek_stress"
)

// seekStressReadGiB is the fixed per-thread read size for seek_stress mode,
// matching disk_enhanced.py's base_read_size_gib = 50.
const seekStressReadGiB = 50

// Target is one disk under test.
type Target struct {
	Name      string // device name, e.g. "sda"
	Model     string
	Serial    string
	ZFSGUID   string
	Pool      string
	SizeBytes int64
}

// Benchmark implements the capability interface named in spec.md §9
// (validate, run, space_required_gib) for the disk-benchmark variants.
type Benchmark struct {
	mode           Mode
	blockSizeBytes int64
	iterations     int
	seekThreads    int
	memoryGiB      float64
	logger         *log.Logger
}

func New(mode Mode, blockSizeBytes int64, iterations, seekThreads int, memoryGiB float64, logger *log.Logger) *Benchmark {
	return &Benchmark{
		mode:           mode,
		blockSizeBytes: blockSizeBytes,
		iterations:     iterations,
		seekThreads:    seekThreads,
		memoryGiB:      memoryGiB,
		logger:         logger,
	}
}

// Validate reports whether there is anything to test.
func (b *Benchmark) Validate(targets []Target) bool {
	return len(targets) > 0
}

// SpaceRequiredGiB is always 0: the disk benchmark reads raw block devices
// and needs no dataset space (disk_enhanced.py's space_required_gib
// property).
func (b *Benchmark) SpaceRequiredGiB() int {
	return 0
}

// Run dispatches to the selected mode and returns one model.DiskResult per
// disk, with TestMode set so multiple modes selected in one run stay
// distinguishable when concatenated (spec.md §9's resolved Open Question:
// kept separate, not merged).
func (b *Benchmark) Run(ctx context.Context, targets []Target) []model.DiskResult {
	switch b.mode {
	case ModeSerial:
		return b.runSerial(ctx, targets)
	case ModeParallel:
		return b.runParallel(ctx, targets)
	case ModeSeekStress:
		return b.runSeekStress(ctx, targets)
	default:
		b.logger.Printf("ERROR: unknown disk benchmark mode %q", b.mode)
		return nil
	}
}

// readSizeGiB bounds the serial/parallel read at physical memory / 2 to
// avoid filling page cache and inflating the number (disk_enhanced.py's
// min(disk_size, mem_gib/2) sizing, restated per SPEC_FULL.md §6.1 with the
// mem/2 cap applied uniformly rather than disk_enhanced.py's mem/1 cap).
func (b *Benchmark) readSizeGiB(t Target) float64 {
	diskGiB := float64(t.SizeBytes) / (1 << 30)
	memCap := b.memoryGiB / 2
	if diskGiB < memCap {
		return diskGiB
	}
	return memCap
}

func (b *Benchmark) runSerial(ctx context.Context, targets []Target) []model.DiskResult {
	results := make([]model.DiskResult, 0, len(targets))
	for _, t := range targets {
		speeds := make([]float64, 0, b.iterations)
		readGiB := b.readSizeGiB(t)
		for i := 0; i < b.iterations; i++ {
			speed, err := readRawDevice(ctx, t.Name, readGiB, b.blockSizeBytes)
			if err != nil {
				b.logger.Printf("WARN: serial read of %s failed: %v", t.Name, err)
				continue
			}
			speeds = append(speeds, speed)
		}
		results = append(results, b.assemble(t, speeds, string(ModeSerial)))
	}
	return results
}

func (b *Benchmark) runParallel(ctx context.Context, targets []Target) []model.DiskResult {
	speedsByDisk := make(map[string][]float64, len(targets))
	for i := 0; i < b.iterations; i++ {
		var wg sync.WaitGroup
		var mu sync.Mutex
		wg.Add(len(targets))
		for _, t := range targets {
			t := t
			go func() {
				defer wg.Done()
				speed, err := readRawDevice(ctx, t.Name, b.readSizeGiB(t), b.blockSizeBytes)
				if err != nil {
					b.logger.Printf("WARN: parallel read of %s failed: %v", t.Name, err)
					return
				}
				mu.Lock()
				speedsByDisk[t.Name] = append(speedsByDisk[t.Name], speed)
				mu.Unlock()
			}()
		}
		wg.Wait()
	}

	results := make([]model.DiskResult, 0, len(targets))
	for _, t := range targets {
		results = append(results, b.assemble(t, speedsByDisk[t.Name], string(ModeParallel)))
	}
	return results
}

func (b *Benchmark) runSeekStress(ctx context.Context, targets []Target) []model.DiskResult {
	perDiskIterationAvg := make(map[string][]float64, len(targets))

	for i := 0; i < b.iterations; i++ {
		threadSpeeds := make(map[string][]float64, len(targets))
		var mu sync.Mutex
		var wg sync.WaitGroup

		for _, t := range targets {
			t := t
			diskGiB := float64(t.SizeBytes) / (1 << 30)
			readGiB := seekStressReadGiB
			if diskGiB < float64(readGiB) {
				readGiB = int(diskGiB)
			}

			for thread := 0; thread < b.seekThreads; thread++ {
				wg.Add(1)
				go func(readGiB int) {
					defer wg.Done()
					speed, err := readRawDevice(ctx, t.Name, float64(readGiB), b.blockSizeBytes)
					if err != nil {
						b.logger.Printf("WARN: seek_stress read of %s failed: %v", t.Name, err)
						return
					}
					mu.Lock()
					threadSpeeds[t.Name] = append(threadSpeeds[t.Name], speed)
					mu.Unlock()
				}(readGiB)
			}
		}
		wg.Wait()

		for name, speeds := range threadSpeeds {
			perDiskIterationAvg[name] = append(perDiskIterationAvg[name], mean(speeds))
		}
	}

	results := make([]model.DiskResult, 0, len(targets))
	for _, t := range targets {
		results = append(results, b.assemble(t, perDiskIterationAvg[t.Name], string(ModeSeekStress)))
	}
	return results
}

func (b *Benchmark) assemble(t Target, speeds []float64, mode string) model.DiskResult {
	return model.DiskResult{
		Name:    t.Name,
		Model:   t.Model,
		Serial:  t.Serial,
		ZFSGUID: t.ZFSGUID,
		Pool:    t.Pool,
		SizeGiB: float64(t.SizeBytes) / (1 << 30),
		Benchmark: model.DiskBenchmarkResult{
			Speeds:       speeds,
			AverageSpeed: mean(speeds),
			Iterations:   b.iterations,
			TestMode:     mode,
		},
	}
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// readRawDevice reads readSizeGiB from the named block device in
// blockSizeBytes chunks, discarding the data, and returns MiB/s. Go's
// standard library has no portable O_DIRECT, so this is a plain buffered
// read rather than disk_enhanced.go's `dd ... bs=... count=...` shell-out;
// documented caveat, not a silent approximation (SPEC_FULL.md §6.1).
func readRawDevice(ctx context.Context, deviceName string, readSizeGiB float64, blockSizeBytes int64) (float64, error) {
	path := "/dev/" + deviceName
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	totalBytes := int64(readSizeGiB * (1 << 30))
	if totalBytes <= 0 || blockSizeBytes <= 0 {
		return 0, fmt.Errorf("invalid read size or block size for %s", deviceName)
	}

	buf := make([]byte, blockSizeBytes)
	var read int64
	start := time.Now()
	for read < totalBytes {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		want := blockSizeBytes
		if remain := totalBytes - read; remain < want {
			want = remain
		}
		n, err := f.Read(buf[:want])
		read += int64(n)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", path, err)
		}
	}
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return 0, nil
	}
	return float64(read) / (1 << 20) / elapsed, nil
}
