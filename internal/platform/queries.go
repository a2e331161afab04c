package platform

import (
	"context"

	"github.com/nickf1227/tn-bench-go/internal/model"
)

// Adapter is the Platform Adapter (C1): it invokes the NAS management API
// and spawns long-running/short-lived child processes, abstracting the OS
// boundary per spec §4.1. All query operations are read-only and
// idempotent; creation/deletion are non-atomic from the caller's view.
type Adapter struct{}

func NewAdapter() *Adapter { return &Adapter{} }

type systemInfoResponse struct {
	Version       string    `json:"version"`
	LoadAvg       []float64 `json:"loadavg"`
	Model         string    `json:"model"`
	Cores         int       `json:"cores"`
	PhysicalCores int       `json:"physical_cores"`
	SystemProduct string    `json:"system_product"`
	PhysMem       int64     `json:"physmem"`
}

// QuerySystemInfo calls system.info.
func (a *Adapter) QuerySystemInfo(ctx context.Context) (model.SystemInfo, error) {
	var resp systemInfoResponse
	if err := midcltCall(ctx, &resp, "system.info"); err != nil {
		return model.SystemInfo{}, err
	}

	info := model.SystemInfo{
		OSVersion:     resp.Version,
		CPUModel:      resp.Model,
		LogicalCores:  resp.Cores,
		PhysicalCores: resp.PhysicalCores,
		SystemProduct: resp.SystemProduct,
		MemoryGiB:     float64(resp.PhysMem) / (1024 * 1024 * 1024),
	}
	if len(resp.LoadAvg) == 3 {
		info.LoadAverage1m = resp.LoadAvg[0]
		info.LoadAverage5m = resp.LoadAvg[1]
		info.LoadAverage15m = resp.LoadAvg[2]
	}
	return info, nil
}

type poolQueryResponse struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Status   string `json:"status"`
	Size     int64  `json:"size"`
	Topology struct {
		Data []struct {
			Name     string `json:"name"`
			Type     string `json:"type"`
			Children []struct {
				GUID string `json:"guid"`
			} `json:"children"`
		} `json:"data"`
	} `json:"topology"`
}

// QueryPools calls pool.query and returns pools in API order.
func (a *Adapter) QueryPools(ctx context.Context) ([]model.PoolInfo, error) {
	var resp []poolQueryResponse
	if err := midcltCall(ctx, &resp, "pool.query"); err != nil {
		return nil, err
	}

	pools := make([]model.PoolInfo, 0, len(resp))
	for _, p := range resp {
		vdevs := make([]model.Vdev, 0, len(p.Topology.Data))
		for _, v := range p.Topology.Data {
			vdevs = append(vdevs, model.Vdev{
				Name:      v.Name,
				Type:      v.Type,
				DiskCount: len(v.Children),
			})
		}
		pools = append(pools, model.PoolInfo{
			Name:          p.Name,
			Path:          p.Path,
			Status:        p.Status,
			CapacityBytes: p.Size,
			Vdevs:         vdevs,
		})
	}
	return pools, nil
}

// poolMembership builds disk-GUID -> pool-name from pool.query's topology,
// the way original_source/truenas-bench.py's get_pool_membership() does.
func (a *Adapter) poolMembership(ctx context.Context) (map[string]string, error) {
	var resp []poolQueryResponse
	if err := midcltCall(ctx, &resp, "pool.query"); err != nil {
		return nil, err
	}
	membership := make(map[string]string)
	for _, p := range resp {
		for _, v := range p.Topology.Data {
			for _, child := range v.Children {
				if child.GUID != "" {
					membership[child.GUID] = p.Name
				}
			}
		}
	}
	return membership, nil
}

type diskQueryResponse struct {
	Name    string `json:"name"`
	Model   string `json:"model"`
	Serial  string `json:"serial"`
	Size    int64  `json:"size"`
	ZFSGUID string `json:"zfs_guid"`
}

// QueryDisks calls disk.query, resolving each disk's owning pool via a
// pool.query-derived membership map. Disks that cannot be mapped get
// model.PoolNone.
func (a *Adapter) QueryDisks(ctx context.Context) ([]model.DiskInfo, error) {
	var resp []diskQueryResponse
	if err := midcltCall(ctx, &resp, "disk.query"); err != nil {
		return nil, err
	}

	membership, err := a.poolMembership(ctx)
	if err != nil {
		return nil, err
	}

	disks := make([]model.DiskInfo, 0, len(resp))
	for _, d := range resp {
		poolName := model.PoolNone
		if d.ZFSGUID != "" {
			if name, ok := membership[d.ZFSGUID]; ok {
				poolName = name
			}
		}
		disks = append(disks, model.DiskInfo{
			Name:      d.Name,
			Model:     d.Model,
			Serial:    d.Serial,
			SizeBytes: d.Size,
			ZFSGUID:   d.ZFSGUID,
			PoolName:  poolName,
		})
	}
	return disks, nil
}
