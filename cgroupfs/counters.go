package cgroupfs

import (
	"fmt"
	"math"

	"github.com/containerd/cgroups/v3"
	"github.com/containerd/cgroups/v3/cgroup1"
	"github.com/containerd/cgroups/v3/cgroup2"
)

// Counters is the resource-usage snapshot read from one cgroup,
// normalized across the v1/v2 kernel interface split (see
// SPEC_FULL.md's metric inventory).
type Counters struct {
	CPUUsageSeconds  float64
	MemoryUsageBytes float64
	MemoryLimitBytes float64
	MemoryLimitSet   bool
	MemoryFailCount  float64
}

func v1Subsystems(root string) cgroup1.Hierarchy {
	return func() ([]cgroup1.Subsystem, error) {
		return []cgroup1.Subsystem{
			cgroup1.NewCpuacct(root),
			cgroup1.NewMemory(root),
		}, nil
	}
}

// Counters reads resource counters for the cgroup, using cgroup2.Load on
// unified hierarchies and cgroup1.Load (cpuacct + memory subsystems)
// otherwise. mountpoint is the explorer's root.
func (c Cgroup) Counters(mountpoint string) (Counters, error) {
	if cgroups.Mode() == cgroups.Unified {
		return c.countersV2(mountpoint)
	}
	return c.countersV1(mountpoint)
}

func (c Cgroup) countersV2(mountpoint string) (Counters, error) {
	group := "/" + c.RelPath
	ctrl, err := cgroup2.Load(group, cgroup2.WithMountpoint(mountpoint))
	if err != nil {
		return Counters{}, fmt.Errorf("cgroupfs: load v2 cgroup %q: %w", c.RelPath, err)
	}
	stat, err := ctrl.Stat()
	if err != nil {
		return Counters{}, fmt.Errorf("cgroupfs: stat v2 cgroup %q: %w", c.RelPath, err)
	}

	var out Counters
	if cpu := stat.GetCPU(); cpu != nil {
		out.CPUUsageSeconds = float64(cpu.GetUsageUsec()) / 1e6
	}
	if mem := stat.GetMemory(); mem != nil {
		out.MemoryUsageBytes = float64(mem.GetUsage())
		if limit := mem.GetUsageLimit(); limit != math.MaxUint64 {
			out.MemoryLimitBytes = float64(limit)
			out.MemoryLimitSet = true
		}
	}
	if events := stat.GetMemoryEvents(); events != nil {
		out.MemoryFailCount = float64(events.GetOom())
	}
	return out, nil
}

func (c Cgroup) countersV1(mountpoint string) (Counters, error) {
	ctrl, err := cgroup1.Load(cgroup1.StaticPath(c.RelPath), cgroup1.WithHierarchy(v1Subsystems(mountpoint)))
	if err != nil {
		return Counters{}, fmt.Errorf("cgroupfs: load v1 cgroup %q: %w", c.RelPath, err)
	}
	stat, err := ctrl.Stat(cgroup1.IgnoreNotExist)
	if err != nil {
		return Counters{}, fmt.Errorf("cgroupfs: stat v1 cgroup %q: %w", c.RelPath, err)
	}

	var out Counters
	if cpu := stat.GetCPU(); cpu != nil && cpu.GetUsage() != nil {
		out.CPUUsageSeconds = float64(cpu.GetUsage().GetTotal()) / 1e9
	}
	if mem := stat.GetMemory(); mem != nil && mem.GetUsage() != nil {
		out.MemoryUsageBytes = float64(mem.GetUsage().GetUsage())
		if limit := mem.GetUsage().GetLimit(); limit != math.MaxUint64 {
			out.MemoryLimitBytes = float64(limit)
			out.MemoryLimitSet = true
		}
		out.MemoryFailCount = float64(mem.GetUsage().GetFailcnt())
	}
	return out, nil
}
