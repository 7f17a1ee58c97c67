// Package procreader is the exporter's "ProcessReader" collaborator: a
// narrow wrapper over prometheus/procfs that builds per-process snapshots
// with lazy detail gathering, mirroring the teacher's proc/read.go.
package procreader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/prometheus/procfs"
)

// userHZ is the kernel clock tick rate procfs's own CPUTime() helper
// assumes; mirrored here since that helper doesn't expose user/system
// split, which the process metrics need for their "mode" label.
const userHZ = 100

// Proc is a snapshot of one process. Exe/ExeBase/Comm/Cmdline and the
// stat-derived fields are always populated; ReadBytes/WriteBytes/OpenFDs
// are zero until GatherRemainingInfo is called — deferred until a rule
// has accepted this process, per the lazy-detail design (§9).
type Proc struct {
	raw procfs.Proc

	PID     int
	Exe     string
	ExeBase string
	Comm    string
	Cmdline string

	UserSeconds   float64
	SystemSeconds float64
	ResidentBytes float64
	VirtualBytes  float64

	ReadBytes  float64
	WriteBytes float64
	OpenFDs    float64
}

// GatherRemainingInfo fills in the fields that require extra syscalls:
// I/O counters and open file descriptor count.
func (p *Proc) GatherRemainingInfo() error {
	io, err := p.raw.NewIO()
	if err != nil {
		return fmt.Errorf("procreader: read io for pid %d: %w", p.PID, err)
	}
	p.ReadBytes = float64(io.ReadBytes)
	p.WriteBytes = float64(io.WriteBytes)

	fds, err := p.raw.FileDescriptorsLen()
	if err != nil {
		return fmt.Errorf("procreader: read fd count for pid %d: %w", p.PID, err)
	}
	p.OpenFDs = float64(fds)
	return nil
}

func exeBaseOf(exe string, cmdline []string) string {
	candidate := exe
	if candidate == "" && len(cmdline) > 0 {
		candidate = cmdline[0]
	}
	return filepath.Base(candidate)
}

func joinCmdline(cmdline []string) string {
	return strings.Join(cmdline, " ")
}
