package procreader

import (
	"fmt"

	"github.com/prometheus/procfs"
)

// Reader enumerates and reads /proc entries through procfs.
type Reader struct {
	fs procfs.FS
}

// NewReader opens a procfs filesystem rooted at mountPoint (normally
// "/proc").
func NewReader(mountPoint string) (*Reader, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("procreader: open %q: %w", mountPoint, err)
	}
	return &Reader{fs: fs}, nil
}

// AllProcs enumerates every process currently visible. A failure here is
// whole-scrape fatal for process discovery: there's nothing to iterate.
func (r *Reader) AllProcs() (procfs.Procs, error) {
	procs, err := r.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("procreader: enumerate processes: %w", err)
	}
	return procs, nil
}

// Build reads the always-needed fields for one process: stat, cmdline,
// and executable path. An empty comm or cmdline is not a failure — it's
// normal for kernel threads, which still need to be readable so a
// comm/exe-selector rule can match them. Only a genuine read error (the
// process likely exited mid-scrape) causes Build to fail.
func (r *Reader) Build(raw procfs.Proc) (*Proc, error) {
	stat, err := raw.NewStat()
	if err != nil {
		return nil, fmt.Errorf("procreader: stat pid %d: %w", raw.PID, err)
	}

	cmdline, err := raw.CmdLine()
	if err != nil {
		return nil, fmt.Errorf("procreader: cmdline pid %d: %w", raw.PID, err)
	}

	// Executable() can fail for processes whose exe symlink has gone
	// stale or is permission-denied; that's not fatal to the read, the
	// rule matcher just won't have an Exe candidate for this process.
	exe, _ := raw.Executable()

	return &Proc{
		raw:     raw,
		PID:     raw.PID,
		Exe:     exe,
		ExeBase: exeBaseOf(exe, cmdline),
		Comm:    stat.Comm,
		Cmdline: joinCmdline(cmdline),

		UserSeconds:   float64(stat.UTime) / userHZ,
		SystemSeconds: float64(stat.STime) / userHZ,
		ResidentBytes: float64(stat.ResidentMemory()),
		VirtualBytes:  float64(stat.VirtualMemory()),
	}, nil
}
