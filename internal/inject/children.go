package inject

import (
	"github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v3/process"
)

// ChildPIDs returns the direct child process IDs of pid (nil if it has
// none). Nothing else in this module calls it. Polling the process tree
// this way can miss very short-lived children, but never blocks the host
// and needs no cooperation from the target.
func ChildPIDs(pid int) ([]int, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, errors.Wrap(err, "inject: open process handle")
	}
	children, err := proc.Children()
	if err != nil {
		if errors.Is(err, process.ErrorNoChildren) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "inject: enumerate children")
	}

	pids := make([]int, 0, len(children))
	for _, child := range children {
		pids = append(pids, int(child.Pid))
	}
	return pids, nil
}
