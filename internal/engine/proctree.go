package engine

import (
	"github.com/shirou/gopsutil/process"
)

// descendants walks the process tree below pid breadth-first. Lookup errors
// just end the walk for that branch; the process group signal still covers
// anything that stayed in the group.
func descendants(pid int) []*process.Process {
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil
	}
	var out []*process.Process
	queue := []*process.Process{root}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		children, err := p.Children()
		if err != nil {
			continue
		}
		out = append(out, children...)
		queue = append(queue, children...)
	}
	return out
}
