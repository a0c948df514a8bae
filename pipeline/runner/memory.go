package runner

import (
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/Capstone-NovoCert/novo/errors"
)

const gib = 1 << 30

// AvailableMemoryFunc reports memory available to new processes, in bytes
type AvailableMemoryFunc func() (uint64, error)

// SystemAvailableMemory reads available memory from the OS
func SystemAvailableMemory() (uint64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get memory stats")
	}
	return v.Available, nil
}

// checkHeap warns when a requested JVM heap is larger than the memory
// currently available. It never blocks the run.
func checkHeap(requestedGiB int, available AvailableMemoryFunc, log *zap.SugaredLogger) bool {
	if available == nil || requestedGiB <= 0 {
		return true
	}
	avail, err := available()
	if err != nil {
		log.Debugw("Skipping heap check", "error", err)
		return true
	}
	if uint64(requestedGiB)*gib <= avail {
		return true
	}
	log.Warnw("Requested JVM heap exceeds available memory",
		"requested_gib", requestedGiB,
		"available_gib", float64(avail)/gib,
	)
	return false
}
