package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the open file limit below which ingestion with many
// workers may run out of descriptors.
const MinFileDescriptors = 256

// CheckFileDescriptors checks the soft open file limit. A low limit is a
// warning: ingestion still works with fewer workers.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{
		Name: "file_descriptors",
	}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum: %d)", rLimit.Cur, MinFileDescriptors)
	if rLimit.Cur < MinFileDescriptors {
		result.Status = StatusWarn
		result.Details = "Run 'ulimit -n 1024' or lower ingest.workers"
		return result
	}
	result.Status = StatusPass
	return result
}
