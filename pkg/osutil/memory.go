// Package osutil inspects the host the process runs on.
package osutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/pbnjay/memory"
)

// cgroup v1 reports this page aligned MaxInt64 when no limit is set
//
// See https://unix.stackexchange.com/questions/420906/what-is-the-value-for-the-cgroups-limit-in-bytes-if-the-memory-is-not-restricte
const unrestrictedCgroupV1Limit = 9223372036854771712

var cgroupLimitFiles = []string{
	"/sys/fs/cgroup/memory.max",
	"/sys/fs/cgroup/memory/memory.limit_in_bytes",
}

// GetTotalMemory returns the memory available to the process, preferring a
// container's cgroup limit over the host total.
func GetTotalMemory() uint64 {
	for _, path := range cgroupLimitFiles {
		contents, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if limit, ok := parseCgroupLimit(string(contents)); ok {
			return limit
		}
	}
	return memory.TotalMemory()
}

func parseCgroupLimit(contents string) (uint64, bool) {
	limit, err := strconv.ParseUint(strings.TrimSpace(contents), 10, 64)
	if err != nil || limit == 0 || limit == unrestrictedCgroupV1Limit {
		// cgroup v2 writes "max" for no limit, which fails to parse
		return 0, false
	}
	return limit, true
}
