package common

import (
	"os"
	"runtime"
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

const (
	smallMemLimit = 1 << 30 // 1GiB
	largeMemLimit = 4 << 30 // 4GiB
)

// InitRuntime applies a soft memory limit sized by CPU count unless
// GOMEMLIMIT is set, then logs the runtime settings. The gateway spends its
// time waiting on RPC nodes, so GOGC and GOMAXPROCS keep Go's defaults.
func InitRuntime() {
	if os.Getenv("GOMEMLIMIT") == "" {
		limit := int64(smallMemLimit)
		if runtime.NumCPU() > 4 {
			limit = largeMemLimit
		}
		debug.SetMemoryLimit(limit)
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	log.Info().
		Int("num_cpu", runtime.NumCPU()).
		Int("gomaxprocs", runtime.GOMAXPROCS(0)).
		Int64("mem_limit_mb", debug.SetMemoryLimit(-1)/1024/1024).
		Uint64("heap_sys_mb", mem.HeapSys/1024/1024).
		Str("go_version", runtime.Version()).
		Msg("[runtime] settings")
}
