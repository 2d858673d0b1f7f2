package prof

import (
	"time"

	"v.io/x/lib/vlog"
)

// Track logs the duration since start with the given name at verbosity 1.
// Use it as defer prof.Track(time.Now(), "name").
func Track(start time.Time, name string) time.Duration {
	elapsed := time.Since(start)
	vlog.VI(1).Infof("%s took %s", name, elapsed)
	return elapsed
}
