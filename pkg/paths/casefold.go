package paths

import (
	"os"
	"strings"
	"sync"

	"github.com/arthur-debert/deltapack/pkg/logging"
)

// CaseProbe detects whether a filesystem compares paths case sensitively.
// The result is cached per device id.
type CaseProbe struct {
	mu       sync.Mutex
	byDevice map[uint64]bool
}

// NewCaseProbe creates a probe with an empty cache
func NewCaseProbe() *CaseProbe {
	return &CaseProbe{byDevice: make(map[uint64]bool)}
}

// IsPathComparisonCaseSensitive stats path and its case-flipped counterpart.
// A missing path is reported as case-insensitive and is not cached; a path
// with no cased letters is reported as case sensitive.
func (c *CaseProbe) IsPathComparisonCaseSensitive(p string) bool {
	info, err := os.Stat(p)
	if err != nil {
		return false
	}

	dev := deviceID(info)

	c.mu.Lock()
	defer c.mu.Unlock()

	if sensitive, ok := c.byDevice[dev]; ok {
		return sensitive
	}

	flipped := strings.ToLower(p)
	if flipped == p {
		flipped = strings.ToUpper(p)
	}
	if flipped == p {
		return true
	}

	sensitive := true
	if other, err := os.Stat(flipped); err == nil {
		sensitive = !os.SameFile(info, other)
	}

	c.byDevice[dev] = sensitive
	logger := logging.GetLogger("paths.case")
	logger.Debug().
		Uint64("device", dev).
		Bool("caseSensitive", sensitive).
		Str("probe", p).
		Msg("Detected path case sensitivity")

	return sensitive
}
