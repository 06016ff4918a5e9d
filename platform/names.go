package platform

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Name length limits enforced by SageMaker.
const (
	MaxJobNameLen       = 63
	MaxTuningJobNameLen = 32
)

var (
	now   = time.Now
	newID = uuid.NewString
)

// UniqueName returns base-<yymmdd-hhmmss>-<8 hex chars>, trimming base so
// the result fits in maxLen.
func UniqueName(base string, maxLen int) string {
	suffix := now().UTC().Format("060102-150405") + "-" + strings.ReplaceAll(newID(), "-", "")[:8]
	room := maxLen - len(suffix) - 1
	if room < 1 {
		return suffix[len(suffix)-maxLen:]
	}
	if len(base) > room {
		base = base[:room]
	}
	base = strings.TrimRight(base, "-")
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}
