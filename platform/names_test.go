package platform

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixClock(t *testing.T) {
	t.Helper()
	prevNow, prevID := now, newID
	now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
	newID = func() string { return "0123abcd-4567-89ef-0123-456789abcdef" }
	t.Cleanup(func() { now, newID = prevNow, prevID })
}

func TestUniqueName(t *testing.T) {
	fixClock(t)

	assert.Equal(t, "xgb-loan-240309-140507-0123abcd", UniqueName("xgb-loan", MaxJobNameLen))

	got := UniqueName("sagemaker-xgboost-tuning", MaxTuningJobNameLen)
	assert.Len(t, got, MaxTuningJobNameLen)
	assert.Equal(t, "sagemaker-240309-140507-0123abcd", got)
	assert.False(t, strings.Contains(got, "--"))

	assert.Equal(t, "240309-140507-0123abcd", UniqueName("", MaxJobNameLen))
	assert.Equal(t, "0309-140507-0123abcd", UniqueName("x", 20))
}

func TestUniqueNameDiffers(t *testing.T) {
	a := UniqueName("job", MaxJobNameLen)
	b := UniqueName("job", MaxJobNameLen)
	assert.NotEqual(t, a, b)
}
