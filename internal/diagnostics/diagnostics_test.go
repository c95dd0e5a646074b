package diagnostics

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectSystemInfo(t *testing.T) {
	t.Parallel()

	info := CollectSystemInfo()

	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Architecture)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Positive(t, info.NumCPU)
	assert.Positive(t, info.PID)
	assert.NotEmpty(t, info.Hostname)
}
