package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPattern(t *testing.T) {
	assert.Equal(t, "rc:*", BuildPattern("rc", ""))
	assert.Equal(t, "rc:stock_data*", BuildPattern("rc", "stock_data"))
	assert.Equal(t, `rc:co\*\?*`, BuildPattern("rc", "co*?"))
	assert.Equal(t, `rc:\[x\]\\*`, BuildPattern("rc", `[x]\`))
}
