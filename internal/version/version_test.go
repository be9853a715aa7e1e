package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserAgent(t *testing.T) {
	old := Version
	Version = "1.2.0"
	t.Cleanup(func() { Version = old })

	assert.Equal(t, "vidbridge/1.2.0 ("+runtime.GOOS+"; "+runtime.GOARCH+")", UserAgent())
	assert.Equal(t, "1.2.0", GetVersion())
}
