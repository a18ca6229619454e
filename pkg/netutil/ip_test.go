package netutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetOutboundIP(t *testing.T) {
	ip := GetOutboundIP()
	assert.NotNil(t, ip)
	assert.False(t, ip.IsUnspecified())
}
