package fetch

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPublicAddr(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		addr   string
		public bool
	}{
		{"8.8.8.8", true},
		{"1.1.1.1", true},
		{"127.0.0.1", false},
		{"10.1.2.3", false},
		{"172.16.0.1", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"100.64.0.1", false},
		{"::ffff:127.0.0.1", false},
		{"::1", false},
		{"fe80::1", false},
		{"2606:4700:4700::1111", true},
	}
	for _, f := range fixtures {
		assert.Equal(f.public, IsPublicAddr(netip.MustParseAddr(f.addr)), f.addr)
	}
}

func TestPublicOnlyControl(t *testing.T) {
	assert := assert.New(t)
	assert.NoError(publicOnlyControl("tcp4", "8.8.8.8:443", nil))
	assert.Error(publicOnlyControl("tcp4", "8.8.8.8:8080", nil))
	assert.Error(publicOnlyControl("tcp4", "127.0.0.1:443", nil))
	assert.Error(publicOnlyControl("udp", "8.8.8.8:443", nil))
	assert.Error(publicOnlyControl("tcp6", "[::1]:443", nil))
}
