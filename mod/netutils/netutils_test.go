package netutils_test

import (
	"net"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imuslab.com/fileviewer/mod/netutils"
)

func TestGetRequesterIP(t *testing.T) {
	testCases := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{"ShouldUseRemoteAddr", "127.0.0.1:61001", nil, "127.0.0.1"},
		{"ShouldStripIPv6Brackets", "[::1]:61002", nil, "::1"},
		{"ShouldPreferRealIP", "127.0.0.1:1", map[string]string{"X-Real-Ip": "10.0.0.2"}, "10.0.0.2"},
		{"ShouldTakeFirstForwarder", "127.0.0.1:1", map[string]string{"X-Forwarded-For": "158.250.160.114, 109.21.249.211"}, "158.250.160.114"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.expected, netutils.GetRequesterIP(r))
		})
	}
}

func TestCheckIfPortOccupied(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	assert.True(t, netutils.CheckIfPortOccupied(l.Addr().String()))
}

func TestBrowsableURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/", netutils.BrowsableURL(":8080"))
	assert.Equal(t, "http://127.0.0.1:9000/", netutils.BrowsableURL("127.0.0.1:9000"))
	assert.Equal(t, "http://[::1]:9000/", netutils.BrowsableURL("[::1]:9000"))
}
