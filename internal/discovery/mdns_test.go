package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTXTRecords(t *testing.T) {
	assert.Equal(t, []string{"path=/api/v1", "version=1.2.0"}, TXTRecords("1.2.0"))
	assert.Equal(t, []string{"path=/api/v1"}, TXTRecords(""))
}

func TestPortFromAddr(t *testing.T) {
	tests := []struct {
		addr    string
		want    int
		wantErr bool
	}{
		{":80", 80, false},
		{"0.0.0.0:8080", 8080, false},
		{"[::1]:9000", 9000, false},
		{"80", 0, true},
		{":http", 0, true},
		{":0", 0, true},
		{":70000", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			got, err := PortFromAddr(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInterfacesDefaultsToAll(t *testing.T) {
	a := NewAdvertiser(Config{Instance: "relay-latch", Port: 80})
	ifaces, err := a.interfaces()
	require.NoError(t, err)
	assert.Nil(t, ifaces)
}

func TestUnknownInterfaceFailsStart(t *testing.T) {
	a := NewAdvertiser(Config{Instance: "relay-latch", Port: 80, Interface: "no-such-if0"})
	assert.Error(t, a.Start())
	assert.NoError(t, a.Stop())
}
