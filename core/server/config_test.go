package server_test

import (
	"testing"

	"collection-manager/core/server"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Address(t *testing.T) {
	tests := []struct {
		name    string
		port    string
		want    string
		wantErr bool
	}{
		{"Default", "8080", ":8080", false},
		{"High", "65535", ":65535", false},
		{"Zero", "0", "", true},
		{"TooHigh", "70000", "", true},
		{"NotNumber", "http", "", true},
		{"Empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := server.Config{Port: tt.port}.Address()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, addr)
		})
	}
}
