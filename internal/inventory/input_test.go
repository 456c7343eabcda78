package inventory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHostInput(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    *HostInput
		invalid bool
	}{
		{
			name: "complete",
			body: `{"host_name":"web01","ip":"192.168.1.101","role":["web","app"]}`,
			want: &HostInput{HostName: "web01", IP: "192.168.1.101", Roles: []string{"web", "app"}},
		},
		{
			name: "empty values count as present",
			body: `{"host_name":"","ip":"","role":[]}`,
			want: &HostInput{Roles: []string{}},
		},
		{name: "missing role", body: `{"host_name":"web01","ip":"192.168.1.101"}`, invalid: true},
		{name: "not json", body: `host_name=web01`, invalid: true},
		{name: "wrong role type", body: `{"host_name":"web01","ip":"1.1.1.1","role":"web"}`, invalid: true},
		{name: "name too long", body: `{"host_name":"` + strings.Repeat("h", 65) + `","ip":"1.1.1.1","role":[]}`, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHostInput("add host", []byte(tt.body))
			if tt.invalid {
				assert.Equal(t, KindInvalidInput, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIPAndRoleInput(t *testing.T) {
	ip, err := ParseIPInput("add ip", []byte(`{"ip":"10.0.0.1"}`))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", ip.IP)

	_, err = ParseIPInput("add ip", []byte(`{"addr":"10.0.0.1"}`))
	assert.Equal(t, KindInvalidInput, KindOf(err))

	for _, body := range []string{`{"ip":"092.168.1.1"}`, `{"ip":"10.0.0"}`, `{"ip":""}`} {
		_, err = ParseIPInput("update ip", []byte(body))
		assert.Equal(t, KindInvalidInput, KindOf(err), body)
		assert.ErrorContains(t, err, "Invalid IP address format", body)
	}

	role, err := ParseRoleInput("add role", []byte(`{"role":"web"}`))
	require.NoError(t, err)
	assert.Equal(t, "web", role.Role)

	_, err = ParseRoleInput("add role", []byte(`{}`))
	assert.Equal(t, KindInvalidInput, KindOf(err))
}
