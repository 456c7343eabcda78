package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	v := New()
	assert.NotNil(t, v)
	assert.NotNil(t, v.structValidator)
}

func TestIsValidIP(t *testing.T) {
	tests := []struct {
		ip    string
		valid bool
	}{
		{"192.168.1.1", true},
		{"255.255.255.255", true},
		{"0.0.0.0", true},
		{"10.0.0.10", true},
		{"092.168.1.1", false},
		{"192.168.1.1111", false},
		{"192.168.1", false},
		{"192.168.1.1.1", false},
		{"192.168.1.a", false},
		{"256.1.1.1", false},
		{"192.168.01.1", false},
		{"", false},
		{" 192.168.1.1", false},
		{"192.168.1.1\n", false},
		{"::ffff:192.168.1.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidIP(tt.ip))
		})
	}
}

func TestHasRequiredKeys(t *testing.T) {
	var record map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`{"host_name":"","ip":null,"role":[]}`), &record))

	assert.True(t, HasRequiredKeys(record, "host_name", "ip", "role"))
	assert.True(t, HasRequiredKeys(record))
	assert.False(t, HasRequiredKeys(record, "host_name", "missing"))
	assert.Equal(t, []string{"a", "b"}, MissingKeys(record, "a", "ip", "b"))
	assert.False(t, HasRequiredKeys(nil, "ip"))
}

func TestValidateDocument(t *testing.T) {
	v := New()

	t.Run("all keys present", func(t *testing.T) {
		result := v.ValidateDocument([]byte(`{"ip":"10.0.0.1"}`), "ip")
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
	})

	t.Run("missing key", func(t *testing.T) {
		result := v.ValidateDocument([]byte(`{"host_name":"web01","ip":"10.0.0.1"}`), "host_name", "ip", "role")
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "role", result.Errors[0].Field)
	})

	t.Run("invalid json", func(t *testing.T) {
		result := v.ValidateDocument([]byte(`{not json`), "ip")
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "document", result.Errors[0].Field)
	})

	t.Run("not an object", func(t *testing.T) {
		result := v.ValidateDocument([]byte(`null`), "ip")
		assert.False(t, result.Valid)
	})
}

type hostPayload struct {
	HostName string   `json:"host_name" validate:"max=64"`
	IP       string   `json:"ip" validate:"max=64"`
	Roles    []string `json:"role" validate:"dive,max=64"`
}

type ipPayload struct {
	IP string `json:"ip" validate:"dottedquad"`
}

func TestStruct(t *testing.T) {
	v := New()

	t.Run("valid", func(t *testing.T) {
		result := v.Struct(hostPayload{HostName: "web01", IP: "10.0.0.1", Roles: []string{"web"}})
		assert.True(t, result.Valid)
	})

	t.Run("too long name", func(t *testing.T) {
		result := v.Struct(hostPayload{HostName: strings.Repeat("a", 65)})
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "host_name", result.Errors[0].Field)
		assert.Contains(t, result.Errors[0].Message, "at most 64")
		assert.Contains(t, result.Error(), "host_name")
	})

	t.Run("too long role", func(t *testing.T) {
		result := v.Struct(hostPayload{Roles: []string{"ok", strings.Repeat("r", 70)}})
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "role[1]", result.Errors[0].Field)
	})

	t.Run("dotted quad tag", func(t *testing.T) {
		assert.True(t, v.Struct(ipPayload{IP: "192.168.1.1"}).Valid)

		result := v.Struct(ipPayload{IP: "092.168.1.1"})
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "Invalid IP address format", result.Errors[0].Message)
	})
}
