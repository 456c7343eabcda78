package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hiroakis/host-management-app/models"
)

func TestHostsFile(t *testing.T) {
	entries := []models.HostEntry{
		{HostName: "web01", IP: "192.168.1.101"},
		{HostName: "web02", IP: "192.168.1.102"},
	}
	assert.Equal(t, "192.168.1.101\tweb01\n192.168.1.102\tweb02\n", HostsFile(entries))
	assert.Equal(t, "", HostsFile(nil))
}
