package inventory

import (
	"time"

	"github.com/hiroakis/host-management-app/models"
)

// EventType names a committed inventory change.
type EventType string

const (
	EventIPAdded     EventType = "ip_added"
	EventIPUpdated   EventType = "ip_updated"
	EventIPRemoved   EventType = "ip_removed"
	EventRoleAdded   EventType = "role_added"
	EventRoleUpdated EventType = "role_updated"
	EventRoleRemoved EventType = "role_removed"
	EventHostAdded   EventType = "host_added"
	EventHostUpdated EventType = "host_updated"
	EventHostRemoved EventType = "host_removed"
)

// Event is published after a mutation commits.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Publisher receives committed change events. Publish must not block.
type Publisher interface {
	Publish(event Event)
}

// RenameData is the payload of *_updated events for IPs and roles.
type RenameData struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// HostUpdateData is the payload of host_updated events.
type HostUpdateData struct {
	Old  string            `json:"old"`
	Host models.HostRecord `json:"host"`
}
