package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Host is a named machine bound to exactly one IP.
//
// Table: host
//
// The Host model includes:
//   - Surrogate key (id), assigned by the database
//   - Unique host name (host_name), the key RoleMap rows refer to
//   - Bound address (ip), unique so a used IP belongs to one host only
//   - Bookkeeping timestamps (created_at, updated_at)
//
// Roles are not stored on the row itself. They live in the role_map join
// table and are attached to a HostRecord when the host is read back.
type Host struct {
	bun.BaseModel `bun:"table:host,alias:h"`

	// ID is the surrogate key
	ID int64 `bun:"id,pk,autoincrement" json:"-"`

	// HostName is the unique host name (indexed through its unique constraint)
	HostName string `bun:"host_name,type:varchar(64),unique" json:"host_name"`

	// IP is the address bound to this host
	IP string `bun:"ip,type:varchar(64),unique" json:"ip"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"-"`
}

// HostRecord is a host together with its complete role list. It is the shape
// returned by every host lookup.
//
// Example JSON representation:
//
//	{
//	  "host_name": "web01",
//	  "ip": "192.168.1.101",
//	  "role": ["web", "app"]
//	}
type HostRecord struct {
	HostName string   `json:"host_name"`
	IP       string   `json:"ip"`
	Roles    []string `json:"role"`
}

// HostEntry is one line of the hosts table output.
type HostEntry struct {
	HostName string `json:"host_name"`
	IP       string `json:"ip"`
}
