package models

import "github.com/uptrace/bun"

// Role is a named capability attached to hosts (e.g. "web", "db").
// Names are case-sensitive.
type Role struct {
	bun.BaseModel `bun:"table:role,alias:r"`

	RoleName string `bun:"role_name,pk,type:varchar(64)" json:"role"`
}

// RoleMap records one host-has-role fact.
type RoleMap struct {
	bun.BaseModel `bun:"table:role_map,alias:rm"`

	ID       int64  `bun:"id,pk,autoincrement" json:"-"`
	HostName string `bun:"host_name,type:varchar(64),notnull" json:"host_name"`
	RoleName string `bun:"role_name,type:varchar(64),notnull" json:"role_name"`
}
