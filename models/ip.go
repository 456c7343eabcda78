package models

import "github.com/uptrace/bun"

// IP is an inventory-tracked address with a used flag.
// IsUsed is true exactly while a Host row references the address.
type IP struct {
	bun.BaseModel `bun:"table:ip,alias:i"`

	// IP is the dotted-quad address, primary key
	IP string `bun:"ip,pk,type:varchar(64)" json:"ip"`

	// IsUsed reports whether a host is bound to the address
	IsUsed bool `bun:"is_used,notnull,default:false" json:"is_used"`
}
