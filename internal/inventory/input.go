package inventory

import (
	"encoding/json"

	"github.com/hiroakis/host-management-app/internal/validation"
)

// IPInput is the body of add and update IP requests.
type IPInput struct {
	IP string `json:"ip" validate:"max=64,dottedquad"`
}

// RoleInput is the body of add and update role requests.
type RoleInput struct {
	Role string `json:"role" validate:"max=64"`
}

// HostInput is the body of register and update host requests.
type HostInput struct {
	HostName string   `json:"host_name" validate:"max=64"`
	IP       string   `json:"ip" validate:"max=64"`
	Roles    []string `json:"role" validate:"dive,max=64"`
}

var inputValidator = validation.New()

// ParseIPInput decodes an IP request body. The ip key must be present.
func ParseIPInput(op string, data []byte) (*IPInput, error) {
	in := new(IPInput)
	if err := parseInput(op, data, in, "ip"); err != nil {
		return nil, err
	}
	return in, nil
}

// ParseRoleInput decodes a role request body. The role key must be present.
func ParseRoleInput(op string, data []byte) (*RoleInput, error) {
	in := new(RoleInput)
	if err := parseInput(op, data, in, "role"); err != nil {
		return nil, err
	}
	return in, nil
}

// ParseHostInput decodes a host request body. The host_name, ip and role
// keys must all be present; their values may be empty.
func ParseHostInput(op string, data []byte) (*HostInput, error) {
	in := new(HostInput)
	if err := parseInput(op, data, in, "host_name", "ip", "role"); err != nil {
		return nil, err
	}
	return in, nil
}

func parseInput(op string, data []byte, dst any, keys ...string) error {
	if result := inputValidator.ValidateDocument(data, keys...); !result.Valid {
		return newError(op, KindInvalidInput, result)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return invalidf(op, "decode body: %v", err)
	}
	return checkStruct(op, dst)
}

func checkStruct(op string, v any) error {
	if result := inputValidator.Struct(v); !result.Valid {
		return newError(op, KindInvalidInput, result)
	}
	return nil
}
