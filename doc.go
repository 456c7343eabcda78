// Package srvadm is an inventory service for a server fleet.
//
// # Overview
//
// srvadm records three things and keeps them consistent:
//   - IP addresses, each flagged used or unused
//   - Roles, free-form names such as "web" or "db"
//   - Hosts, each bound to exactly one registered IP and holding any number of roles
//
// Registering a host claims its IP. Removing or moving a host frees it.
// Renaming an IP or role is carried through to every host and role
// assignment that references it.
//
// # Architecture
//
//	┌─────────────────┐       ┌─────────────────┐
//	│  srvadm query   │──────►│  API Server     │◄──── WebSocket change feed
//	│  (pkg/client)   │       │  (Echo REST)    │
//	└─────────────────┘       └────────┬────────┘
//	                                   │
//	                          ┌────────▼────────┐
//	                          │  Inventory      │
//	                          │  (transactions) │
//	                          └────────┬────────┘
//	                                   │
//	                          ┌────────▼────────┐
//	                          │  Storage (bun)  │
//	                          │  sqlite/pg/mysql│
//	                          └─────────────────┘
//
// # Usage
//
// Create the tables and start the API server:
//
//	srvadm db init --config configs/config.yaml
//	srvadm server --config configs/config.yaml
//
// Query a running server:
//
//	srvadm query ips --unused --format csv
//	srvadm query hosts-file web >> /etc/hosts
//
// Check and repair the tables directly:
//
//	srvadm integrity scan
//	srvadm integrity repair --dry-run=false
//
// # Configuration
//
// Configuration can be provided via:
//   - YAML file (config.yaml, configs/config.yaml, ~/.srvadm, /etc/srvadm)
//   - Environment variables (SRVADM_ prefix)
//   - .env file
//
// Example configuration:
//
//	server:
//	  port: 5000
//	database:
//	  driver: mysql
//	  host: db01
//	  user: srvadm
//	  name: srvadm
//	api:
//	  legacy_status: true
//
// # API Endpoints
//
// Lists (format=csv or format=space for plain text):
//   - GET /api/list/ip, /api/list/ip/used, /api/list/ip/unused
//   - GET /api/list/ip/role/:role_name
//   - GET /api/list/role, /api/list/host
//
// Records and mutations:
//   - GET /api/ip, GET|PUT|DELETE /api/ip/:ip, POST /api/ip
//   - GET|POST /api/role, GET|PUT|DELETE /api/role/:role_name
//   - GET|POST /api/host, GET|PUT|DELETE /api/host/:host_name
//   - GET /api/hosts_output/:role_name
//
// Operations:
//   - GET /health, GET /api/stats
//   - GET /api/integrity, POST /api/integrity/repair
//   - GET /api/ws/events, GET /api/ws/stats
//   - GET /docs/index.html
//
// # Development
//
// Run tests:
//
//	go test ./...
//
// Run the store suite against MySQL and PostgreSQL containers:
//
//	go test -tags=container ./internal/storage/...
//
// Build the binary:
//
//	go build -o srvadm ./cmd/srvadm
package srvadm
