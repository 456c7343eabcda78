// Package docs holds the swagger document served at /docs.
//
// Regenerate with: swag init -g internal/api/server.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "health"
                ],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.HealthResponse"
                        }
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {
                            "$ref": "#/definitions/api.HealthResponse"
                        }
                    }
                }
            }
        },
        "/api/list/ip": {
            "get": {
                "produces": [
                    "application/json",
                    "text/plain"
                ],
                "tags": [
                    "ip"
                ],
                "summary": "List IP addresses",
                "parameters": [
                    {
                        "type": "string",
                        "description": "csv, space or json",
                        "name": "format",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StringListResponse"
                        }
                    }
                }
            }
        },
        "/api/list/ip/used": {
            "get": {
                "produces": [
                    "application/json",
                    "text/plain"
                ],
                "tags": [
                    "ip"
                ],
                "summary": "List used IP addresses",
                "parameters": [
                    {
                        "type": "string",
                        "description": "csv, space or json",
                        "name": "format",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StringListResponse"
                        }
                    }
                }
            }
        },
        "/api/list/ip/unused": {
            "get": {
                "produces": [
                    "application/json",
                    "text/plain"
                ],
                "tags": [
                    "ip"
                ],
                "summary": "List unused IP addresses",
                "parameters": [
                    {
                        "type": "string",
                        "description": "csv, space or json",
                        "name": "format",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StringListResponse"
                        }
                    }
                }
            }
        },
        "/api/list/ip/role/{role_name}": {
            "get": {
                "produces": [
                    "application/json",
                    "text/plain"
                ],
                "tags": [
                    "ip"
                ],
                "summary": "List IP addresses of hosts holding a role",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Role name",
                        "name": "role_name",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "csv, space or json",
                        "name": "format",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StringListResponse"
                        }
                    }
                }
            }
        },
        "/api/list/role": {
            "get": {
                "produces": [
                    "application/json",
                    "text/plain"
                ],
                "tags": [
                    "role"
                ],
                "summary": "List role names",
                "parameters": [
                    {
                        "type": "string",
                        "description": "csv, space or json",
                        "name": "format",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StringListResponse"
                        }
                    }
                }
            }
        },
        "/api/list/host": {
            "get": {
                "produces": [
                    "application/json",
                    "text/plain"
                ],
                "tags": [
                    "host"
                ],
                "summary": "List host names",
                "parameters": [
                    {
                        "type": "string",
                        "description": "csv, space or json",
                        "name": "format",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StringListResponse"
                        }
                    }
                }
            }
        },
        "/api/ip": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "ip"
                ],
                "summary": "List IP records",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.IPRecordsResponse"
                        }
                    }
                }
            },
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "ip"
                ],
                "summary": "Register an IP address",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.MutationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/inventory.IPInput"
                        }
                    }
                ],
                "consumes": [
                    "application/json"
                ]
            }
        },
        "/api/ip/{ip}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "ip"
                ],
                "summary": "Look up the host bound to an IP",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.HostRecordsResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "IP address",
                        "name": "ip",
                        "in": "path",
                        "required": true
                    }
                ]
            },
            "put": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "ip"
                ],
                "summary": "Change an IP address",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.MutationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Current address",
                        "name": "ip",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/inventory.IPInput"
                        }
                    }
                ],
                "consumes": [
                    "application/json"
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "ip"
                ],
                "summary": "Remove an unused IP address",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.MutationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "IP address",
                        "name": "ip",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/role": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "role"
                ],
                "summary": "List role records",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.RoleRecordsResponse"
                        }
                    }
                }
            },
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "role"
                ],
                "summary": "Register a role",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.MutationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/inventory.RoleInput"
                        }
                    }
                ],
                "consumes": [
                    "application/json"
                ]
            }
        },
        "/api/role/{role_name}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "role"
                ],
                "summary": "List hosts holding a role",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.HostRecordsResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Role name",
                        "name": "role_name",
                        "in": "path",
                        "required": true
                    }
                ]
            },
            "put": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "role"
                ],
                "summary": "Rename a role",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.MutationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Current name",
                        "name": "role_name",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/inventory.RoleInput"
                        }
                    }
                ],
                "consumes": [
                    "application/json"
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "role"
                ],
                "summary": "Remove a role",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.MutationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Role name",
                        "name": "role_name",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/host": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "host"
                ],
                "summary": "List hosts with their roles",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.HostRecordsResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            },
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "host"
                ],
                "summary": "Register a host",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.MutationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/inventory.HostInput"
                        }
                    }
                ],
                "consumes": [
                    "application/json"
                ]
            }
        },
        "/api/host/{host_name}": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "host"
                ],
                "summary": "Look up a host",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.HostRecordsResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Host name",
                        "name": "host_name",
                        "in": "path",
                        "required": true
                    }
                ]
            },
            "put": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "host"
                ],
                "summary": "Replace a host",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.MutationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Current host name",
                        "name": "host_name",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Request body",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/inventory.HostInput"
                        }
                    }
                ],
                "consumes": [
                    "application/json"
                ]
            },
            "delete": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "host"
                ],
                "summary": "Remove a host",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.MutationResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "string",
                        "description": "Host name",
                        "name": "host_name",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/api/hosts_output/{role_name}": {
            "get": {
                "produces": [
                    "text/plain"
                ],
                "tags": [
                    "host"
                ],
                "summary": "Render hosts holding a role as /etc/hosts lines",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Role name",
                        "name": "role_name",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "ip<TAB>host_name lines",
                        "schema": {
                            "type": "string"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/stats": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "stats"
                ],
                "summary": "Inventory counts",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.StatsResponse"
                        }
                    }
                }
            }
        },
        "/api/integrity": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "integrity"
                ],
                "summary": "Scan the inventory for integrity issues",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/integrity.ScanReport"
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/integrity/last": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "integrity"
                ],
                "summary": "Latest scheduled integrity scan",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/integrity.ScanReport"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/integrity/repair": {
            "post": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "integrity"
                ],
                "summary": "Scan and repair low-risk integrity issues",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/integrity.RepairResult"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "type": "boolean",
                        "default": true,
                        "description": "Simulate without writing",
                        "name": "dry_run",
                        "in": "query"
                    }
                ]
            }
        },
        "/api/ws/events": {
            "get": {
                "tags": [
                    "websocket"
                ],
                "summary": "WebSocket change feed",
                "responses": {
                    "101": {
                        "description": "Switching Protocols",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "/api/ws/stats": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "websocket"
                ],
                "summary": "Get WebSocket statistics",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.WebSocketStats"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "message": {
                    "type": "string"
                },
                "details": {
                    "type": "string"
                }
            }
        },
        "api.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                },
                "service": {
                    "type": "string"
                },
                "version": {
                    "type": "string"
                },
                "database": {
                    "type": "string"
                },
                "error": {
                    "type": "string"
                },
                "details": {
                    "type": "string"
                }
            }
        },
        "api.MutationResult": {
            "type": "object",
            "properties": {
                "message": {
                    "type": "string"
                },
                "request": {
                    "type": "string"
                },
                "payload": {
                    "type": "object"
                }
            }
        },
        "api.MutationResponse": {
            "type": "object",
            "properties": {
                "result": {
                    "$ref": "#/definitions/api.MutationResult"
                }
            }
        },
        "api.StringListResponse": {
            "type": "object",
            "properties": {
                "result": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "api.HostRecordsResponse": {
            "type": "object",
            "properties": {
                "result": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.HostRecord"
                    }
                }
            }
        },
        "api.IPRecordsResponse": {
            "type": "object",
            "properties": {
                "result": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.IP"
                    }
                }
            }
        },
        "api.RoleRecordsResponse": {
            "type": "object",
            "properties": {
                "result": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.Role"
                    }
                }
            }
        },
        "api.StatsResponse": {
            "type": "object",
            "properties": {
                "result": {
                    "$ref": "#/definitions/storage.Counts"
                }
            }
        },
        "api.WebSocketStats": {
            "type": "object",
            "properties": {
                "connected_clients": {
                    "type": "integer"
                },
                "status": {
                    "type": "string"
                }
            }
        },
        "inventory.IPInput": {
            "type": "object",
            "required": [
                "ip"
            ],
            "properties": {
                "ip": {
                    "type": "string",
                    "maxLength": 64
                }
            }
        },
        "inventory.RoleInput": {
            "type": "object",
            "required": [
                "role"
            ],
            "properties": {
                "role": {
                    "type": "string",
                    "maxLength": 64
                }
            }
        },
        "inventory.HostInput": {
            "type": "object",
            "required": [
                "host_name",
                "ip",
                "role"
            ],
            "properties": {
                "host_name": {
                    "type": "string",
                    "maxLength": 64
                },
                "ip": {
                    "type": "string",
                    "maxLength": 64
                },
                "role": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "models.HostRecord": {
            "type": "object",
            "properties": {
                "host_name": {
                    "type": "string"
                },
                "ip": {
                    "type": "string"
                },
                "role": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "models.IP": {
            "type": "object",
            "properties": {
                "ip": {
                    "type": "string"
                },
                "is_used": {
                    "type": "boolean"
                }
            }
        },
        "models.Role": {
            "type": "object",
            "properties": {
                "role": {
                    "type": "string"
                }
            }
        },
        "storage.Counts": {
            "type": "object",
            "properties": {
                "ips": {
                    "type": "integer"
                },
                "used_ips": {
                    "type": "integer"
                },
                "unused_ips": {
                    "type": "integer"
                },
                "roles": {
                    "type": "integer"
                },
                "hosts": {
                    "type": "integer"
                },
                "role_assignments": {
                    "type": "integer"
                }
            }
        },
        "integrity.Issue": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "type": {
                    "type": "string"
                },
                "severity": {
                    "type": "string"
                },
                "table": {
                    "type": "string"
                },
                "record_id": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "details": {
                    "type": "object"
                },
                "detected_at": {
                    "type": "string"
                },
                "suggested_resolution": {
                    "$ref": "#/definitions/integrity.Resolution"
                }
            }
        },
        "integrity.Resolution": {
            "type": "object",
            "properties": {
                "risk": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "operations": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/integrity.RepairOperation"
                    }
                },
                "requires_approval": {
                    "type": "boolean"
                }
            }
        },
        "integrity.RepairOperation": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "type": {
                    "type": "string"
                },
                "target": {
                    "type": "string"
                },
                "action": {
                    "type": "string"
                },
                "old_value": {},
                "new_value": {},
                "risk": {
                    "type": "string"
                }
            }
        },
        "integrity.ScanSummary": {
            "type": "object",
            "properties": {
                "total_issues": {
                    "type": "integer"
                },
                "by_type": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "integer"
                    }
                },
                "by_severity": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "integer"
                    }
                },
                "health_score": {
                    "type": "integer"
                }
            }
        },
        "integrity.ScanReport": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "timestamp": {
                    "type": "string"
                },
                "duration": {
                    "type": "integer"
                },
                "records_scanned": {
                    "type": "integer"
                },
                "issues_found": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/integrity.Issue"
                    }
                },
                "summary": {
                    "$ref": "#/definitions/integrity.ScanSummary"
                }
            }
        },
        "integrity.OperationResult": {
            "type": "object",
            "properties": {
                "operation": {
                    "$ref": "#/definitions/integrity.RepairOperation"
                },
                "success": {
                    "type": "boolean"
                },
                "dry_run": {
                    "type": "boolean"
                },
                "changes": {
                    "type": "object"
                }
            }
        },
        "integrity.RepairResult": {
            "type": "object",
            "properties": {
                "plan_id": {
                    "type": "string"
                },
                "execution_id": {
                    "type": "string"
                },
                "start_time": {
                    "type": "string"
                },
                "end_time": {
                    "type": "string"
                },
                "duration": {
                    "type": "integer"
                },
                "operations": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/integrity.OperationResult"
                    }
                },
                "success_count": {
                    "type": "integer"
                },
                "skipped_count": {
                    "type": "integer"
                },
                "dry_run": {
                    "type": "boolean"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "srvadm API",
	Description:      "IP, role and host inventory.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
