package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hiroakis/host-management-app/models"
)

// Output formats accepted by the list endpoints through ?format=.
const (
	FormatCSV   = "csv"
	FormatSpace = "space"
	FormatHosts = "hosts"
)

// renderList writes values as csv, space separated text or JSON.
func renderList(c echo.Context, values []string) error {
	switch c.QueryParam("format") {
	case FormatCSV:
		return c.String(http.StatusOK, strings.Join(values, ","))
	case FormatSpace:
		return c.String(http.StatusOK, strings.Join(values, " "))
	default:
		if values == nil {
			values = []string{}
		}
		return c.JSON(http.StatusOK, ResultResponse{Result: values})
	}
}

// HostsFile renders entries as /etc/hosts lines.
func HostsFile(entries []models.HostEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.IP)
		b.WriteByte('\t')
		b.WriteString(e.HostName)
		b.WriteByte('\n')
	}
	return b.String()
}

// readBody returns the raw request body.
func readBody(c echo.Context) ([]byte, error) {
	if c.Request().Body == nil {
		return nil, nil
	}
	return io.ReadAll(c.Request().Body)
}

// mutationOK acknowledges a committed change, echoing the request body.
func mutationOK(c echo.Context, request string, body []byte) error {
	var payload json.RawMessage
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && json.Valid(trimmed) {
		payload = trimmed
	}
	return c.JSON(http.StatusOK, ResultResponse{Result: MutationResult{
		Message: "OK",
		Request: request,
		Payload: payload,
	}})
}
