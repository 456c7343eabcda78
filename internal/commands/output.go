package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hiroakis/host-management-app/models"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
	formatSpace = "space"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatCSV, formatSpace:
		return nil
	}
	return fmt.Errorf("unknown format %q (table, json, csv, space)", format)
}

// writeList prints a list of names. csv and space put everything on one
// line like the server's format query parameter.
func writeList(w io.Writer, format, header string, values []string) error {
	if values == nil {
		values = []string{}
	}

	switch format {
	case formatJSON:
		return writeJSON(w, values)
	case formatCSV:
		_, err := fmt.Fprintln(w, strings.Join(values, ","))
		return err
	case formatSpace:
		_, err := fmt.Fprintln(w, strings.Join(values, " "))
		return err
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, header)
		for _, v := range values {
			fmt.Fprintln(tw, v)
		}
		return tw.Flush()
	}
}

// writeHosts prints host records, one per row.
func writeHosts(w io.Writer, format string, hosts []models.HostRecord) error {
	if hosts == nil {
		hosts = []models.HostRecord{}
	}

	switch format {
	case formatJSON:
		return writeJSON(w, hosts)
	case formatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"host_name", "ip", "role"}); err != nil {
			return err
		}
		for _, h := range hosts {
			if err := cw.Write([]string{h.HostName, h.IP, strings.Join(h.Roles, " ")}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case formatSpace:
		for _, h := range hosts {
			if _, err := fmt.Fprintf(w, "%s %s %s\n", h.HostName, h.IP, strings.Join(h.Roles, ",")); err != nil {
				return err
			}
		}
		return nil
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "HOST\tIP\tROLES")
		for _, h := range hosts {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", h.HostName, h.IP, strings.Join(h.Roles, ","))
		}
		return tw.Flush()
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
