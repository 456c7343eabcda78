package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hiroakis/host-management-app/internal/integrity"
)

var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Inventory integrity checks and repairs",
	Long: `Check the inventory tables for broken references and repair them.

The integrity commands connect to the database directly and work whether or
not a server is running.`,
}

var integrityScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for integrity issues",
	Long: `Scan role assignments and IP usage flags for inconsistencies.

Examples:
  srvadm integrity scan
  srvadm integrity scan --json`,
	RunE: runIntegrityScan,
}

var integrityRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Repair low-risk integrity issues",
	Long: `Scan, then apply every low-risk fix in a single transaction.

Hosts pointing at missing IP rows are reported but never repaired.

Examples:
  srvadm integrity repair
  srvadm integrity repair --dry-run=false`,
	RunE: runIntegrityRepair,
}

func init() {
	integrityCmd.AddCommand(integrityScanCmd)
	integrityCmd.AddCommand(integrityRepairCmd)

	integrityScanCmd.Flags().Bool("json", false, "output as JSON")

	integrityRepairCmd.Flags().Bool("dry-run", true, "show what would change without writing")
	integrityRepairCmd.Flags().Bool("json", false, "output as JSON")
}

func runIntegrityScan(cmd *cobra.Command, args []string) error {
	outputJSON, _ := cmd.Flags().GetBool("json")

	store, closeFn, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	svc := integrity.NewService(store, nil)
	report, err := svc.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		printScanReport(out, report)
	}

	// Exit with non-zero if issues found
	if report.Summary.TotalIssues > 0 {
		return fmt.Errorf("found %d integrity issues", report.Summary.TotalIssues)
	}
	return nil
}

func runIntegrityRepair(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	outputJSON, _ := cmd.Flags().GetBool("json")

	store, closeFn, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()

	svc := integrity.NewService(store, nil)
	report, err := svc.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	result, err := svc.Repair(cmd.Context(), report, dryRun)
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return writeJSON(out, result)
	}
	printRepairResult(out, result)
	return nil
}

func printScanReport(w io.Writer, report *integrity.ScanReport) {
	fmt.Fprintln(w, "🔍 Integrity Scan")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Scan ID:          %s\n", report.ID)
	fmt.Fprintf(w, "Duration:         %v\n", report.Duration)
	fmt.Fprintf(w, "Records Scanned:  %d\n", report.RecordsScanned)
	fmt.Fprintf(w, "Issues Found:     %d\n", report.Summary.TotalIssues)
	fmt.Fprintf(w, "Health Score:     %s%d/100%s\n", getScoreColor(report.Summary.HealthScore), report.Summary.HealthScore, colorReset)
	fmt.Fprintln(w)

	if len(report.Summary.ByType) > 0 {
		fmt.Fprintln(w, "Issues by Type:")
		for _, t := range sortedKeys(report.Summary.ByType) {
			fmt.Fprintf(w, "  %s: %d\n", t, report.Summary.ByType[t])
		}
		fmt.Fprintln(w)
	}

	if len(report.IssuesFound) == 0 {
		fmt.Fprintln(w, "✅ No integrity issues found!")
		return
	}

	fmt.Fprintln(w, "Detailed Issues:")
	for i, issue := range report.IssuesFound {
		if i >= 10 {
			fmt.Fprintf(w, "  ... and %d more issues\n", len(report.IssuesFound)-10)
			break
		}
		fmt.Fprintf(w, "  %d. [%s%s%s] %s (%s %s)\n", i+1,
			getSeverityColor(issue.Severity), issue.Severity, colorReset,
			issue.Description, issue.Table, issue.RecordID)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next Steps:")
	fmt.Fprintln(w, "  Run 'srvadm integrity repair' to preview fixes")
}

func printRepairResult(w io.Writer, result *integrity.RepairResult) {
	if result.DryRun {
		fmt.Fprintln(w, "🔧 Repair (dry run)")
	} else {
		fmt.Fprintln(w, "🔧 Repair")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Plan ID:     %s\n", result.PlanID)
	fmt.Fprintf(w, "Duration:    %v\n", result.Duration)
	fmt.Fprintf(w, "Operations:  %d\n", len(result.Operations))
	fmt.Fprintf(w, "Skipped:     %d\n", result.SkippedCount)
	fmt.Fprintln(w)

	for i, res := range result.Operations {
		fmt.Fprintf(w, "  %d. [%s%s%s] %s\n", i+1,
			getRiskColor(res.Operation.Risk), res.Operation.Risk, colorReset, res.Operation.Action)
	}

	switch {
	case len(result.Operations) == 0:
		fmt.Fprintln(w, "✅ Nothing to repair")
	case result.DryRun:
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Run again with --dry-run=false to apply")
	default:
		fmt.Fprintln(w)
		fmt.Fprintf(w, "✅ Applied %d operations\n", result.SuccessCount)
	}
}

func sortedKeys(m map[integrity.IssueType]int) []integrity.IssueType {
	keys := make([]integrity.IssueType, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorOrange = "\033[38;5;208m"
)

// getScoreColor returns the appropriate color for a health score
func getScoreColor(score int) string {
	if score >= 90 {
		return colorGreen
	} else if score >= 70 {
		return colorYellow
	} else if score >= 50 {
		return colorOrange
	}
	return colorRed
}

// getSeverityColor returns the appropriate color for a severity level
func getSeverityColor(severity integrity.Severity) string {
	switch severity {
	case integrity.SeverityCritical:
		return colorRed
	case integrity.SeverityHigh:
		return colorOrange
	case integrity.SeverityMedium:
		return colorYellow
	case integrity.SeverityLow:
		return colorGreen
	default:
		return colorReset
	}
}

func getRiskColor(risk integrity.RiskLevel) string {
	switch risk {
	case integrity.RiskHigh:
		return colorRed
	case integrity.RiskMedium:
		return colorYellow
	default:
		return colorGreen
	}
}
