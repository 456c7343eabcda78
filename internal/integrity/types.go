package integrity

import (
	"time"
)

// IssueType represents the type of integrity issue detected.
type IssueType string

const (
	// IssueTypeDanglingRole is a role assignment naming a role that no longer exists
	IssueTypeDanglingRole IssueType = "dangling_role"

	// IssueTypeOrphanedRoleMap is a role assignment for a host that no longer exists
	IssueTypeOrphanedRoleMap IssueType = "orphaned_role_map"

	// IssueTypeDuplicateRoleMap is a repeated (host, role) assignment
	IssueTypeDuplicateRoleMap IssueType = "duplicate_role_map"

	// IssueTypeUnboundUsedIP is an IP flagged used that no host references
	IssueTypeUnboundUsedIP IssueType = "unbound_used_ip"

	// IssueTypeUnmarkedIP is a host's IP that is flagged unused
	IssueTypeUnmarkedIP IssueType = "unmarked_ip"

	// IssueTypeMissingIP is a host referencing an IP row that does not exist
	IssueTypeMissingIP IssueType = "missing_ip"
)

// Severity represents how critical an issue is.
type Severity string

const (
	// SeverityLow indicates a minor issue that doesn't affect functionality
	SeverityLow Severity = "low"

	// SeverityMedium indicates an issue that may cause problems
	SeverityMedium Severity = "medium"

	// SeverityHigh indicates an issue that lets the inventory hand out wrong answers
	SeverityHigh Severity = "high"

	// SeverityCritical indicates a host the inventory cannot account for
	SeverityCritical Severity = "critical"
)

// RiskLevel indicates the risk of a repair operation.
type RiskLevel string

const (
	// RiskLow indicates safe operations with no data loss risk
	RiskLow RiskLevel = "low"

	// RiskMedium indicates operations that may need review
	RiskMedium RiskLevel = "medium"

	// RiskHigh indicates operations with potential data loss
	RiskHigh RiskLevel = "high"
)

// ScanReport contains the results of an integrity scan.
type ScanReport struct {
	// ID uniquely identifies this scan
	ID string `json:"id"`

	// Timestamp when the scan was performed
	Timestamp time.Time `json:"timestamp"`

	// Duration of the scan
	Duration time.Duration `json:"duration"`

	// RecordsScanned is the total number of rows checked
	RecordsScanned int `json:"records_scanned"`

	// IssuesFound contains all detected issues
	IssuesFound []Issue `json:"issues_found"`

	// Summary provides aggregated statistics
	Summary ScanSummary `json:"summary"`
}

// ScanSummary provides aggregated scan statistics.
type ScanSummary struct {
	// TotalIssues is the count of all issues found
	TotalIssues int `json:"total_issues"`

	// ByType breaks down issues by type
	ByType map[IssueType]int `json:"by_type"`

	// BySeverity breaks down issues by severity
	BySeverity map[Severity]int `json:"by_severity"`

	// HealthScore is a 0-100 score indicating inventory health
	HealthScore int `json:"health_score"`
}

// Issue represents a single integrity problem.
type Issue struct {
	// ID uniquely identifies this issue
	ID string `json:"id"`

	// Type categorizes the issue
	Type IssueType `json:"type"`

	// Severity indicates how critical this issue is
	Severity Severity `json:"severity"`

	// Table is the table holding the affected row
	Table string `json:"table"`

	// RecordID is the key of the affected row
	RecordID string `json:"record_id"`

	// Description provides human-readable details
	Description string `json:"description"`

	// Details contains additional structured information
	Details map[string]interface{} `json:"details,omitempty"`

	// DetectedAt is when this issue was found
	DetectedAt time.Time `json:"detected_at"`

	// SuggestedResolution recommends how to fix this issue
	SuggestedResolution *Resolution `json:"suggested_resolution,omitempty"`
}

// Resolution describes how to fix an issue.
type Resolution struct {
	// Risk indicates the risk level of this resolution
	Risk RiskLevel `json:"risk"`

	// Description explains what the resolution will do
	Description string `json:"description"`

	// Operations contains the specific steps to perform
	Operations []RepairOperation `json:"operations"`

	// RequiresApproval marks issues that are never repaired automatically
	RequiresApproval bool `json:"requires_approval"`
}

// OperationType categorizes repair operations.
type OperationType string

const (
	// OpDeleteRoleMap removes a role assignment row
	OpDeleteRoleMap OperationType = "delete_role_map"

	// OpMarkIPUsed sets is_used on an IP
	OpMarkIPUsed OperationType = "mark_ip_used"

	// OpMarkIPUnused clears is_used on an IP
	OpMarkIPUnused OperationType = "mark_ip_unused"
)

// RepairOperation represents a single repair action.
type RepairOperation struct {
	// ID uniquely identifies this operation
	ID string `json:"id"`

	// Type categorizes the operation
	Type OperationType `json:"type"`

	// Target is the role_map id or the IP address to operate on
	Target string `json:"target"`

	// Action describes what will be done
	Action string `json:"action"`

	// OldValue is the current state
	OldValue interface{} `json:"old_value,omitempty"`

	// NewValue is the target state
	NewValue interface{} `json:"new_value,omitempty"`

	// Risk indicates the risk level
	Risk RiskLevel `json:"risk"`
}

// RepairPlan contains a sequence of operations to fix issues.
type RepairPlan struct {
	// ID uniquely identifies this plan
	ID string `json:"id"`

	// Timestamp when the plan was created
	Timestamp time.Time `json:"timestamp"`

	// ScanID references the scan that generated this plan
	ScanID string `json:"scan_id"`

	// Operations to perform
	Operations []RepairOperation `json:"operations"`

	// Skipped lists issues left for manual review
	Skipped []Issue `json:"skipped,omitempty"`

	// DryRun indicates if this is a simulation
	DryRun bool `json:"dry_run"`
}

// RepairResult contains the outcome of executing a repair plan.
type RepairResult struct {
	// PlanID references the executed plan
	PlanID string `json:"plan_id"`

	// ExecutionID uniquely identifies this execution
	ExecutionID string `json:"execution_id"`

	// StartTime when execution began
	StartTime time.Time `json:"start_time"`

	// EndTime when execution completed
	EndTime time.Time `json:"end_time"`

	// Duration of the execution
	Duration time.Duration `json:"duration"`

	// Operations contains results for each operation
	Operations []OperationResult `json:"operations"`

	// SuccessCount is the number of operations applied
	SuccessCount int `json:"success_count"`

	// SkippedCount is the number of issues left for manual review
	SkippedCount int `json:"skipped_count"`

	// DryRun indicates if this was a simulation
	DryRun bool `json:"dry_run"`
}

// OperationResult contains the outcome of a single operation.
type OperationResult struct {
	// Operation that was executed
	Operation RepairOperation `json:"operation"`

	// Success indicates if the operation completed successfully
	Success bool `json:"success"`

	// DryRun indicates if this was a simulation
	DryRun bool `json:"dry_run"`

	// Changes made by this operation
	Changes map[string]interface{} `json:"changes,omitempty"`
}
