// Package integrity provides inventory consistency checking and repair.
//
// The inventory keeps its cross-table rules in the service layer rather than
// in database foreign keys, so rows can drift out of line when the database
// is edited by hand or by the legacy delete-role path. The scanner reads
// every table in one transaction and reports:
//   - role assignments naming a missing role or a missing host
//   - repeated (host, role) assignments
//   - used IPs no host references, and host IPs flagged unused
//   - hosts whose IP row is missing
//
// Low-risk findings carry repair operations. Repair applies them in a single
// transaction; missing IPs are always left for manual review.
//
// Example usage:
//
//	svc := integrity.NewService(store, logger)
//	report, err := svc.Scan(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := svc.Repair(ctx, report, true) // dry run
package integrity

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hiroakis/host-management-app/internal/storage"
	"github.com/hiroakis/host-management-app/models"
)

// Store runs integrity work in a transaction.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repo storage.Repository) error) error
}

// Service provides inventory integrity checking and repair.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates an integrity service over store.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// snapshot is every inventory row read in one transaction.
type snapshot struct {
	roles []models.Role
	ips   []models.IP
	hosts []models.Host
	maps  []models.RoleMap
}

func (s *snapshot) size() int {
	return len(s.roles) + len(s.ips) + len(s.hosts) + len(s.maps)
}

// Scan performs a read-only integrity scan of the inventory.
func (s *Service) Scan(ctx context.Context) (*ScanReport, error) {
	s.logger.Info("starting integrity scan")

	startTime := s.now()
	report := &ScanReport{
		ID:          uuid.New().String(),
		Timestamp:   startTime,
		IssuesFound: []Issue{},
		Summary: ScanSummary{
			ByType:     make(map[IssueType]int),
			BySeverity: make(map[Severity]int),
		},
	}

	var snap snapshot
	err := s.store.RunInTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		var err error
		if snap.roles, err = repo.Roles(ctx); err != nil {
			return err
		}
		if snap.ips, err = repo.IPs(ctx); err != nil {
			return err
		}
		if snap.hosts, err = repo.Hosts(ctx); err != nil {
			return err
		}
		snap.maps, err = repo.RoleMaps(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}

	report.RecordsScanned = snap.size()
	report.IssuesFound = append(report.IssuesFound, s.scanRoleMaps(&snap)...)
	report.IssuesFound = append(report.IssuesFound, s.scanIPs(&snap)...)

	report.Summary.TotalIssues = len(report.IssuesFound)
	for _, issue := range report.IssuesFound {
		report.Summary.ByType[issue.Type]++
		report.Summary.BySeverity[issue.Severity]++
	}
	report.Summary.HealthScore = calculateHealthScore(report)
	report.Duration = time.Since(startTime)

	s.logger.Info("integrity scan completed",
		slog.String("scan_id", report.ID),
		slog.Int("records", report.RecordsScanned),
		slog.Int("issues", report.Summary.TotalIssues),
		slog.Int("health_score", report.Summary.HealthScore),
	)
	return report, nil
}

// scanRoleMaps reports each role assignment at most once, preferring the
// orphaned finding over the duplicate one over the dangling one.
func (s *Service) scanRoleMaps(snap *snapshot) []Issue {
	roles := make(map[string]bool, len(snap.roles))
	for _, r := range snap.roles {
		roles[r.RoleName] = true
	}
	hosts := make(map[string]bool, len(snap.hosts))
	for _, h := range snap.hosts {
		hosts[h.HostName] = true
	}

	issues := []Issue{}
	seen := make(map[[2]string]int64)
	for _, m := range snap.maps {
		key := [2]string{m.HostName, m.RoleName}
		details := map[string]interface{}{"host_name": m.HostName, "role_name": m.RoleName}

		switch {
		case !hosts[m.HostName]:
			issues = append(issues, s.roleMapIssue(m, IssueTypeOrphanedRoleMap, SeverityMedium,
				fmt.Sprintf("Role assignment %d refers to missing host %q", m.ID, m.HostName), details))
		case seen[key] != 0:
			details["kept_id"] = seen[key]
			issues = append(issues, s.roleMapIssue(m, IssueTypeDuplicateRoleMap, SeverityLow,
				fmt.Sprintf("Host %q holds role %q more than once", m.HostName, m.RoleName), details))
		case !roles[m.RoleName]:
			seen[key] = m.ID
			issues = append(issues, s.roleMapIssue(m, IssueTypeDanglingRole, SeverityMedium,
				fmt.Sprintf("Host %q holds deleted role %q", m.HostName, m.RoleName), details))
		default:
			seen[key] = m.ID
		}
	}
	return issues
}

func (s *Service) roleMapIssue(m models.RoleMap, t IssueType, sev Severity, desc string, details map[string]interface{}) Issue {
	id := strconv.FormatInt(m.ID, 10)
	return Issue{
		ID:          uuid.New().String(),
		Type:        t,
		Severity:    sev,
		Table:       "role_map",
		RecordID:    id,
		Description: desc,
		Details:     details,
		DetectedAt:  s.now(),
		SuggestedResolution: &Resolution{
			Risk:        RiskLow,
			Description: "Delete the role assignment",
			Operations: []RepairOperation{{
				ID:       uuid.New().String(),
				Type:     OpDeleteRoleMap,
				Target:   id,
				Action:   fmt.Sprintf("Delete role_map %s (%s/%s)", id, m.HostName, m.RoleName),
				OldValue: m.RoleName,
				Risk:     RiskLow,
			}},
		},
	}
}

func (s *Service) scanIPs(snap *snapshot) []Issue {
	ips := make(map[string]models.IP, len(snap.ips))
	for _, ip := range snap.ips {
		ips[ip.IP] = ip
	}
	bound := make(map[string]string, len(snap.hosts))
	for _, h := range snap.hosts {
		bound[h.IP] = h.HostName
	}

	issues := []Issue{}
	for _, h := range snap.hosts {
		ip, ok := ips[h.IP]
		switch {
		case !ok:
			issues = append(issues, Issue{
				ID:          uuid.New().String(),
				Type:        IssueTypeMissingIP,
				Severity:    SeverityCritical,
				Table:       "host",
				RecordID:    h.HostName,
				Description: fmt.Sprintf("Host %q is bound to unknown ip %s", h.HostName, h.IP),
				Details:     map[string]interface{}{"host_name": h.HostName, "ip": h.IP},
				DetectedAt:  s.now(),
				SuggestedResolution: &Resolution{
					Risk:             RiskHigh,
					Description:      "Register the IP or re-point the host by hand",
					Operations:       []RepairOperation{},
					RequiresApproval: true,
				},
			})
		case !ip.IsUsed:
			issues = append(issues, s.ipFlagIssue(h.IP, IssueTypeUnmarkedIP, SeverityHigh,
				fmt.Sprintf("IP %s is bound to host %q but flagged unused", h.IP, h.HostName), OpMarkIPUsed, true))
		}
	}

	for _, ip := range snap.ips {
		if ip.IsUsed && bound[ip.IP] == "" {
			issues = append(issues, s.ipFlagIssue(ip.IP, IssueTypeUnboundUsedIP, SeverityHigh,
				fmt.Sprintf("IP %s is flagged used but no host is bound to it", ip.IP), OpMarkIPUnused, false))
		}
	}
	return issues
}

func (s *Service) ipFlagIssue(addr string, t IssueType, sev Severity, desc string, op OperationType, used bool) Issue {
	return Issue{
		ID:          uuid.New().String(),
		Type:        t,
		Severity:    sev,
		Table:       "ip",
		RecordID:    addr,
		Description: desc,
		DetectedAt:  s.now(),
		SuggestedResolution: &Resolution{
			Risk:        RiskLow,
			Description: fmt.Sprintf("Set is_used to %t", used),
			Operations: []RepairOperation{{
				ID:       uuid.New().String(),
				Type:     op,
				Target:   addr,
				Action:   fmt.Sprintf("Set is_used=%t on %s", used, addr),
				OldValue: !used,
				NewValue: used,
				Risk:     RiskLow,
			}},
		},
	}
}

// calculateHealthScore computes a 0-100 health score based on issues found.
func calculateHealthScore(report *ScanReport) int {
	score := 100

	for severity, count := range report.Summary.BySeverity {
		switch severity {
		case SeverityCritical:
			score -= count * 20
		case SeverityHigh:
			score -= count * 10
		case SeverityMedium:
			score -= count * 3
		case SeverityLow:
			score -= count * 1
		}
	}

	if score < 0 {
		score = 0
	}
	return score
}
