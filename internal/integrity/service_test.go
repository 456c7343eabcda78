package integrity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiroakis/host-management-app/internal/logging"
	"github.com/hiroakis/host-management-app/internal/storage"
	"github.com/hiroakis/host-management-app/models"
)

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	s, err := storage.Open(storage.Options{
		Driver: "sqlite",
		DSN:    "file:" + name + "?mode=memory&cache=shared",
		Logger: logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

// seedDamaged writes an inventory that breaks every rule the scanner checks.
func seedDamaged(t *testing.T, s *storage.Storage) {
	t.Helper()
	ctx := context.Background()

	err := s.RunInTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		for _, r := range []string{"web", "db"} {
			if err := repo.InsertRole(ctx, &models.Role{RoleName: r}); err != nil {
				return err
			}
		}
		for _, ip := range []models.IP{
			{IP: "10.0.0.1", IsUsed: true},  // web01, consistent
			{IP: "10.0.0.2", IsUsed: false}, // db01, unmarked
			{IP: "10.0.0.3", IsUsed: true},  // nobody, unbound
		} {
			ip := ip
			if err := repo.InsertIP(ctx, &ip); err != nil {
				return err
			}
		}
		for _, h := range []models.Host{
			{HostName: "web01", IP: "10.0.0.1"},
			{HostName: "db01", IP: "10.0.0.2"},
			{HostName: "lost01", IP: "10.0.0.9"}, // missing ip row
		} {
			h := h
			if err := repo.InsertHost(ctx, &h); err != nil {
				return err
			}
		}
		if _, err := repo.SetIPUsed(ctx, "10.0.0.2", false); err != nil {
			return err
		}
		return repo.InsertRoleMaps(ctx, []models.RoleMap{
			{HostName: "web01", RoleName: "web"},
			{HostName: "web01", RoleName: "web"},  // duplicate
			{HostName: "db01", RoleName: "cache"}, // dangling
			{HostName: "gone01", RoleName: "web"}, // orphaned
			{HostName: "db01", RoleName: "db"},
		})
	})
	require.NoError(t, err)
}

func byType(report *ScanReport) map[IssueType][]Issue {
	out := make(map[IssueType][]Issue)
	for _, issue := range report.IssuesFound {
		out[issue.Type] = append(out[issue.Type], issue)
	}
	return out
}

func TestScanCleanInventory(t *testing.T) {
	s := newTestStorage(t)
	svc := NewService(s, logging.Discard())

	report, err := svc.Scan(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Empty(t, report.IssuesFound)
	assert.Equal(t, 0, report.RecordsScanned)
	assert.Equal(t, 100, report.Summary.HealthScore)
}

func TestScanDetectsIssues(t *testing.T) {
	s := newTestStorage(t)
	seedDamaged(t, s)
	svc := NewService(s, logging.Discard())

	report, err := svc.Scan(context.Background())
	require.NoError(t, err)

	// 2 roles, 3 ips, 3 hosts, 5 role maps
	assert.Equal(t, 13, report.RecordsScanned)
	assert.Equal(t, 6, report.Summary.TotalIssues)

	issues := byType(report)
	require.Len(t, issues[IssueTypeDuplicateRoleMap], 1)
	assert.Equal(t, "web01", issues[IssueTypeDuplicateRoleMap][0].Details["host_name"])
	assert.Equal(t, SeverityLow, issues[IssueTypeDuplicateRoleMap][0].Severity)

	require.Len(t, issues[IssueTypeDanglingRole], 1)
	assert.Equal(t, "cache", issues[IssueTypeDanglingRole][0].Details["role_name"])

	require.Len(t, issues[IssueTypeOrphanedRoleMap], 1)
	assert.Equal(t, "gone01", issues[IssueTypeOrphanedRoleMap][0].Details["host_name"])

	require.Len(t, issues[IssueTypeUnmarkedIP], 1)
	assert.Equal(t, "10.0.0.2", issues[IssueTypeUnmarkedIP][0].RecordID)

	require.Len(t, issues[IssueTypeUnboundUsedIP], 1)
	assert.Equal(t, "10.0.0.3", issues[IssueTypeUnboundUsedIP][0].RecordID)

	require.Len(t, issues[IssueTypeMissingIP], 1)
	missing := issues[IssueTypeMissingIP][0]
	assert.Equal(t, "lost01", missing.RecordID)
	assert.Equal(t, SeverityCritical, missing.Severity)
	assert.True(t, missing.SuggestedResolution.RequiresApproval)

	// 100 - 20 (critical) - 2*10 (high) - 2*3 (medium) - 1 (low)
	assert.Equal(t, 53, report.Summary.HealthScore)
	assert.Equal(t, 2, report.Summary.BySeverity[SeverityHigh])
}

func TestRepairDryRunChangesNothing(t *testing.T) {
	s := newTestStorage(t)
	seedDamaged(t, s)
	svc := NewService(s, logging.Discard())
	ctx := context.Background()

	report, err := svc.Scan(ctx)
	require.NoError(t, err)

	result, err := svc.Repair(ctx, report, true)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 5, result.SuccessCount)
	assert.Equal(t, 1, result.SkippedCount)
	for _, op := range result.Operations {
		assert.True(t, op.DryRun)
	}

	again, err := svc.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.Summary.TotalIssues, again.Summary.TotalIssues)
}

func TestRepairAppliesLowRiskFixes(t *testing.T) {
	s := newTestStorage(t)
	seedDamaged(t, s)
	svc := NewService(s, logging.Discard())
	ctx := context.Background()

	report, err := svc.Scan(ctx)
	require.NoError(t, err)

	result, err := svc.Repair(ctx, report, false)
	require.NoError(t, err)
	assert.False(t, result.DryRun)
	assert.Equal(t, 5, result.SuccessCount)
	assert.Equal(t, 1, result.SkippedCount)

	after, err := svc.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, after.IssuesFound, 1)
	assert.Equal(t, IssueTypeMissingIP, after.IssuesFound[0].Type)

	maps, err := s.Repository().RoleMaps(ctx)
	require.NoError(t, err)
	require.Len(t, maps, 2)
	assert.Equal(t, "web", maps[0].RoleName)
	assert.Equal(t, "db", maps[1].RoleName)

	ip, err := s.Repository().IP(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ip.IsUsed)

	ip, err = s.Repository().IP(ctx, "10.0.0.3")
	require.NoError(t, err)
	assert.False(t, ip.IsUsed)
}

func TestExecutePlanRollsBack(t *testing.T) {
	s := newTestStorage(t)
	seedDamaged(t, s)
	svc := NewService(s, logging.Discard())
	ctx := context.Background()

	report, err := svc.Scan(ctx)
	require.NoError(t, err)

	plan := svc.CreateRepairPlan(report, false)
	plan.Operations = append(plan.Operations, RepairOperation{Type: OperationType("rewrite_host"), Target: "web01"})

	_, err = svc.ExecutePlan(ctx, plan)
	require.Error(t, err)

	maps, err := s.Repository().RoleMaps(ctx)
	require.NoError(t, err)
	assert.Len(t, maps, 5)
}

type failingStore struct{}

func (failingStore) RunInTx(context.Context, func(context.Context, storage.Repository) error) error {
	return errors.New("database is locked")
}

func TestScanStoreFailure(t *testing.T) {
	svc := NewService(failingStore{}, nil)
	_, err := svc.Scan(context.Background())
	assert.ErrorContains(t, err, "database is locked")
}

func TestCalculateHealthScoreFloor(t *testing.T) {
	report := &ScanReport{Summary: ScanSummary{BySeverity: map[Severity]int{SeverityCritical: 6}}}
	assert.Equal(t, 0, calculateHealthScore(report))
}
