package integrity

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hiroakis/host-management-app/internal/storage"
)

// CreateRepairPlan collects the low-risk operations suggested by report.
// Issues that need approval are listed as skipped.
func (s *Service) CreateRepairPlan(report *ScanReport, dryRun bool) *RepairPlan {
	plan := &RepairPlan{
		ID:         uuid.New().String(),
		Timestamp:  s.now(),
		ScanID:     report.ID,
		Operations: []RepairOperation{},
		DryRun:     dryRun,
	}

	for _, issue := range report.IssuesFound {
		res := issue.SuggestedResolution
		if res == nil || res.RequiresApproval || res.Risk != RiskLow {
			plan.Skipped = append(plan.Skipped, issue)
			continue
		}
		plan.Operations = append(plan.Operations, res.Operations...)
	}

	s.logger.Info("generated repair plan",
		slog.String("plan_id", plan.ID),
		slog.Int("operations", len(plan.Operations)),
		slog.Int("skipped", len(plan.Skipped)),
	)
	return plan
}

// Repair plans and executes the low-risk fixes for report.
func (s *Service) Repair(ctx context.Context, report *ScanReport, dryRun bool) (*RepairResult, error) {
	return s.ExecutePlan(ctx, s.CreateRepairPlan(report, dryRun))
}

// ExecutePlan applies every operation of plan in one transaction. Any failure
// rolls back the whole plan.
func (s *Service) ExecutePlan(ctx context.Context, plan *RepairPlan) (*RepairResult, error) {
	s.logger.Info("executing repair plan", slog.String("plan_id", plan.ID), slog.Bool("dry_run", plan.DryRun))

	result := &RepairResult{
		PlanID:       plan.ID,
		ExecutionID:  uuid.New().String(),
		StartTime:    s.now(),
		Operations:   []OperationResult{},
		SkippedCount: len(plan.Skipped),
		DryRun:       plan.DryRun,
	}

	if plan.DryRun {
		for _, op := range plan.Operations {
			result.Operations = append(result.Operations, OperationResult{
				Operation: op,
				Success:   true,
				DryRun:    true,
				Changes:   map[string]interface{}{"action": "simulated"},
			})
		}
		result.SuccessCount = len(plan.Operations)
		s.finish(result)
		return result, nil
	}

	var applied []OperationResult
	err := s.store.RunInTx(ctx, func(ctx context.Context, repo storage.Repository) error {
		applied = applied[:0]
		for _, op := range plan.Operations {
			changes, err := executeOperation(ctx, repo, op)
			if err != nil {
				return fmt.Errorf("operation %s on %s: %w", op.Type, op.Target, err)
			}
			applied = append(applied, OperationResult{Operation: op, Success: true, Changes: changes})
		}
		return nil
	})
	if err != nil {
		s.logger.Error("repair plan rolled back", slog.String("plan_id", plan.ID), slog.String("error", err.Error()))
		return nil, err
	}

	result.Operations = append(result.Operations, applied...)
	result.SuccessCount = len(applied)
	s.finish(result)
	return result, nil
}

func (s *Service) finish(result *RepairResult) {
	result.EndTime = s.now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	if result.Duration < 0 {
		result.Duration = time.Duration(0)
	}
	s.logger.Info("repair completed",
		slog.String("execution_id", result.ExecutionID),
		slog.Int("applied", result.SuccessCount),
		slog.Int("skipped", result.SkippedCount),
		slog.Bool("dry_run", result.DryRun),
	)
}

// executeOperation executes a single repair operation.
func executeOperation(ctx context.Context, repo storage.Repository, op RepairOperation) (map[string]interface{}, error) {
	switch op.Type {
	case OpDeleteRoleMap:
		id, err := strconv.ParseInt(op.Target, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid role_map id: %w", err)
		}
		n, err := repo.DeleteRoleMaps(ctx, []int64{id})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"deleted": n}, nil

	case OpMarkIPUsed, OpMarkIPUnused:
		used := op.Type == OpMarkIPUsed
		if _, err := repo.SetIPUsed(ctx, op.Target, used); err != nil {
			return nil, err
		}
		return map[string]interface{}{"is_used": used}, nil

	default:
		return nil, fmt.Errorf("unknown operation type: %s", op.Type)
	}
}
