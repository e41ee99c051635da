// Package integrity polices row-level invariants and referential ownership
// on the underlying store. The enforcer reports what is wrong, repairs what
// can be repaired mechanically, and escalates the rest to manual review; it
// never invents data.
package integrity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/repository"
)

// Check names reported by Validate.
const (
	CheckRatingRange            = "rating_range"
	CheckEmailFormat            = "email_format"
	CheckDateOrder              = "date_order"
	CheckResponseMetricPositive = "response_metric_positive"
	CheckOrphanedRows           = "orphaned_rows"
	CheckEntityReferences       = "entity_references"
)

// CheckResult is the outcome of one validation check.
type CheckResult struct {
	Name         string
	Valid        bool
	InvalidCount int64
	Message      string
}

// ValidationResult aggregates all checks from one Validate run.
type ValidationResult struct {
	CheckedAt time.Time
	Checks    []CheckResult
}

// Check returns the named result, nil when absent.
func (r *ValidationResult) Check(name string) *CheckResult {
	for i := range r.Checks {
		if r.Checks[i].Name == name {
			return &r.Checks[i]
		}
	}
	return nil
}

// RepairReport summarizes one AutoRepair run.
type RepairReport struct {
	ChecksRun         int
	AutoFixed         int64
	ManualReviewItems []string
	DryRun            bool
}

// Enforcer validates and repairs row-level invariants.
type Enforcer struct {
	store         repository.IntegrityStore
	tickets       repository.TicketRepository
	manager       *Manager
	neutralRating int
	logger        *zap.Logger
}

// NewEnforcer constructs an Enforcer. neutralRating is the value invalid
// ratings are clamped to.
func NewEnforcer(
	store repository.IntegrityStore,
	tickets repository.TicketRepository,
	manager *Manager,
	neutralRating int,
	logger *zap.Logger,
) *Enforcer {
	if neutralRating < 1 || neutralRating > 5 {
		neutralRating = 3
	}
	return &Enforcer{
		store:         store,
		tickets:       tickets,
		manager:       manager,
		neutralRating: neutralRating,
		logger:        logger,
	}
}

// Validate runs every check and records each outcome. Invalid data is
// reported, never returned as an error; only infrastructure failures abort.
func (e *Enforcer) Validate(ctx context.Context) (*ValidationResult, error) {
	result := &ValidationResult{CheckedAt: time.Now().UTC()}

	ratings, err := e.store.ListInvalidRatings(ctx)
	if err != nil {
		return nil, err
	}
	result.Checks = append(result.Checks, checkOf(CheckRatingRange, int64(len(ratings)), "ratings outside 1..5"))

	badEmails, err := e.invalidEmails(ctx)
	if err != nil {
		return nil, err
	}
	result.Checks = append(result.Checks, checkOf(CheckEmailFormat, int64(len(badEmails)), "malformed customer emails"))

	disordered, err := e.disorderedTickets(ctx)
	if err != nil {
		return nil, err
	}
	result.Checks = append(result.Checks, checkOf(CheckDateOrder, int64(len(disordered)), "tickets with impossible milestone ordering"))

	metrics, err := e.store.ListNonPositiveMetrics(ctx)
	if err != nil {
		return nil, err
	}
	result.Checks = append(result.Checks, checkOf(CheckResponseMetricPositive, int64(len(metrics)), "response metrics with non-positive duration"))

	orphanCounts, err := e.manager.CountTicketDependents(ctx)
	if err != nil {
		return nil, err
	}
	var orphanTotal int64
	for _, count := range orphanCounts {
		orphanTotal += count
	}
	result.Checks = append(result.Checks, checkOf(CheckOrphanedRows, orphanTotal, "dependent rows referencing a missing ticket"))

	missingEntity, err := e.store.ListTicketsMissingEntity(ctx)
	if err != nil {
		return nil, err
	}
	result.Checks = append(result.Checks, checkOf(CheckEntityReferences, int64(len(missingEntity)), "tickets referencing missing entities"))

	for _, check := range result.Checks {
		if !check.Valid {
			e.logger.Warn("validation check failed",
				zap.String("check", check.Name),
				zap.Int64("invalid_count", check.InvalidCount),
			)
		}
	}
	return result, nil
}

// AutoRepair applies each failing check's repair policy. With dryRun set it
// counts what would change without writing. Idempotent: a repaired store
// yields a second report with zero fixes.
func (e *Enforcer) AutoRepair(ctx context.Context, result *ValidationResult, dryRun bool) (*RepairReport, error) {
	report := &RepairReport{DryRun: dryRun}

	for _, check := range result.Checks {
		if check.Valid {
			continue
		}
		report.ChecksRun++

		var err error
		switch check.Name {
		case CheckRatingRange:
			err = e.repairRatings(ctx, report, dryRun)
		case CheckEmailFormat:
			err = e.repairEmails(ctx, report, dryRun)
		case CheckDateOrder:
			err = e.repairDateOrder(ctx, report, dryRun)
		case CheckResponseMetricPositive:
			err = e.repairMetrics(ctx, report, dryRun)
		case CheckOrphanedRows:
			err = e.repairOrphans(ctx, report, dryRun)
		case CheckEntityReferences:
			err = e.reportMissingEntities(ctx, report)
		}
		if err != nil {
			return report, err
		}
	}

	e.logger.Info("auto repair finished",
		zap.Int("checks_run", report.ChecksRun),
		zap.Int64("auto_fixed", report.AutoFixed),
		zap.Int("manual_review", len(report.ManualReviewItems)),
		zap.Bool("dry_run", dryRun),
	)
	return report, nil
}

// InstallConstraints declares the CHECK constraints so future violating
// writes fail loudly. Existing constraints are skipped; an uninitialized
// store is a no-op.
func (e *Enforcer) InstallConstraints(ctx context.Context) error {
	if err := e.store.InstallCheckConstraints(ctx); err != nil {
		return err
	}
	e.logger.Info("check constraints installed")
	return nil
}

func (e *Enforcer) repairRatings(ctx context.Context, report *RepairReport, dryRun bool) error {
	ratings, err := e.store.ListInvalidRatings(ctx)
	if err != nil {
		return err
	}
	for _, rating := range ratings {
		if !dryRun {
			if err := e.store.UpdateRating(ctx, rating.ID, e.neutralRating); err != nil {
				return err
			}
		}
		report.AutoFixed++
	}
	return nil
}

func (e *Enforcer) repairEmails(ctx context.Context, report *RepairReport, dryRun bool) error {
	emails, err := e.store.ListTicketEmails(ctx)
	if err != nil {
		return err
	}
	for _, te := range emails {
		if IsValidEmail(te.Email) {
			continue
		}
		fixed, ok := FixEmail(te.Email)
		if !ok {
			report.ManualReviewItems = append(report.ManualReviewItems,
				fmt.Sprintf("ticket %s: email %q could not be repaired", te.Number, te.Email))
			continue
		}
		if !dryRun {
			if err := e.store.UpdateCustomerEmail(ctx, te.TicketID, fixed); err != nil {
				return err
			}
		}
		report.AutoFixed++
	}
	return nil
}

// repairDateOrder nulls milestones that contradict the ticket timeline. A
// wrong timestamp is dropped, never adjusted: the next sync regrades the row
// with the milestone absent.
func (e *Enforcer) repairDateOrder(ctx context.Context, report *RepairReport, dryRun bool) error {
	disordered, err := e.disorderedTickets(ctx)
	if err != nil {
		return err
	}
	for _, violation := range disordered {
		if !dryRun {
			if err := e.store.ClearMilestone(ctx, violation.ticketID, violation.field); err != nil {
				return err
			}
		}
		report.AutoFixed++
	}
	return nil
}

func (e *Enforcer) repairMetrics(ctx context.Context, report *RepairReport, dryRun bool) error {
	metrics, err := e.store.ListNonPositiveMetrics(ctx)
	if err != nil {
		return err
	}
	for _, metric := range metrics {
		if !dryRun {
			if err := e.store.DeleteMetric(ctx, metric.ID); err != nil {
				return err
			}
		}
		report.AutoFixed++
	}
	return nil
}

// repairOrphans deletes only dependents of a gone ticket or reply. Tickets
// whose entity is gone stay put; reportMissingEntities surfaces those.
func (e *Enforcer) repairOrphans(ctx context.Context, report *RepairReport, dryRun bool) error {
	if dryRun {
		counts, err := e.manager.CountTicketDependents(ctx)
		if err != nil {
			return err
		}
		for _, count := range counts {
			report.AutoFixed += count
		}
		return nil
	}
	sweeps, err := e.manager.SweepTicketDependents(ctx)
	if err != nil {
		return err
	}
	for _, sweep := range sweeps {
		report.AutoFixed += sweep.RowsAffected
	}
	return nil
}

// reportMissingEntities only records the affected tickets. Reattaching a
// ticket to an entity is an operator decision.
func (e *Enforcer) reportMissingEntities(ctx context.Context, report *RepairReport) error {
	missing, err := e.store.ListTicketsMissingEntity(ctx)
	if err != nil {
		return err
	}
	for _, ticketID := range missing {
		report.ManualReviewItems = append(report.ManualReviewItems,
			fmt.Sprintf("ticket %s: references a missing entity", ticketID))
	}
	return nil
}

func (e *Enforcer) invalidEmails(ctx context.Context) ([]repository.TicketEmail, error) {
	emails, err := e.store.ListTicketEmails(ctx)
	if err != nil {
		return nil, err
	}
	var invalid []repository.TicketEmail
	for _, te := range emails {
		if !IsValidEmail(te.Email) {
			invalid = append(invalid, te)
		}
	}
	return invalid, nil
}

type dateViolation struct {
	ticketID string
	field    repository.MilestoneField
}

// disorderedTickets finds milestones that precede creation or close before
// resolve.
func (e *Enforcer) disorderedTickets(ctx context.Context) ([]dateViolation, error) {
	tickets, err := e.tickets.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var violations []dateViolation
	for i := range tickets {
		t := &tickets[i]
		if t.FirstResponseAt != nil && t.FirstResponseAt.Before(t.CreatedAt) {
			violations = append(violations, dateViolation{t.ID, repository.FieldFirstResponseAt})
		}
		if t.ResolvedAt != nil && t.ResolvedAt.Before(t.CreatedAt) {
			violations = append(violations, dateViolation{t.ID, repository.FieldResolvedAt})
		}
		if t.ClosedAt != nil && t.ResolvedAt != nil && t.ClosedAt.Before(*t.ResolvedAt) {
			violations = append(violations, dateViolation{t.ID, repository.FieldClosedAt})
		}
	}
	return violations, nil
}

func checkOf(name string, invalid int64, message string) CheckResult {
	check := CheckResult{Name: name, Valid: invalid == 0, InvalidCount: invalid}
	if !check.Valid {
		check.Message = message
	}
	return check
}
