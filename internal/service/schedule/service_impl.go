package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/phrazzld/sprout-api/internal/domain/recurrence"
	"github.com/phrazzld/sprout-api/internal/platform/logger"
	"github.com/phrazzld/sprout-api/internal/store"
)

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	uow         store.ScheduleUnitOfWork
	occurrences store.OccurrenceStore
	recurrence  recurrence.Service
	now         func() time.Time
	logger      *slog.Logger
}

// NewService creates the schedule service. "Today" for due-date computation
// comes from rec.
func NewService(
	uow store.ScheduleUnitOfWork,
	occurrences store.OccurrenceStore,
	rec recurrence.Service,
	logger *slog.Logger,
) Service {
	if uow == nil {
		panic("uow cannot be nil")
	}
	if occurrences == nil {
		panic("occurrences cannot be nil")
	}
	if rec == nil {
		panic("recurrence service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &serviceImpl{
		uow:         uow,
		occurrences: occurrences,
		recurrence:  rec,
		now:         time.Now,
		logger:      logger.With(slog.String("component", "schedule_service")),
	}
}

// CreateOrReplaceRule implements Service.
func (s *serviceImpl) CreateOrReplaceRule(
	ctx context.Context,
	ownerID, subjectID uuid.UUID,
	kind domain.TaskKind,
	anchor civil.Date,
	intervalValue int,
	unit domain.IntervalUnit,
) (*domain.ScheduleRule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("owner_id", ownerID.String()),
		slog.String("subject_id", subjectID.String()),
		slog.String("kind", string(kind)))

	candidate, err := domain.NewScheduleRule(ownerID, subjectID, kind, anchor, intervalValue, unit)
	if err != nil {
		return nil, err
	}

	var result *domain.ScheduleRule
	txFn := func(ctx context.Context, rules store.RuleStore, occs store.OccurrenceStore) error {
		existing, err := rules.GetBySubjectKindForUpdate(ctx, subjectID, kind)
		if store.IsNotFoundError(err) {
			if err := rules.Create(ctx, candidate); err != nil {
				return err
			}
			if _, _, err := s.ensurePendingTx(ctx, occs, candidate); err != nil {
				return err
			}
			log.Info("schedule rule created", slog.String("rule_id", candidate.ID.String()))
			result = candidate
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load rule: %w", err)
		}

		if existing.OwnerID != ownerID {
			return ErrRuleNotOwned
		}

		if existing.Active && existing.SameCadence(anchor, intervalValue, unit) {
			if _, _, err := s.ensurePendingTx(ctx, occs, existing); err != nil {
				return err
			}
			result = existing
			return nil
		}

		now := s.now()
		if err := existing.Reconfigure(anchor, intervalValue, unit, now); err != nil {
			return err
		}
		if err := rules.Update(ctx, existing); err != nil {
			return fmt.Errorf("failed to update rule: %w", err)
		}

		closed, err := s.closePendingTx(ctx, occs, existing.ID, now)
		if err != nil {
			return err
		}
		if _, _, err := s.ensurePendingTx(ctx, occs, existing); err != nil {
			return err
		}

		log.Info("schedule rule reconfigured",
			slog.String("rule_id", existing.ID.String()),
			slog.Int("closed_occurrences", closed))
		result = existing
		return nil
	}

	err = s.uow.WithinTx(ctx, txFn)
	if errors.Is(err, store.ErrRuleExists) {
		// A concurrent request created the rule first; retry against it.
		err = s.uow.WithinTx(ctx, txFn)
	}
	if err != nil {
		return nil, s.wrap(log, "create_or_replace_rule", "failed to save schedule rule", err)
	}

	return result, nil
}

// CompleteOccurrence implements Service.
func (s *serviceImpl) CompleteOccurrence(
	ctx context.Context,
	occurrenceID, ownerID uuid.UUID,
) (*CompletionResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("owner_id", ownerID.String()),
		slog.String("occurrence_id", occurrenceID.String()))

	var result *CompletionResult
	err := s.uow.WithinTx(ctx, func(ctx context.Context, rules store.RuleStore, occs store.OccurrenceStore) error {
		// Read without a lock to learn the rule, then lock rule before occurrence.
		occ, err := occs.GetByID(ctx, occurrenceID)
		if err != nil {
			return mapOccurrenceErr(err)
		}
		if occ.OwnerID != ownerID {
			return ErrOccurrenceNotOwned
		}

		rule, err := rules.GetForUpdate(ctx, occ.RuleID)
		if err != nil {
			return fmt.Errorf("failed to lock rule: %w", err)
		}

		occ, err = occs.GetForUpdate(ctx, occurrenceID)
		if err != nil {
			return mapOccurrenceErr(err)
		}

		if !occ.Complete(s.now(), domain.CompletionSourceUser) {
			log.Debug("occurrence already completed")
			result = &CompletionResult{Completed: occ}
			return nil
		}
		if err := occs.MarkCompleted(ctx, occ); err != nil {
			return fmt.Errorf("failed to mark occurrence completed: %w", err)
		}

		result = &CompletionResult{Completed: occ}
		if !rule.Active {
			log.Debug("rule inactive, no successor created")
			return nil
		}

		pending, err := occs.ListPendingByRule(ctx, rule.ID)
		if err != nil {
			return fmt.Errorf("failed to list pending occurrences: %w", err)
		}
		if len(pending) > 0 {
			log.Warn("rule already has a pending occurrence, not creating a successor",
				slog.String("rule_id", rule.ID.String()),
				slog.Int("pending", len(pending)))
			result.Next = pending[0]
			return nil
		}

		due, err := s.recurrence.NextAfter(rule.AnchorDate, rule.IntervalValue, rule.IntervalUnit, occ.DueDate)
		if err != nil {
			return fmt.Errorf("failed to compute successor due date: %w", err)
		}
		next, err := domain.NewTaskOccurrence(rule, due)
		if err != nil {
			return err
		}
		if err := occs.Create(ctx, next); err != nil {
			return fmt.Errorf("failed to create successor occurrence: %w", err)
		}

		result.Next = next
		return nil
	})
	if err != nil {
		return nil, s.wrap(log, "complete_occurrence", "failed to complete occurrence", err)
	}

	if result.Next != nil {
		log.Info("occurrence completed",
			slog.String("next_occurrence_id", result.Next.ID.String()),
			slog.String("next_due", result.Next.DueDate.String()))
	}
	return result, nil
}

// DeactivateRule implements Service.
func (s *serviceImpl) DeactivateRule(ctx context.Context, ruleID, ownerID uuid.UUID) (*domain.ScheduleRule, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("owner_id", ownerID.String()),
		slog.String("rule_id", ruleID.String()))

	var result *domain.ScheduleRule
	err := s.uow.WithinTx(ctx, func(ctx context.Context, rules store.RuleStore, _ store.OccurrenceStore) error {
		rule, err := rules.GetForUpdate(ctx, ruleID)
		if err != nil {
			return mapRuleErr(err)
		}
		if rule.OwnerID != ownerID {
			return ErrRuleNotOwned
		}

		result = rule
		if !rule.Active {
			return nil
		}

		rule.Deactivate(s.now())
		if err := rules.Update(ctx, rule); err != nil {
			return fmt.Errorf("failed to update rule: %w", err)
		}
		log.Info("schedule rule deactivated")
		return nil
	})
	if err != nil {
		return nil, s.wrap(log, "deactivate_rule", "failed to deactivate rule", err)
	}

	return result, nil
}

// EnsurePending implements Service.
func (s *serviceImpl) EnsurePending(ctx context.Context, ruleID uuid.UUID) (*domain.TaskOccurrence, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("rule_id", ruleID.String()))

	var result *domain.TaskOccurrence
	err := s.uow.WithinTx(ctx, func(ctx context.Context, rules store.RuleStore, occs store.OccurrenceStore) error {
		rule, err := rules.GetForUpdate(ctx, ruleID)
		if err != nil {
			return mapRuleErr(err)
		}

		occ, _, err := s.ensurePendingTx(ctx, occs, rule)
		if err != nil {
			return err
		}
		if occ == nil {
			return ErrNoPendingOccurrence
		}
		result = occ
		return nil
	})
	if err != nil {
		return nil, s.wrap(log, "ensure_pending", "failed to ensure pending occurrence", err)
	}

	return result, nil
}

// PendingForRule implements Service.
func (s *serviceImpl) PendingForRule(ctx context.Context, ruleID uuid.UUID) (*domain.TaskOccurrence, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("rule_id", ruleID.String()))

	pending, err := s.occurrences.ListPendingByRule(ctx, ruleID)
	if err != nil {
		return nil, s.wrap(log, "pending_for_rule", "failed to list pending occurrences", err)
	}
	if len(pending) == 0 {
		return nil, ErrNoPendingOccurrence
	}
	if len(pending) > 1 {
		log.Warn("multiple pending occurrences for rule, using earliest",
			slog.Int("pending", len(pending)))
	}
	return pending[0], nil
}

// ensurePendingTx returns the rule's earliest pending occurrence, creating
// one at the next due date when an active rule has none.
func (s *serviceImpl) ensurePendingTx(
	ctx context.Context,
	occs store.OccurrenceStore,
	rule *domain.ScheduleRule,
) (*domain.TaskOccurrence, bool, error) {
	pending, err := occs.ListPendingByRule(ctx, rule.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list pending occurrences: %w", err)
	}
	if len(pending) > 0 {
		return pending[0], false, nil
	}
	if !rule.Active {
		return nil, false, nil
	}

	due, err := s.recurrence.NextDue(rule.AnchorDate, rule.IntervalValue, rule.IntervalUnit)
	if err != nil {
		return nil, false, fmt.Errorf("failed to compute due date: %w", err)
	}
	occ, err := domain.NewTaskOccurrence(rule, due)
	if err != nil {
		return nil, false, err
	}
	if err := occs.Create(ctx, occ); err != nil {
		return nil, false, fmt.Errorf("failed to create occurrence: %w", err)
	}
	return occ, true, nil
}

// closePendingTx completes every pending occurrence of a rule as closed by an edit.
func (s *serviceImpl) closePendingTx(
	ctx context.Context,
	occs store.OccurrenceStore,
	ruleID uuid.UUID,
	now time.Time,
) (int, error) {
	pending, err := occs.ListPendingByRule(ctx, ruleID)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending occurrences: %w", err)
	}
	for _, occ := range pending {
		occ.Complete(now, domain.CompletionSourceEdit)
		if err := occs.MarkCompleted(ctx, occ); err != nil {
			return 0, fmt.Errorf("failed to close occurrence %s: %w", occ.ID, err)
		}
	}
	return len(pending), nil
}

// wrap passes expected errors through and wraps everything else.
func (s *serviceImpl) wrap(log *slog.Logger, operation, message string, err error) error {
	switch {
	case errors.Is(err, ErrRuleNotFound),
		errors.Is(err, ErrRuleNotOwned),
		errors.Is(err, ErrOccurrenceNotFound),
		errors.Is(err, ErrOccurrenceNotOwned),
		errors.Is(err, ErrNoPendingOccurrence),
		errors.Is(err, domain.ErrValidation):
		return err
	}

	log.Error(message, slog.String("operation", operation), slog.Any("error", err))
	return NewServiceError(operation, message, err)
}

func mapRuleErr(err error) error {
	if store.IsNotFoundError(err) {
		return ErrRuleNotFound
	}
	return fmt.Errorf("failed to load rule: %w", err)
}

func mapOccurrenceErr(err error) error {
	if store.IsNotFoundError(err) {
		return ErrOccurrenceNotFound
	}
	return fmt.Errorf("failed to load occurrence: %w", err)
}
