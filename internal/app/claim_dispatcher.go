/**
 * @description
 * ClaimDispatcher is the queue message handler for the assignment queue. It
 * decodes a claim, asks the rule processor for eligible reviewers, picks the
 * least loaded one and persists the assignment, then notifies the source
 * company when a notification endpoint is configured.
 *
 * @notes
 * HandleMessage returns true to ack and false to nack without requeue. Bad
 * payloads and domain misses are acked; infrastructure errors are nacked.
 */

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jaldanatrf/assignment-service/internal/domain"
	"github.com/jaldanatrf/assignment-service/internal/metrics"
	"github.com/jaldanatrf/assignment-service/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	messageOutcomeInvalid  = "invalid"
	messageOutcomeDropped  = "dropped"
	messageOutcomePending  = "pending"
	messageOutcomeAssigned = "assigned"
	messageOutcomeFailed   = "failed"
)

// ClaimDispatcher turns assignment queue messages into assignments.
type ClaimDispatcher struct {
	processor *RuleProcessor
	selector  *LeastLoadSelector
	writer    *AssignmentWriter
	configs   store.ConfigurationRepository
	notifier  Notifier
	locker    CandidateLocker
	log       *logrus.Entry
}

// DispatcherOption customizes a ClaimDispatcher.
type DispatcherOption func(*ClaimDispatcher)

// WithNotifier enables outbound notification through configs and n.
func WithNotifier(configs store.ConfigurationRepository, n Notifier) DispatcherOption {
	return func(d *ClaimDispatcher) {
		d.configs = configs
		d.notifier = n
	}
}

// WithCandidateLocker replaces the default no-op locker.
func WithCandidateLocker(l CandidateLocker) DispatcherOption {
	return func(d *ClaimDispatcher) {
		if l != nil {
			d.locker = l
		}
	}
}

func NewClaimDispatcher(processor *RuleProcessor, selector *LeastLoadSelector, writer *AssignmentWriter, logger logrus.FieldLogger, opts ...DispatcherOption) *ClaimDispatcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	d := &ClaimDispatcher{
		processor: processor,
		selector:  selector,
		writer:    writer,
		locker:    NoopLocker{},
		log:       logger.WithField("component", "claim_dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleMessage processes one delivery body. There is no per-message timeout;
// a stalled repository call holds the queue.
func (d *ClaimDispatcher) HandleMessage(ctx context.Context, body []byte) bool {
	start := time.Now()
	defer metrics.ObserveDuration(start)

	if len(bytes.TrimSpace(body)) == 0 {
		d.log.Warn("empty message body; acknowledging")
		metrics.MessagesTotal.WithLabelValues(messageOutcomeInvalid).Inc()
		return true
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		d.log.WithError(err).Warn("failed to unmarshal claim payload; acknowledging")
		metrics.MessagesTotal.WithLabelValues(messageOutcomeInvalid).Inc()
		return true
	}

	result, err := d.processor.ProcessRaw(ctx, raw)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			d.log.WithError(err).Warn("claim failed validation; acknowledging")
			metrics.MessagesTotal.WithLabelValues(messageOutcomeInvalid).Inc()
			return true
		}
		d.log.WithError(err).Error("claim processing failed; rejecting message")
		metrics.MessagesTotal.WithLabelValues(messageOutcomeFailed).Inc()
		return false
	}

	log := d.log.WithFields(logrus.Fields{
		"claim_id":        result.Claim.ClaimID,
		"outcome":         result.Outcome,
		"rules_evaluated": result.TotalRulesEvaluated,
		"rules_applied":   result.TotalRulesApplied,
	})

	if !result.Success {
		log.Info(result.Message + "; acknowledging without assignment")
		metrics.MessagesTotal.WithLabelValues(messageOutcomeDropped).Inc()
		return true
	}

	assignment, user, err := d.assign(ctx, result)
	if err != nil {
		log.WithError(err).Error("assignment failed; rejecting message")
		metrics.MessagesTotal.WithLabelValues(messageOutcomeFailed).Inc()
		return false
	}

	if user != nil {
		log.WithFields(logrus.Fields{"user_id": user.ID, "assignment_id": assignment.ID}).Info("claim assigned")
		metrics.MessagesTotal.WithLabelValues(messageOutcomeAssigned).Inc()
	} else {
		log.WithField("assignment_id", assignment.ID).Info("no eligible reviewer; claim left pending")
		metrics.MessagesTotal.WithLabelValues(messageOutcomePending).Inc()
	}

	d.notify(ctx, result, assignment, user)
	return true
}

// assign selects a reviewer and writes the assignment under the candidate lock.
func (d *ClaimDispatcher) assign(ctx context.Context, result *ProcessingResult) (*domain.Assignment, *domain.User, error) {
	companyID := result.Company.ID
	candidates := result.Candidates()

	if len(candidates) == 0 {
		saved, err := d.writer.Write(ctx, nil, companyID, result.Claim, result)
		return saved, nil, err
	}

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	release := d.locker.Lock(ctx, ids)
	defer release(context.WithoutCancel(ctx))

	user, err := d.selector.Select(ctx, candidates)
	if err != nil {
		return nil, nil, err
	}
	saved, err := d.writer.Write(ctx, user, companyID, result.Claim, result)
	if err != nil {
		return nil, nil, err
	}
	return saved, user, nil
}

// notify is best effort; the assignment is already committed.
func (d *ClaimDispatcher) notify(ctx context.Context, result *ProcessingResult, assignment *domain.Assignment, user *domain.User) {
	if d.notifier == nil || d.configs == nil {
		return
	}
	log := d.log.WithFields(logrus.Fields{"claim_id": result.Claim.ClaimID, "company_id": assignment.CompanyID})
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("assignment notification panicked")
		}
	}()

	cfg, err := d.configs.FindByCompanyID(ctx, assignment.CompanyID)
	if err != nil {
		log.WithError(err).Warn("failed to load notification configuration")
		return
	}
	if cfg == nil || !cfg.IsActive {
		log.Debug("no active notification configuration; skipping")
		return
	}

	if err := d.notifier.Notify(ctx, *cfg, []domain.Assignment{*assignment}, newResolverData(result, user)); err != nil {
		log.WithError(fmt.Errorf("notify %s: %w", cfg.NotificationURL, err)).Warn("assignment notification failed")
		return
	}
	log.Debug("assignment notification delivered")
}
