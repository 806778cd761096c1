package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"leadgate/internal/classify"
	"leadgate/internal/dedup"
	"leadgate/internal/enrich"
	"leadgate/internal/event"
	"leadgate/internal/submission"
	"leadgate/pkg/platform/sentinel"
	"leadgate/pkg/requestcontext"
)

// Processor consumes submission-completed events: it claims each message,
// enriches and classifies the submission, then calls the downstream
// collaborators the flag allows. The claim must be acquired before any side
// effect executes; a lost claim means another processor owns the message.
type Processor struct {
	claims      dedup.Store
	submissions submission.Store
	waterfall   *enrich.Waterfall
	provisioner Provisioner
	marketing   MarketingSink
	logger      *slog.Logger
}

// NewProcessor wires the asynchronous processing pipeline.
func NewProcessor(
	claims dedup.Store,
	submissions submission.Store,
	waterfall *enrich.Waterfall,
	provisioner Provisioner,
	marketing MarketingSink,
	logger *slog.Logger,
) (*Processor, error) {
	if claims == nil {
		return nil, fmt.Errorf("claim store is required")
	}
	if submissions == nil {
		return nil, fmt.Errorf("submission store is required")
	}
	if waterfall == nil {
		return nil, fmt.Errorf("enrichment waterfall is required")
	}
	if provisioner == nil {
		return nil, fmt.Errorf("provisioner is required")
	}
	if marketing == nil {
		return nil, fmt.Errorf("marketing sink is required")
	}

	return &Processor{
		claims:      claims,
		submissions: submissions,
		waterfall:   waterfall,
		provisioner: provisioner,
		marketing:   marketing,
		logger:      logger,
	}, nil
}

// Process handles one event delivery. Redeliveries of an already-claimed
// message are a successful no-op. A non-nil error means the delivery should
// be retried by the transport.
func (p *Processor) Process(ctx context.Context, ev event.SubmissionCompleted) error {
	claimed, err := p.claims.Claim(ctx, ev.MessageID, ev.ContentDigest())
	if err != nil {
		return fmt.Errorf("claim event: %w", err)
	}
	if !claimed {
		p.logger.InfoContext(ctx, "duplicate event delivery skipped",
			"message_id", ev.MessageID,
			"submission_id", ev.SubmissionID,
		)
		return nil
	}

	sub, err := p.submissions.Get(ctx, ev.ClientIdentity, ev.SubmissionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			p.logger.WarnContext(ctx, "event references unknown submission",
				"message_id", ev.MessageID,
				"submission_id", ev.SubmissionID,
			)
			return p.finishClaim(ctx, ev.MessageID)
		}
		return fmt.Errorf("load submission: %w", err)
	}

	if sub.Status.IsTerminal() || sub.Status == submission.StatusPendingReview {
		p.logger.InfoContext(ctx, "submission already processed",
			"submission_id", sub.ID,
			"status", sub.Status,
		)
		return p.finishClaim(ctx, ev.MessageID)
	}

	enrichment := p.enrichSubmission(ctx, sub)

	flag := classify.Classify(classify.Input{
		BuilderStatus:     sub.BuilderStatus,
		CountryType:       sub.CountryType,
		DomainType:        sub.DomainType,
		SpamScore:         sub.SpamScore,
		EnrichmentMatched: sub.EnrichmentMatched != nil && *sub.EnrichmentMatched,
	})
	sub.Flag = flag

	status, reason := p.routeDownstream(ctx, sub, enrichment, flag)
	sub.Status = status
	sub.StatusReason = reason
	sub.UpdatedAt = requestcontext.Now(ctx)

	if err := p.submissions.Update(ctx, sub); err != nil {
		return fmt.Errorf("record processing outcome: %w", err)
	}

	metricProcessed.WithLabelValues(string(flag)).Inc()
	p.logger.InfoContext(ctx, "submission processed",
		"submission_id", sub.ID,
		"flag", flag,
		"status", status,
		"reason", reason,
	)
	return p.finishClaim(ctx, ev.MessageID)
}

// enrichSubmission runs the waterfall and records the outcome on the
// submission. Failure is non-fatal: a missing match routes the submission
// toward review via classification, never toward an error.
func (p *Processor) enrichSubmission(ctx context.Context, sub *submission.Submission) *enrich.Result {
	formResult := &enrich.Result{
		CompanyName: sub.CompanyName,
		Domain:      sub.EmailDomain,
	}

	result, err := p.waterfall.Enrich(ctx, enrich.Identity{
		Domain:      sub.EmailDomain,
		CompanyName: sub.CompanyName,
	})
	matched := err == nil
	sub.EnrichmentMatched = &matched

	if err != nil {
		if !errors.Is(err, enrich.ErrNoMatch) {
			p.logger.WarnContext(ctx, "enrichment degraded",
				"submission_id", sub.ID,
				"error", err,
			)
		}
		return enrich.Merge(formResult)
	}
	return enrich.Merge(formResult, result)
}

// routeDownstream executes the side effects the flag allows and returns the
// final state. Downstream degradation is never fatal; it lands the
// submission in review.
func (p *Processor) routeDownstream(ctx context.Context, sub *submission.Submission, enrichment *enrich.Result, flag submission.Flag) (submission.Status, string) {
	switch flag {
	case submission.FlagGreen:
		if err := p.provisioner.Provision(ctx, sub, enrichment); err != nil {
			p.logger.WarnContext(ctx, "provisioning degraded",
				"submission_id", sub.ID,
				"error", err,
			)
			return submission.StatusPendingReview, "provisioning_degraded"
		}
		if err := p.marketing.Submit(ctx, sub, enrichment); err != nil {
			p.logger.WarnContext(ctx, "marketing submission degraded",
				"submission_id", sub.ID,
				"error", err,
			)
			return submission.StatusPendingReview, "marketing_degraded"
		}
		return submission.StatusSucceeded, ""

	case submission.FlagYellow:
		if err := p.marketing.Submit(ctx, sub, enrichment); err != nil {
			p.logger.WarnContext(ctx, "marketing submission degraded",
				"submission_id", sub.ID,
				"error", err,
			)
			return submission.StatusPendingReview, "marketing_degraded"
		}
		return submission.StatusPendingReview, "flagged_for_review"

	default:
		return submission.StatusBlocked, "flagged_red"
	}
}

func (p *Processor) finishClaim(ctx context.Context, messageID string) error {
	if err := p.claims.Complete(ctx, messageID); err != nil && !errors.Is(err, sentinel.ErrAlreadyUsed) {
		p.logger.WarnContext(ctx, "claim completion failed",
			"message_id", messageID,
			"error", err,
		)
	}
	return nil
}
