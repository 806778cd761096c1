// Package submission owns the synchronous intake steps: creation, phone
// verification, and completion. The aggregate moves forward-only through its
// state machine; each step request carries a client request id so retries
// replay the recorded outcome instead of re-executing side effects.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"leadgate/internal/captcha"
	"leadgate/internal/event"
	"leadgate/internal/platform/geoip"
	"leadgate/internal/policy"
	"leadgate/internal/ratelimit"
	dErrors "leadgate/pkg/domain-errors"
	"leadgate/pkg/identity"
	"leadgate/pkg/platform/sentinel"
	"leadgate/pkg/requestcontext"
)

// RateLimiter answers whether a submission is allowed on a given dimension.
type RateLimiter interface {
	Validate(ctx context.Context, dim ratelimit.Dimension, identity ratelimit.Identity, formName string, exclude uuid.UUID) (bool, error)
}

// CodeIssuer issues and checks one-time phone verification codes.
type CodeIssuer interface {
	Issue(ctx context.Context, phone, channel string, now time.Time) (*VerificationRecord, error)
	Check(record *VerificationRecord, supplied string, now time.Time) error
}

// GeoResolver resolves a client address to a location.
type GeoResolver interface {
	Lookup(addr string) (geoip.Location, error)
}

// BuilderProbe reports the downstream builder's capacity signal.
type BuilderProbe interface {
	Status(ctx context.Context) BuilderStatus
}

// EventDispatcher publishes the completion event to the processing queue.
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev event.SubmissionCompleted) error
}

// Service is the submission gateway.
type Service struct {
	store      Store
	limiter    RateLimiter
	codes      CodeIssuer
	captcha    captcha.Verifier
	geo        GeoResolver
	probe      BuilderProbe
	dispatcher EventDispatcher
	logger     *slog.Logger
}

// New wires the gateway. Every collaborator is required.
func New(
	store Store,
	limiter RateLimiter,
	codes CodeIssuer,
	verifier captcha.Verifier,
	geo GeoResolver,
	probe BuilderProbe,
	dispatcher EventDispatcher,
	logger *slog.Logger,
) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("submission store is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if codes == nil {
		return nil, fmt.Errorf("code issuer is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("captcha verifier is required")
	}
	if geo == nil {
		return nil, fmt.Errorf("geo resolver is required")
	}
	if probe == nil {
		return nil, fmt.Errorf("builder probe is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("event dispatcher is required")
	}

	return &Service{
		store:      store,
		limiter:    limiter,
		codes:      codes,
		captcha:    verifier,
		geo:        geo,
		probe:      probe,
		dispatcher: dispatcher,
		logger:     logger,
	}, nil
}

// AcceptStep1 validates the identity payload, verifies the captcha token,
// checks the email rate-limit window, and creates the submission. A retried
// request id replays the original outcome.
func (s *Service) AcceptStep1(ctx context.Context, req Step1Request) (*Step1Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	formName, err := FormName(req.FormType)
	if err != nil {
		return nil, err
	}

	email := identity.NormalizeEmail(req.Email)
	clientIdentity := identity.EmailDigest(email)

	if prior, err := s.store.FindByStepRequest(ctx, clientIdentity, 1, req.RequestID); err == nil {
		return s.step1Result(prior), nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("replay lookup: %w", err)
	}

	if err := s.captcha.Verify(ctx, req.CaptchaToken, requestcontext.ClientIP(ctx)); err != nil {
		if errors.Is(err, captcha.ErrTokenRejected) {
			return nil, dErrors.New(dErrors.CodeSecurity, "captcha verification failed")
		}
		return nil, fmt.Errorf("verify captcha: %w", err)
	}

	geo, countryType := s.resolveGeo(ctx)

	allowed, err := s.limiter.Validate(ctx, ratelimit.DimensionEmail,
		ratelimit.Identity{EmailDigest: clientIdentity}, formName, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		return nil, dErrors.New(dErrors.CodeRateLimited, "a recent submission already exists for this contact")
	}

	now := requestcontext.Now(ctx)
	sub := &Submission{
		ClientIdentity:     clientIdentity,
		ID:                 uuid.New(),
		FormName:           formName,
		Status:             StatusCreated,
		CreatedAt:          now,
		UpdatedAt:          now,
		EmailDomain:        identity.EmailDomain(email),
		DomainType:         policy.ClassifyDomain(identity.EmailDomain(email)),
		TurnstileValidated: true,
		CountryType:        countryType,
		CountryCode:        geo.CountryCode,
		BuilderStatus:      s.probe.Status(ctx),
		CompanyName:        req.CompanyName,
		SpamScore:          req.SpamScore,
	}
	sub.AppendStep(s.stepEvent(ctx, 1, "", req.RequestID, geo))

	if err := s.store.Create(ctx, sub); err != nil {
		return nil, s.toDomainError(err, "create submission")
	}

	metricSteps.WithLabelValues("1").Inc()
	s.logger.InfoContext(ctx, "submission created",
		"submission_id", sub.ID,
		"form_name", formName,
		"country_type", countryType,
		"builder_status", sub.BuilderStatus,
	)
	return s.step1Result(sub), nil
}

// AcceptStep2 handles the phone verification exchange. In request mode it
// issues and dispatches a one-time code; in verify mode it checks the
// supplied code. Either mode replays on a retried request id, and verifying
// an already-verified submission is a no-op.
func (s *Service) AcceptStep2(ctx context.Context, req Step2Request) (*Step2Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.store.GetByID(ctx, req.SubmissionID)
	if err != nil {
		return nil, s.toDomainError(err, "load submission")
	}

	if prior := sub.FindStepEvent(2, string(req.Mode), req.RequestID); prior != nil {
		// A recorded request whose code never went out is re-entered rather
		// than replayed; every other retry gets the recorded outcome.
		deadRequest := req.Mode == ModeRequest &&
			sub.Status == StatusCodeRequested && sub.Verification == nil
		if !deadRequest {
			return s.step2Result(sub), nil
		}
	}

	switch req.Mode {
	case ModeRequest:
		return s.requestCode(ctx, sub, req)
	default:
		return s.verifyCode(ctx, sub, req)
	}
}

func (s *Service) requestCode(ctx context.Context, sub *Submission, req Step2Request) (*Step2Result, error) {
	if !sub.Status.CanAdvanceTo(StatusCodeRequested) {
		return nil, dErrors.New(dErrors.CodeSequence,
			fmt.Sprintf("cannot request a code in status %s", sub.Status))
	}

	phone := identity.NormalizePhone(req.Phone)
	phoneDigest := identity.PhoneDigest(phone)

	allowed, err := s.limiter.Validate(ctx, ratelimit.DimensionPhone,
		ratelimit.Identity{PhoneDigest: phoneDigest}, sub.FormName, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if allowed {
		allowed, err = s.limiter.Validate(ctx, ratelimit.DimensionCombined,
			ratelimit.Identity{EmailDigest: sub.ClientIdentity, PhoneDigest: phoneDigest},
			sub.FormName, sub.ID)
		if err != nil {
			return nil, fmt.Errorf("rate limit check: %w", err)
		}
	}
	if !allowed {
		return nil, dErrors.New(dErrors.CodeRateLimited, "a recent submission already exists for this contact")
	}

	// The request is recorded before the code leaves the building, so a
	// crash between the two writes still shows a code was asked for. A
	// re-entered dead request keeps its original event.
	now := requestcontext.Now(ctx)
	geo, _ := s.resolveGeo(ctx)
	sub.Status = StatusCodeRequested
	sub.PhoneDigest = phoneDigest
	sub.UpdatedAt = now
	if sub.FindStepEvent(2, string(ModeRequest), req.RequestID) == nil {
		sub.AppendStep(s.stepEvent(ctx, 2, string(ModeRequest), req.RequestID, geo))
	}
	if err := s.store.Update(ctx, sub); err != nil {
		return nil, s.toDomainError(err, "record code request")
	}

	record, err := s.codes.Issue(ctx, phone, req.Channel, now)
	if err != nil {
		return nil, fmt.Errorf("issue verification code: %w", err)
	}

	sub.Status = StatusCodeSent
	sub.Verification = record
	sub.UpdatedAt = now
	if err := s.store.Update(ctx, sub); err != nil {
		return nil, s.toDomainError(err, "record code dispatch")
	}

	metricSteps.WithLabelValues("2").Inc()
	s.logger.InfoContext(ctx, "verification code dispatched",
		"submission_id", sub.ID,
		"channel", record.Channel,
	)
	return s.step2Result(sub), nil
}

func (s *Service) verifyCode(ctx context.Context, sub *Submission, req Step2Request) (*Step2Result, error) {
	if statusOrder[sub.Status] >= statusOrder[StatusVerified] {
		return s.step2Result(sub), nil
	}

	now := requestcontext.Now(ctx)
	if err := s.codes.Check(sub.Verification, req.Code, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeSequence, "no verification code has been issued")
		case errors.Is(err, sentinel.ErrExpired):
			return nil, dErrors.New(dErrors.CodeVerificationMismatch, "verification code expired")
		case errors.Is(err, sentinel.ErrInvalidState):
			sub.Verification.Attempts++
			sub.UpdatedAt = now
			if uerr := s.store.Update(ctx, sub); uerr != nil {
				s.logger.WarnContext(ctx, "failed to record verification attempt",
					"submission_id", sub.ID,
					"error", uerr,
				)
			}
			return nil, dErrors.New(dErrors.CodeVerificationMismatch, "verification code mismatch")
		default:
			return nil, fmt.Errorf("check verification code: %w", err)
		}
	}

	geo, _ := s.resolveGeo(ctx)
	sub.Status = StatusVerified
	sub.VerifiedAt = &now
	sub.UpdatedAt = now
	sub.AppendStep(s.stepEvent(ctx, 2, string(ModeVerify), req.RequestID, geo))
	if err := s.store.Update(ctx, sub); err != nil {
		return nil, s.toDomainError(err, "record verification")
	}

	metricSteps.WithLabelValues("2").Inc()
	s.logger.InfoContext(ctx, "phone verified", "submission_id", sub.ID)
	return s.step2Result(sub), nil
}

// AcceptStep3 completes the submission and hands it to the queue. The
// combined rate-limit window is re-checked before completion in case a
// sibling flow finished after Step 2. Completion is persisted before the
// event is published; if publishing fails the retry re-dispatches instead
// of re-completing.
func (s *Service) AcceptStep3(ctx context.Context, req Step3Request) (*Step3Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.store.GetByID(ctx, req.SubmissionID)
	if err != nil {
		return nil, s.toDomainError(err, "load submission")
	}

	if prior := sub.FindStepEvent(3, "", req.RequestID); prior != nil {
		if sub.Status == StatusCompleted {
			if err := s.publish(ctx, sub); err != nil {
				return nil, err
			}
		}
		return &Step3Result{SubmissionID: sub.ID, ExternalID: sub.ExternalID}, nil
	}

	if !sub.Status.CanAdvanceTo(StatusCompleted) {
		return nil, dErrors.New(dErrors.CodeSequence,
			fmt.Sprintf("cannot complete a submission in status %s", sub.Status))
	}
	if sub.BuilderStatus == BuilderUnavailable {
		return nil, dErrors.New(dErrors.CodeSequence, "provisioning is unavailable for this submission")
	}

	allowed, err := s.limiter.Validate(ctx, ratelimit.DimensionCombined,
		ratelimit.Identity{EmailDigest: sub.ClientIdentity, PhoneDigest: sub.PhoneDigest},
		sub.FormName, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		return nil, dErrors.New(dErrors.CodeRateLimited, "a recent submission already exists for this contact")
	}

	now := requestcontext.Now(ctx)
	geo, _ := s.resolveGeo(ctx)
	sub.Status = StatusCompleted
	sub.Region = req.Region
	sub.ExternalID = newExternalID(now)
	sub.CompletedAt = &now
	sub.UpdatedAt = now
	sub.AppendStep(s.stepEvent(ctx, 3, "", req.RequestID, geo))
	if err := s.store.Update(ctx, sub); err != nil {
		return nil, s.toDomainError(err, "record completion")
	}

	if err := s.publish(ctx, sub); err != nil {
		return nil, err
	}

	metricSteps.WithLabelValues("3").Inc()
	s.logger.InfoContext(ctx, "submission completed",
		"submission_id", sub.ID,
		"external_id", sub.ExternalID,
		"region", sub.Region,
	)
	return &Step3Result{SubmissionID: sub.ID, ExternalID: sub.ExternalID}, nil
}

// publish dispatches the completion event and advances to Queued.
func (s *Service) publish(ctx context.Context, sub *Submission) error {
	ev := event.SubmissionCompleted{
		MessageID:      uuid.NewString(),
		ClientIdentity: sub.ClientIdentity,
		SubmissionID:   sub.ID,
		FormName:       sub.FormName,
		CompletedAt:    derefTime(sub.CompletedAt, sub.UpdatedAt),
	}
	if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
		return fmt.Errorf("dispatch completion event: %w", err)
	}

	sub.Status = StatusQueued
	if err := s.store.Update(ctx, sub); err != nil {
		return s.toDomainError(err, "record queueing")
	}
	return nil
}

// resolveGeo fails closed: any lookup problem yields an unknown country,
// which classification treats with suspicion rather than trust.
func (s *Service) resolveGeo(ctx context.Context) (GeoSnapshot, policy.CountryType) {
	loc, err := s.geo.Lookup(requestcontext.ClientIP(ctx))
	if err != nil {
		s.logger.WarnContext(ctx, "geo lookup degraded", "error", err)
		return GeoSnapshot{}, policy.CountryUnknown
	}
	return GeoSnapshot{CountryCode: loc.CountryCode, Region: loc.Region},
		policy.LookupCountry(loc.CountryCode)
}

func (s *Service) stepEvent(ctx context.Context, step int, mode, requestID string, geo GeoSnapshot) StepEvent {
	return StepEvent{
		Step:      step,
		Mode:      mode,
		RequestID: requestID,
		At:        requestcontext.Now(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		Geo:       geo,
	}
}

func (s *Service) step1Result(sub *Submission) *Step1Result {
	return &Step1Result{
		SubmissionID:   sub.ID,
		CountryType:    string(sub.CountryType),
		CountryBlocked: sub.CountryType == policy.CountryBlocked,
		BuilderStatus:  sub.BuilderStatus,
	}
}

func (s *Service) step2Result(sub *Submission) *Step2Result {
	res := &Step2Result{
		SubmissionID: sub.ID,
		Verified:     statusOrder[sub.Status] >= statusOrder[StatusVerified],
	}
	if sub.Verification != nil {
		res.DeliveryRef = sub.Verification.DeliveryRef
	}
	return res
}

// toDomainError translates store sentinels into caller-facing errors.
func (s *Service) toDomainError(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "submission not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeSequence, "submission was modified concurrently, retry")
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func derefTime(t *time.Time, fallback time.Time) time.Time {
	if t != nil {
		return *t
	}
	return fallback
}
