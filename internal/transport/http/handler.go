// Package http exposes the gateway over HTTP: the form bootstrap endpoint,
// the step submission endpoint, and the processor push endpoint.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"leadgate/internal/event"
	"leadgate/internal/submission"
	dErrors "leadgate/pkg/domain-errors"
	"leadgate/pkg/platform/httputil"
	"leadgate/pkg/requestcontext"
)

// Gateway is the synchronous step surface the handler fronts.
type Gateway interface {
	AcceptStep1(ctx context.Context, req submission.Step1Request) (*submission.Step1Result, error)
	AcceptStep2(ctx context.Context, req submission.Step2Request) (*submission.Step2Result, error)
	AcceptStep3(ctx context.Context, req submission.Step3Request) (*submission.Step3Result, error)
}

// EventProcessor handles one queued submission event.
type EventProcessor interface {
	Process(ctx context.Context, ev event.SubmissionCompleted) error
}

// Handler serves the public intake API.
type Handler struct {
	gateway        Gateway
	processor      EventProcessor
	geo            submission.GeoResolver
	trustedOrigins map[string]struct{}
	logger         *slog.Logger
}

// NewHandler constructs the handler. An empty origin list trusts every
// origin, which is the development posture only.
func NewHandler(gateway Gateway, processor EventProcessor, geo submission.GeoResolver, trustedOrigins []string, logger *slog.Logger) *Handler {
	origins := make(map[string]struct{}, len(trustedOrigins))
	for _, o := range trustedOrigins {
		origins[o] = struct{}{}
	}
	return &Handler{
		gateway:        gateway,
		processor:      processor,
		geo:            geo,
		trustedOrigins: origins,
		logger:         logger,
	}
}

type bootstrapResponse struct {
	Success     bool   `json:"success"`
	Campaign    string `json:"campaign,omitempty"`
	Email       string `json:"email,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	Region      string `json:"region,omitempty"`
}

// Bootstrap primes a form session: it validates the caller's origin, echoes
// the campaign and email query parameters, and resolves the caller's
// location so the form can preselect a region.
func (h *Handler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	if !h.originTrusted(r) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeSecurity, "origin not allowed"))
		return
	}

	resp := bootstrapResponse{
		Success:  true,
		Campaign: r.URL.Query().Get("campaign"),
		Email:    r.URL.Query().Get("email"),
	}
	if loc, err := h.geo.Lookup(requestcontext.ClientIP(r.Context())); err == nil {
		resp.CountryCode = loc.CountryCode
		resp.Region = loc.Region
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// submitRequest is the wire shape of the step endpoint. The step
// discriminator selects which fields are meaningful.
type submitRequest struct {
	Step      string `json:"step"`
	RequestID string `json:"requestId"`

	// Step 1.
	FormType     string  `json:"formType,omitempty"`
	Email        string  `json:"email,omitempty"`
	FirstName    string  `json:"firstName,omitempty"`
	LastName     string  `json:"lastName,omitempty"`
	CompanyName  string  `json:"companyName,omitempty"`
	CaptchaToken string  `json:"captchaToken,omitempty"`
	SpamScore    float64 `json:"spamScore,omitempty"`

	// Steps 2 and 3.
	SubmissionID string `json:"submissionId,omitempty"`

	// Step 2.
	Mode    string `json:"mode,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Channel string `json:"channel,omitempty"`
	Code    string `json:"code,omitempty"`

	// Step 3.
	Region string `json:"region,omitempty"`
}

type step1Response struct {
	Success        bool   `json:"success"`
	SubmissionID   string `json:"submissionId"`
	CountryType    string `json:"countryType"`
	CountryBlocked bool   `json:"countryBlocked"`
	BuilderStatus  string `json:"builderStatus"`
}

type step2Response struct {
	Success      bool   `json:"success"`
	SubmissionID string `json:"submissionId"`
	DeliveryRef  string `json:"deliveryRef,omitempty"`
	Verified     bool   `json:"verified"`
}

type step3Response struct {
	Success      bool   `json:"success"`
	SubmissionID string `json:"submissionId"`
	ExternalID   string `json:"externalId"`
}

// Submit routes a step request to the gateway.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[submitRequest](w, r, h.logger)
	if !ok {
		return
	}

	switch req.Step {
	case "1":
		h.submitStep1(w, r, req)
	case "2":
		h.submitStep2(w, r, req)
	case "3":
		h.submitStep3(w, r, req)
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid step").
			WithFields(map[string]string{"step": "must be 1, 2, or 3"}))
	}
}

func (h *Handler) submitStep1(w http.ResponseWriter, r *http.Request, req submitRequest) {
	result, err := h.gateway.AcceptStep1(r.Context(), submission.Step1Request{
		RequestID:    req.RequestID,
		FormType:     req.FormType,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		CompanyName:  req.CompanyName,
		CaptchaToken: req.CaptchaToken,
		SpamScore:    req.SpamScore,
	})
	if err != nil {
		h.writeFailure(w, r, err, "1")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, step1Response{
		Success:        true,
		SubmissionID:   result.SubmissionID.String(),
		CountryType:    result.CountryType,
		CountryBlocked: result.CountryBlocked,
		BuilderStatus:  string(result.BuilderStatus),
	})
}

func (h *Handler) submitStep2(w http.ResponseWriter, r *http.Request, req submitRequest) {
	id, err := uuid.Parse(req.SubmissionID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid submission id").
			WithFields(map[string]string{"submissionId": "must be a UUID"}))
		return
	}
	result, err := h.gateway.AcceptStep2(r.Context(), submission.Step2Request{
		RequestID:    req.RequestID,
		SubmissionID: id,
		Phone:        req.Phone,
		Mode:         submission.Mode(req.Mode),
		Channel:      req.Channel,
		Code:         req.Code,
	})
	if err != nil {
		h.writeFailure(w, r, err, "2")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, step2Response{
		Success:      true,
		SubmissionID: result.SubmissionID.String(),
		DeliveryRef:  result.DeliveryRef,
		Verified:     result.Verified,
	})
}

func (h *Handler) submitStep3(w http.ResponseWriter, r *http.Request, req submitRequest) {
	id, err := uuid.Parse(req.SubmissionID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid submission id").
			WithFields(map[string]string{"submissionId": "must be a UUID"}))
		return
	}
	result, err := h.gateway.AcceptStep3(r.Context(), submission.Step3Request{
		RequestID:    req.RequestID,
		SubmissionID: id,
		Region:       req.Region,
	})
	if err != nil {
		h.writeFailure(w, r, err, "3")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, step3Response{
		Success:      true,
		SubmissionID: result.SubmissionID.String(),
		ExternalID:   result.ExternalID,
	})
}

// Process accepts a pushed submission event. This is the transport used when
// no broker is configured; the broker consumer calls the same processor.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	ev, ok := httputil.Decode[event.SubmissionCompleted](w, r, h.logger)
	if !ok {
		return
	}
	if ev.MessageID == "" || ev.SubmissionID == uuid.Nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid event payload"))
		return
	}
	if err := h.processor.Process(r.Context(), ev); err != nil {
		h.logger.ErrorContext(r.Context(), "pushed event processing failed",
			"message_id", ev.MessageID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}

func (h *Handler) originTrusted(r *http.Request) bool {
	if len(h.trustedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Referer")
	}
	_, ok := h.trustedOrigins[origin]
	return ok
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error, step string) {
	if _, ok := dErrors.As(err); !ok {
		h.logger.ErrorContext(r.Context(), "step failed",
			"step", step,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
