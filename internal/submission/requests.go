package submission

import (
	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"

	dErrors "leadgate/pkg/domain-errors"
)

// Mode selects the behavior of Step 2.
type Mode string

const (
	ModeRequest Mode = "request"
	ModeVerify  Mode = "verify"
)

// formTypes maps the public formType discriminator to the internal form
// name used for rate-limit partitioning.
var formTypes = map[string]string{
	"trial":   "trial_signup",
	"demo":    "demo_request",
	"partner": "partner_signup",
}

// FormName resolves a public form type. Unknown types are a validation
// failure, not a fallthrough.
func FormName(formType string) (string, error) {
	name, ok := formTypes[formType]
	if !ok {
		return "", dErrors.New(dErrors.CodeValidation, "unknown form type").
			WithFields(map[string]string{"formType": "must be one of trial, demo, partner"})
	}
	return name, nil
}

// Step1Request carries the validated identity and company fields for the
// first step. Each step has its own request type so malformed combinations
// are unrepresentable past the transport boundary.
type Step1Request struct {
	RequestID    string
	FormType     string
	Email        string
	FirstName    string
	LastName     string
	CompanyName  string
	CaptchaToken string
	SpamScore    float64
}

// Validate checks format constraints, collecting per-field failures.
func (r Step1Request) Validate() error {
	fields := map[string]string{}
	if !govalidator.IsEmail(r.Email) || !govalidator.StringLength(r.Email, "3", "255") {
		fields["email"] = "must be a valid email address"
	}
	if !govalidator.StringLength(r.FirstName, "1", "100") {
		fields["firstName"] = "is required"
	}
	if !govalidator.StringLength(r.LastName, "1", "100") {
		fields["lastName"] = "is required"
	}
	if !govalidator.StringLength(r.CompanyName, "1", "200") {
		fields["companyName"] = "is required"
	}
	if r.CaptchaToken == "" {
		fields["captchaToken"] = "is required"
	}
	if r.RequestID == "" {
		fields["requestId"] = "is required"
	}
	if len(fields) > 0 {
		return dErrors.New(dErrors.CodeValidation, "invalid step 1 payload").WithFields(fields)
	}
	return nil
}

// Step1Result is the synchronous answer to an accepted first step.
type Step1Result struct {
	SubmissionID   uuid.UUID
	CountryType    string
	CountryBlocked bool
	BuilderStatus  BuilderStatus
}

// Step2Request carries phone verification input.
type Step2Request struct {
	RequestID    string
	SubmissionID uuid.UUID
	Phone        string
	Mode         Mode
	Channel      string
	Code         string
}

// Validate checks format constraints for the requested mode.
func (r Step2Request) Validate() error {
	fields := map[string]string{}
	if r.SubmissionID == uuid.Nil {
		fields["submissionId"] = "is required"
	}
	if r.RequestID == "" {
		fields["requestId"] = "is required"
	}
	switch r.Mode {
	case ModeRequest:
		if !govalidator.StringLength(r.Phone, "7", "20") {
			fields["phone"] = "must be a phone number"
		}
		if r.Channel != "sms" && r.Channel != "voice" {
			fields["channel"] = "must be sms or voice"
		}
	case ModeVerify:
		if !govalidator.IsNumeric(r.Code) || !govalidator.StringLength(r.Code, "4", "10") {
			fields["code"] = "must be a numeric code"
		}
	default:
		fields["mode"] = "must be request or verify"
	}
	if len(fields) > 0 {
		return dErrors.New(dErrors.CodeValidation, "invalid step 2 payload").WithFields(fields)
	}
	return nil
}

// Step2Result is the synchronous answer to an accepted second step.
type Step2Result struct {
	SubmissionID uuid.UUID
	DeliveryRef  string
	Verified     bool
}

// Step3Request carries the destination selection for the final step.
type Step3Request struct {
	RequestID    string
	SubmissionID uuid.UUID
	Region       string
}

// Validate checks format constraints.
func (r Step3Request) Validate() error {
	fields := map[string]string{}
	if r.SubmissionID == uuid.Nil {
		fields["submissionId"] = "is required"
	}
	if r.RequestID == "" {
		fields["requestId"] = "is required"
	}
	if !govalidator.StringLength(r.Region, "2", "20") {
		fields["region"] = "is required"
	}
	if len(fields) > 0 {
		return dErrors.New(dErrors.CodeValidation, "invalid step 3 payload").WithFields(fields)
	}
	return nil
}

// Step3Result is the synchronous answer to an accepted final step.
type Step3Result struct {
	SubmissionID uuid.UUID
	ExternalID   string
}
