package submission

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "leadgate/pkg/domain-errors"
)

func validStep1() Step1Request {
	return Step1Request{
		RequestID:    "r1",
		FormType:     "trial",
		Email:        "a@corp.com",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		CompanyName:  "Corp Inc",
		CaptchaToken: "tok",
	}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	de, ok := dErrors.As(err)
	require.True(t, ok)
	assert.Equal(t, dErrors.CodeValidation, de.Code)
	return de.Fields
}

func TestStep1RequestValidate(t *testing.T) {
	t.Run("valid request passes", func(t *testing.T) {
		assert.NoError(t, validStep1().Validate())
	})

	t.Run("collects every failing field", func(t *testing.T) {
		req := Step1Request{Email: "nope"}
		fields := fieldErrors(t, req.Validate())
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "firstName")
		assert.Contains(t, fields, "lastName")
		assert.Contains(t, fields, "companyName")
		assert.Contains(t, fields, "captchaToken")
		assert.Contains(t, fields, "requestId")
	})
}

func TestStep2RequestValidate(t *testing.T) {
	t.Run("request mode needs phone and channel", func(t *testing.T) {
		req := Step2Request{RequestID: "r", SubmissionID: uuid.New(), Mode: ModeRequest}
		fields := fieldErrors(t, req.Validate())
		assert.Contains(t, fields, "phone")
		assert.Contains(t, fields, "channel")
	})

	t.Run("verify mode needs a numeric code", func(t *testing.T) {
		req := Step2Request{RequestID: "r", SubmissionID: uuid.New(), Mode: ModeVerify, Code: "abc"}
		fields := fieldErrors(t, req.Validate())
		assert.Contains(t, fields, "code")
	})

	t.Run("unknown mode is rejected", func(t *testing.T) {
		req := Step2Request{RequestID: "r", SubmissionID: uuid.New(), Mode: Mode("other")}
		fields := fieldErrors(t, req.Validate())
		assert.Contains(t, fields, "mode")
	})

	t.Run("valid request mode passes", func(t *testing.T) {
		req := Step2Request{
			RequestID: "r", SubmissionID: uuid.New(), Mode: ModeRequest,
			Phone: "+12025551234", Channel: "sms",
		}
		assert.NoError(t, req.Validate())
	})
}

func TestFormName(t *testing.T) {
	name, err := FormName("trial")
	require.NoError(t, err)
	assert.Equal(t, "trial_signup", name)

	_, err = FormName("mystery")
	assert.Error(t, err)
}
