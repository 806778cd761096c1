package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailDigest(t *testing.T) {
	t.Run("formatting does not change the digest", func(t *testing.T) {
		assert.Equal(t, EmailDigest("A@Corp.COM"), EmailDigest("  a@corp.com "))
	})

	t.Run("different emails differ", func(t *testing.T) {
		assert.NotEqual(t, EmailDigest("a@corp.com"), EmailDigest("b@corp.com"))
	})

	t.Run("digest does not contain the email", func(t *testing.T) {
		assert.NotContains(t, EmailDigest("a@corp.com"), "corp")
	})
}

func TestEmailDomain(t *testing.T) {
	assert.Equal(t, "corp.com", EmailDomain("A@Corp.COM"))
	assert.Equal(t, "", EmailDomain("no-at-sign"))
	assert.Equal(t, "", EmailDomain("trailing@"))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+12025551234", NormalizePhone("+1 (202) 555-1234"))
	assert.Equal(t, "+12025551234", NormalizePhone(" +1.202.555.1234 "))
	assert.Equal(t, "2025551234", NormalizePhone("202 555 1234"))
	// A plus sign is only meaningful at the start.
	assert.Equal(t, "12025551234", NormalizePhone("1+2025551234"))
}

func TestPhoneDigest(t *testing.T) {
	assert.Equal(t, PhoneDigest("+1 (202) 555-1234"), PhoneDigest("+12025551234"))
	assert.NotEqual(t, PhoneDigest("+12025551234"), PhoneDigest("+12025551235"))
}
