package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupCountry(t *testing.T) {
	assert.Equal(t, CountryAllow, LookupCountry("US"))
	assert.Equal(t, CountryAllow, LookupCountry("DE"))
	assert.Equal(t, CountryBlocked, LookupCountry("RU"))
	assert.Equal(t, CountryBlocked, LookupCountry("KP"))
	// Empty means the lookup produced nothing; fail closed.
	assert.Equal(t, CountryUnknown, LookupCountry(""))
}

func TestClassifyDomain(t *testing.T) {
	assert.Equal(t, DomainFree, ClassifyDomain("gmail.com"))
	assert.Equal(t, DomainFree, ClassifyDomain("proton.me"))
	assert.Equal(t, DomainCorporate, ClassifyDomain("corp.com"))
	assert.Equal(t, DomainCorporate, ClassifyDomain(""))
}
