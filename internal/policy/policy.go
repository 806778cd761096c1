// Package policy holds static reference lookups (country and email-domain
// policies) and the allow/block list that overrides rate limiting.
package policy

// CountryType classifies a resolved country against the acceptance policy.
type CountryType string

const (
	CountryAllow   CountryType = "allow"
	CountryBlocked CountryType = "blocked"
	CountryUnknown CountryType = "unknown"
)

// DomainType classifies an email domain.
type DomainType string

const (
	DomainCorporate DomainType = "corporate"
	DomainFree      DomainType = "free"
)

// blockedCountries lists ISO codes that may not be provisioned.
var blockedCountries = map[string]struct{}{
	"CU": {},
	"IR": {},
	"KP": {},
	"SY": {},
	"RU": {},
	"BY": {},
}

// freeDomains lists consumer email providers. A match routes the submission
// toward manual review rather than rejecting it.
var freeDomains = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"yahoo.com":      {},
	"hotmail.com":    {},
	"outlook.com":    {},
	"live.com":       {},
	"aol.com":        {},
	"icloud.com":     {},
	"me.com":         {},
	"gmx.com":        {},
	"gmx.de":         {},
	"mail.com":       {},
	"protonmail.com": {},
	"proton.me":      {},
	"zoho.com":       {},
	"yandex.com":     {},
	"yandex.ru":      {},
	"qq.com":         {},
	"163.com":        {},
	"126.com":        {},
}

// LookupCountry maps an ISO country code to its policy type. An empty code
// means the geolocation lookup produced nothing; fail closed to unknown.
func LookupCountry(code string) CountryType {
	if code == "" {
		return CountryUnknown
	}
	if _, blocked := blockedCountries[code]; blocked {
		return CountryBlocked
	}
	return CountryAllow
}

// ClassifyDomain maps an email domain to its policy type.
func ClassifyDomain(domain string) DomainType {
	if _, free := freeDomains[domain]; free {
		return DomainFree
	}
	return DomainCorporate
}
