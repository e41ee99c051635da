package integrity

import (
	"regexp"
	"strings"
)

// emailPattern is the address grammar enforced at the store boundary. Kept in
// sync with the chk_email_format constraint.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// tldTypos maps common trailing-domain typos to the intended suffix.
var tldTypos = map[string]string{
	".con":   ".com",
	".cmo":   ".com",
	".ocm":   ".com",
	".comm":  ".com",
	".coom":  ".com",
	".orgg":  ".org",
	".nett":  ".net",
	".co.u":  ".co.uk",
	".gmial": ".gmail",
}

// knownProviders are domains a missing "@" is inserted in front of, for
// addresses like "janedoegmail.com".
var knownProviders = []string{
	"gmail.com",
	"yahoo.com",
	"hotmail.com",
	"outlook.com",
	"icloud.com",
	"aol.com",
}

// IsValidEmail reports whether the address satisfies the store grammar.
func IsValidEmail(addr string) bool {
	return emailPattern.MatchString(addr)
}

// FixEmail applies conservative repairs to a malformed address: whitespace
// removal, spelled-out or doubled at-signs, trailing TLD typos, and a missing
// "@" in front of a well-known provider. The fix is returned only when the
// result passes the grammar; anything else is left for manual review.
func FixEmail(raw string) (string, bool) {
	fixed := strings.TrimSpace(raw)
	fixed = strings.Join(strings.Fields(fixed), "")

	for _, spelled := range []string{"[at]", "(at)", "[AT]", "(AT)"} {
		fixed = strings.ReplaceAll(fixed, spelled, "@")
	}
	for strings.Contains(fixed, "@@") {
		fixed = strings.ReplaceAll(fixed, "@@", "@")
	}

	lower := strings.ToLower(fixed)
	for typo, correct := range tldTypos {
		if strings.HasSuffix(lower, typo) {
			fixed = fixed[:len(fixed)-len(typo)] + correct
			lower = strings.ToLower(fixed)
			break
		}
	}

	if !strings.Contains(fixed, "@") {
		for _, provider := range knownProviders {
			if strings.HasSuffix(lower, provider) && len(fixed) > len(provider) {
				fixed = fixed[:len(fixed)-len(provider)] + "@" + provider
				break
			}
		}
	}

	if !IsValidEmail(fixed) {
		return raw, false
	}
	return fixed, true
}
