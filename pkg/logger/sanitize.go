package logger

import (
	"net/url"
	"strings"
)

// redactedQuery replaces a query string that carries any sensitiveKeys entry.
const redactedQuery = "[REDACTED]"

// sensitiveKeys are request parameters that identify a credential or a reset
// ticket. A reset id together with its token is enough to take an account.
var sensitiveKeys = map[string]struct{}{
	"id":       {},
	"token":    {},
	"password": {},
	"email":    {},
	"name":     {},
	"hash":     {},
	"secret":   {},
}

// MaskEmail hides an address for logs, keeping the first character of the
// local part and the top-level domain: "alice@example.com" -> "a****@*******.com".
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	masked := local[:1] + strings.Repeat("*", len(local)-1)

	if dot := strings.LastIndex(domain, "."); dot > 0 {
		labels := strings.Split(domain[:dot], ".")
		for i, l := range labels {
			labels[i] = strings.Repeat("*", len(l))
		}
		domain = strings.Join(labels, ".") + domain[dot:]
	}

	return masked + "@" + domain
}

// LoggableQuery returns rawQuery as it may appear in a request log. Queries
// naming a sensitive key, or that do not parse, are replaced whole.
func LoggableQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return redactedQuery
	}
	for key := range values {
		if _, ok := sensitiveKeys[strings.ToLower(key)]; ok {
			return redactedQuery
		}
	}
	return rawQuery
}
