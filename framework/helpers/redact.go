package helpers

import (
	"net/url"
	"strings"

	"github.com/adobe/aem-test-harness/framework/opt"
)

const redactedUserInfo = "xxxxx"

// RedactURL replaces the password in a URL's user info with "xxxxx", so that the URL can be
// logged or written to a report. A string that does not parse as a URL but still has user info
// in front of an "@" loses everything up to the "@".
func RedactURL(s string) string {
	if u, err := url.Parse(s); err == nil && u.User != nil {
		return u.Redacted()
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		return redactedUserInfo + s[i:]
	}
	return s
}

// RedactProxy is like RedactURL for an optional proxy setting; an undefined proxy is "[none]".
func RedactProxy(proxy opt.Maybe[string]) string {
	if !proxy.IsDefined() {
		return proxy.String()
	}
	return RedactURL(proxy.Value())
}
