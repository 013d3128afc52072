package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"teragrab/internal"
)

// URLValidator validates share URLs and extracts the share token. Every
// resolver stage goes through ExtractToken so there is exactly one
// parsing rule in the codebase.
type URLValidator struct {
	allowedDomains map[string]bool
	pathPattern    *regexp.Regexp
}

// The upstream service operates a family of mirror domains; links from
// any of them carry the same token format.
var defaultDomains = []string{
	"terabox.com",
	"terabox.app",
	"terabox.fun",
	"1024terabox.com",
	"1024tera.com",
	"teraboxapp.com",
	"freeterabox.com",
	"mirrobox.com",
	"nephobox.com",
	"momerybox.com",
	"tibibox.com",
	"4funbox.com",
	"4funbox.co",
}

// NewURLValidator creates a validator for the known mirror domains.
func NewURLValidator() *URLValidator {
	domains := make(map[string]bool, len(defaultDomains)*2)
	for _, d := range defaultDomains {
		domains[d] = true
		domains["www."+d] = true
	}
	return &URLValidator{
		allowedDomains: domains,
		// A path token may carry a single leading digit prefix that is
		// not part of the token itself.
		pathPattern: regexp.MustCompile(`/s/1?([A-Za-z0-9_-]+)`),
	}
}

// ValidateURL checks that rawURL is an http(s) link on a known domain.
func (v *URLValidator) ValidateURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return internal.NewInputError("empty URL")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return internal.NewInputError(fmt.Sprintf("unparseable URL: %v", err))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return internal.NewInputError("URL must use http or https")
	}
	host := strings.ToLower(parsed.Hostname())
	if !v.allowedDomains[host] {
		return internal.NewInputError("unsupported domain: " + host).WithContext("host", host)
	}
	return nil
}

// ExtractToken parses the share token out of a URL. The surl query
// parameter wins; otherwise the segment after /s/ is used, with a
// single leading digit stripped. An Input error is returned when
// neither shape matches.
func (v *URLValidator) ExtractToken(rawURL string) (string, error) {
	if err := v.ValidateURL(rawURL); err != nil {
		return "", err
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", internal.NewInputError(fmt.Sprintf("unparseable URL: %v", err))
	}

	if surl := parsed.Query().Get("surl"); surl != "" {
		return surl, nil
	}
	if m := v.pathPattern.FindStringSubmatch(parsed.Path); len(m) > 1 {
		return m[1], nil
	}
	return "", internal.NewInputError("no share token in URL").WithContext("url", rawURL)
}

// SharePageURL builds the canonical human-facing share page for a token.
func SharePageURL(base, token string) string {
	return fmt.Sprintf("%s/sharing/link?surl=%s", strings.TrimRight(base, "/"), token)
}
