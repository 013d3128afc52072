package resolver

import (
	"context"
	"fmt"
	"io"
	"strings"

	"teragrab/internal"
	"teragrab/utils"
)

// Page-fetch constants. The token is embedded in an inline script as a
// URL-encoded function call; the delimiters below locate it after
// backslash escapes are stripped.
const (
	jsTokenOpen  = "%28%22"
	jsTokenClose = "%22%29"
	// Fallback for page revisions that embed the token verbatim.
	jsTokenAltOpen  = `jsToken = "`
	jsTokenAltClose = `"`

	maxPageBytes = 4 << 20
)

// PageFetcher retrieves the share page and extracts the embedded
// authorization token plus the transient cookies the later API calls
// need. This is the most fragile stage: the delimiters track the
// upstream markup and break silently when the page changes.
type PageFetcher struct {
	cfg *internal.Config
}

// NewPageFetcher creates a page fetcher.
func NewPageFetcher(cfg *internal.Config) *PageFetcher {
	return &PageFetcher{cfg: cfg}
}

// Fetch loads the share page for token into the given session and
// returns the captured session artifacts.
func (p *PageFetcher) Fetch(ctx context.Context, session *utils.Session, token string) (*internal.SessionArtifacts, error) {
	pageURL := fmt.Sprintf("%s/wap/share/filelist?surl=%s", strings.TrimRight(p.cfg.PageBase, "/"), token)

	headers := map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Upgrade-Insecure-Requests": "1",
	}
	resp, err := session.Get(ctx, pageURL, headers)
	if err != nil {
		return nil, internal.NewEndpointError(fmt.Sprintf("share page fetch: %v", err), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, internal.NewEndpointError("share page fetch failed", resp.StatusCode).
			WithContext("url", pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, internal.NewEndpointError(fmt.Sprintf("share page read: %v", err), resp.StatusCode)
	}

	jsToken := extractJSToken(string(body))
	if jsToken == "" {
		return nil, internal.NewTokenExtractionError("authorization token not found in share page").
			WithContext("url", pageURL)
	}

	arts := &internal.SessionArtifacts{
		JSToken: jsToken,
		Cookies: session.Cookies(pageURL),
	}
	for _, c := range resp.Cookies() {
		if c.Name == "browserid" {
			arts.BrowserID = c.Value
		}
	}
	internal.LogDebug("share page fetched, token length %d, %d cookies", len(jsToken), len(arts.Cookies))
	return arts, nil
}

// extractJSToken scans the page body for the embedded token.
func extractJSToken(body string) string {
	cleaned := strings.ReplaceAll(body, `\`, "")
	if tok := findBetween(cleaned, jsTokenOpen, jsTokenClose); tok != "" {
		return tok
	}
	return findBetween(cleaned, jsTokenAltOpen, jsTokenAltClose)
}

// findBetween returns the text between the first occurrence of first
// and the following occurrence of last, or "".
func findBetween(data, first, last string) string {
	start := strings.Index(data, first)
	if start == -1 {
		return ""
	}
	start += len(first)
	end := strings.Index(data[start:], last)
	if end == -1 {
		return ""
	}
	return data[start : start+end]
}
