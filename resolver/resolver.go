package resolver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/FloatTech/ttl"

	"teragrab/internal"
	"teragrab/utils"
)

// Resolver turns a public share URL into a download descriptor. Each
// Resolve call runs on a fresh HTTP session with its own cookie jar so
// that one share's state never bleeds into the next.
type Resolver struct {
	cfg       *internal.Config
	validator *utils.URLValidator
	page      *PageFetcher
	metadata  *MetadataResolver
	download  *DownloadResolver
	cookies   []*http.Cookie
	cache     *ttl.Cache[string, *internal.ResolvedFile]
}

var _ internal.LinkResolver = (*Resolver)(nil)

// New builds a Resolver from the given configuration. When a cookie
// file is configured it is loaded once, up front, so a bad file fails
// construction instead of every resolution.
func New(cfg *internal.Config) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Resolver{
		cfg:       cfg,
		validator: utils.NewURLValidator(),
		page:      NewPageFetcher(cfg),
		metadata:  NewMetadataResolver(cfg),
		download:  NewDownloadResolver(cfg),
	}

	if cfg.CookieFile != "" {
		cookies, err := LoadCookieFile(cfg.CookieFile)
		if err != nil {
			return nil, internal.NewConfigError("cookie_file", err.Error())
		}
		r.cookies = cookies
		internal.LogInfo("loaded %d cookies from %s", len(cookies), cfg.CookieFile)
	}

	if cfg.CacheTTL > 0 {
		r.cache = ttl.NewCache[string, *internal.ResolvedFile](time.Duration(cfg.CacheTTL) * time.Second)
	}

	return r, nil
}

// seedSessionCookies plants pre-authenticated cookies into the session
// jar. The jar rejects a cookie whose Domain attribute does not match
// the URL it is seeded against, so each cookie is seeded against its
// own Domain; that way a ".terabox.com" cookie reaches both the page
// host and the API hosts. Cookies without a Domain are seeded against
// every configured base instead.
func seedSessionCookies(session *utils.Session, cookies []*http.Cookie, bases []string) {
	byOrigin := make(map[string][]*http.Cookie)
	for _, c := range cookies {
		if d := strings.TrimPrefix(c.Domain, "."); d != "" {
			origin := "https://" + d
			byOrigin[origin] = append(byOrigin[origin], c)
			continue
		}
		for _, base := range bases {
			byOrigin[base] = append(byOrigin[base], c)
		}
	}
	for origin, group := range byOrigin {
		if err := session.AddCookies(origin, group); err != nil {
			internal.LogWarn("seeding cookies for %s failed: %v", origin, err)
		}
	}
}

// Resolve runs the full pipeline: validate, extract the share token,
// fetch the share page, list the share, pick a file and resolve its
// download link.
func (r *Resolver) Resolve(ctx context.Context, shareURL string) (*internal.ResolvedFile, error) {
	if err := r.validator.ValidateURL(shareURL); err != nil {
		return nil, err
	}
	token, err := r.validator.ExtractToken(shareURL)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if cached := r.cache.Get(token); cached != nil {
			internal.LogDebug("cache hit for token %s", token)
			return cached, nil
		}
	}

	session, err := utils.NewSession(utils.SessionConfig{
		Timeout:   r.cfg.Timeout(),
		ProxyURL:  r.cfg.ProxyURL,
		UserAgent: r.cfg.UserAgent,
	})
	if err != nil {
		return nil, internal.NewConfigError("proxy_url", err.Error())
	}
	if len(r.cookies) > 0 {
		seedSessionCookies(session, r.cookies, append([]string{r.cfg.PageBase}, r.cfg.APIBases...))
	}

	arts, err := r.page.Fetch(ctx, session, token)
	if err != nil {
		return nil, err
	}

	records, err := r.metadata.List(ctx, session, token, arts)
	if err != nil {
		return nil, err
	}

	file, err := SelectFile(records)
	if err != nil {
		return nil, err
	}
	internal.LogInfo("selected %q (%s)", file.Filename, FormatSize(file.Size))

	link, err := r.download.ResolveLink(ctx, session, &LinkRequest{
		Token:   token,
		File:    file,
		Session: arts,
	})
	if err != nil {
		return nil, err
	}

	resolved := newResolvedFile(file, link)
	if r.cache != nil && resolved.HasDirectLink() {
		r.cache.Set(token, resolved)
	}
	return resolved, nil
}
