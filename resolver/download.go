package resolver

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"

	"teragrab/internal"
	"teragrab/utils"
)

// LinkRequest carries everything the download-link strategies need.
type LinkRequest struct {
	Token   string
	File    internal.FileRecord
	Session *internal.SessionArtifacts
}

// ResolvedLink is the output of the strategy chain. Degraded means URL
// is the share page and needs a browser rather than a plain GET.
type ResolvedLink struct {
	URL      string
	Degraded bool
}

type strategyFunc func(ctx context.Context, session *utils.Session, req *LinkRequest) (string, error)

type strategy struct {
	name     string
	degraded bool
	fn       strategyFunc
}

// downloadEnvelope covers the historically-observed shapes of the
// download endpoint's answer. Which field actually carries the link
// has changed across site revisions, so all of them are declared and
// the configured field order decides.
type downloadEnvelope struct {
	Errno        int    `json:"errno"`
	Errmsg       string `json:"errmsg"`
	Dlink        string `json:"dlink"`
	DownloadLink string `json:"download_link"`
	List         []struct {
		Dlink string `json:"dlink"`
	} `json:"list"`
}

var cdnHostPattern = regexp.MustCompile(`^(https?://)([^./]+)(\..+)$`)

// DownloadResolver obtains a direct-download URL for a selected file by
// trying an ordered chain of strategies. Transport and domain failures
// inside one strategy never abort the chain; only exhausting every
// strategy is terminal.
type DownloadResolver struct {
	cfg        *internal.Config
	strategies []strategy
}

// NewDownloadResolver creates the resolver with the default chain.
func NewDownloadResolver(cfg *internal.Config) *DownloadResolver {
	d := &DownloadResolver{cfg: cfg}
	d.strategies = []strategy{
		{name: "download endpoint", fn: d.viaDownloadEndpoint},
		{name: "cdn redirect", fn: d.viaCDNRedirect},
		{name: "share page", degraded: true, fn: d.viaSharePage},
	}
	return d
}

// ResolveLink runs the chain and returns the first non-empty URL.
func (d *DownloadResolver) ResolveLink(ctx context.Context, session *utils.Session, req *LinkRequest) (*ResolvedLink, error) {
	var attempts []string
	for _, s := range d.strategies {
		link, err := s.fn(ctx, session, req)
		if err != nil {
			internal.LogWarn("strategy %q failed: %v", s.name, err)
			attempts = append(attempts, fmt.Sprintf("%s: %v", s.name, err))
			continue
		}
		if link == "" {
			attempts = append(attempts, s.name+": empty link")
			continue
		}
		internal.LogDebug("strategy %q produced a link", s.name)
		return &ResolvedLink{URL: link, Degraded: s.degraded}, nil
	}
	return nil, internal.NewExhaustedError(attempts)
}

// viaDownloadEndpoint calls the dedicated download API with the full
// parameter set captured from the page and listing stages.
func (d *DownloadResolver) viaDownloadEndpoint(ctx context.Context, session *utils.Session, req *LinkRequest) (string, error) {
	if req.Session == nil || req.Session.JSToken == "" {
		return "", internal.NewEndpointError("no session token available", 0)
	}

	base := strings.TrimRight(d.cfg.APIBases[0], "/")
	params := url.Values{}
	params.Set("app_id", "250528")
	params.Set("channel", "dubox")
	params.Set("product", "share")
	params.Set("clienttype", "0")
	params.Set("dp-logid", "")
	params.Set("nozip", "0")
	params.Set("web", "1")
	params.Set("uk", req.Session.UserKey)
	params.Set("sign", req.Session.Sign)
	params.Set("shareid", req.Session.ShareID)
	params.Set("primaryid", req.Session.ShareID)
	params.Set("timestamp", req.Session.Timestamp)
	params.Set("jsToken", req.Session.JSToken)
	params.Set("fid_list", fmt.Sprintf("[%d]", req.File.FsID))

	dlURL := fmt.Sprintf("%s/share/download?%s", base, params.Encode())
	headers := map[string]string{
		"Referer": base + "/",
		"Origin":  base,
	}

	resp, err := session.Get(ctx, dlURL, headers)
	if err != nil {
		return "", internal.NewEndpointError(fmt.Sprintf("download call: %v", err), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", internal.NewEndpointError("download call failed", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeBytes))
	if err != nil {
		return "", internal.NewEndpointError(fmt.Sprintf("download read: %v", err), resp.StatusCode)
	}

	var env downloadEnvelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return "", internal.NewEndpointError(fmt.Sprintf("download parse: %v", err), resp.StatusCode)
	}
	if env.Errno != 0 {
		if env.Errno == d.cfg.VerifyErrno {
			return "", internal.NewVerificationError(env.Errno)
		}
		return "", internal.NewDomainError(env.Errno, env.Errmsg)
	}

	link := extractLink(&env, d.cfg.LinkFields)
	if link == "" {
		return "", internal.NewEndpointError("no link field in download response", resp.StatusCode)
	}

	// Refinement is opportunistic: a failed HEAD keeps the raw link.
	return d.refineCDN(ctx, session, link), nil
}

// viaCDNRedirect resolves a direct link already present in the listing
// metadata by following its redirect chain.
func (d *DownloadResolver) viaCDNRedirect(ctx context.Context, session *utils.Session, req *LinkRequest) (string, error) {
	if req.File.DirectLink == "" {
		return "", internal.NewEndpointError("no known direct link to resolve", 0)
	}
	resp, err := session.Head(ctx, req.File.DirectLink, nil)
	if err != nil {
		return "", internal.NewEndpointError(fmt.Sprintf("redirect resolve: %v", err), 0)
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", internal.NewEndpointError("redirect resolve failed", resp.StatusCode)
	}
	return rewriteCDNHost(resp.Request.URL.String()), nil
}

// viaSharePage constructs the human-facing fallback. It cannot fail:
// a degraded answer beats a dead end.
func (d *DownloadResolver) viaSharePage(_ context.Context, _ *utils.Session, req *LinkRequest) (string, error) {
	return utils.SharePageURL(d.cfg.APIBases[0], req.Token), nil
}

// refineCDN follows the link's redirect chain and applies the host
// rewrite. Every failure path returns the input unchanged.
func (d *DownloadResolver) refineCDN(ctx context.Context, session *utils.Session, link string) string {
	resp, err := session.Head(ctx, link, nil)
	if err != nil {
		internal.LogDebug("cdn refine skipped: %v", err)
		return link
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return link
	}
	return rewriteCDNHost(resp.Request.URL.String())
}

// rewriteCDNHost swaps the first host label for the faster d3 edge and
// the themis routing tag for dapunta, when the URL matches that shape.
func rewriteCDNHost(link string) string {
	m := cdnHostPattern.FindStringSubmatch(link)
	if m == nil {
		return link
	}
	rewritten := m[1] + "d3" + m[3]
	return strings.ReplaceAll(rewritten, "by=themis", "by=dapunta")
}

// extractLink picks the link out of the envelope per the configured
// field priority.
func extractLink(env *downloadEnvelope, fields []string) string {
	for _, f := range fields {
		switch f {
		case "dlink":
			if env.Dlink != "" {
				return env.Dlink
			}
		case "list":
			if len(env.List) > 0 && env.List[0].Dlink != "" {
				return env.List[0].Dlink
			}
		case "download_link":
			if env.DownloadLink != "" {
				return env.DownloadLink
			}
		}
	}
	return ""
}
