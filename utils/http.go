package utils

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// Session is an HTTP client with a browser-like request profile and its
// own cookie jar. One Session serves exactly one resolution attempt;
// callers create a fresh one per call and drop it afterwards, so no
// cookies or connections are shared between user requests. There is no
// automatic retry: the resolver's fixed fallback-host list is the only
// form of repetition.
type Session struct {
	client    *http.Client
	userAgent string
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Timeout   time.Duration
	ProxyURL  string
	UserAgent string
}

// NewSession creates a session with a fresh cookie jar.
func NewSession(cfg SessionConfig) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}
	if cfg.ProxyURL != "" {
		if err := configureProxy(transport, cfg.ProxyURL); err != nil {
			return nil, err
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Session{
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
	}, nil
}

// configureProxy sets up http, https or socks5 proxying on the transport.
func configureProxy(transport *http.Transport, proxyURL string) error {
	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}
	switch parsed.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsed)
	case "socks5":
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, nil, proxy.Direct)
		if err != nil {
			return fmt.Errorf("socks5 proxy: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", parsed.Scheme)
	}
	return nil
}

// Get performs a GET with the browser profile plus any extra headers.
func (s *Session) Get(ctx context.Context, rawURL string, headers map[string]string) (*http.Response, error) {
	return s.do(ctx, http.MethodGet, rawURL, headers)
}

// Head performs a HEAD request; redirects are followed by the client.
func (s *Session) Head(ctx context.Context, rawURL string, headers map[string]string) (*http.Response, error) {
	return s.do(ctx, http.MethodHead, rawURL, headers)
}

func (s *Session) do(ctx context.Context, method, rawURL string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	// The upstream serves different content, or nothing, to clients
	// without a plausible browser profile.
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return s.client.Do(req)
}

// AddCookies seeds the session jar with cookies for the given URL.
func (s *Session) AddCookies(rawURL string, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("cookie URL: %w", err)
	}
	s.client.Jar.SetCookies(u, cookies)
	return nil
}

// Cookies returns the jar's cookies for the given URL.
func (s *Session) Cookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return s.client.Jar.Cookies(u)
}

// UserAgent returns the profile's user agent string.
func (s *Session) UserAgent() string {
	return s.userAgent
}
