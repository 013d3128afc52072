package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"teragrab/internal"
	"teragrab/utils"
)

func testLinkRequest() *LinkRequest {
	return &LinkRequest{
		Token: "AbC123",
		File:  internal.FileRecord{FsID: 42, Filename: "movie.mp4", Size: 1024},
		Session: &internal.SessionArtifacts{
			JSToken:   "tok",
			ShareID:   "777",
			UserKey:   "888",
			Sign:      "sig",
			Timestamp: "1700000000",
		},
	}
}

func TestDownloadResolver_ViaDownloadEndpoint(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/share/download" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query()
		// An unreachable host keeps the opportunistic refine from
		// rewriting the link under test.
		fmt.Fprint(w, `{"errno": 0, "dlink": "https://cdn.invalid/file/42"}`)
	}))
	defer server.Close()

	d := NewDownloadResolver(newTestConfig(server.URL, server.URL))
	link, err := d.viaDownloadEndpoint(context.Background(), newTestSession(t), testLinkRequest())
	if err != nil {
		t.Fatalf("viaDownloadEndpoint failed: %v", err)
	}
	if link != "https://cdn.invalid/file/42" {
		t.Errorf("link = %q", link)
	}

	want := map[string]string{
		"app_id":     "250528",
		"channel":    "dubox",
		"product":    "share",
		"clienttype": "0",
		"web":        "1",
		"nozip":      "0",
		"uk":         "888",
		"sign":       "sig",
		"shareid":    "777",
		"primaryid":  "777",
		"timestamp":  "1700000000",
		"jsToken":    "tok",
		"fid_list":   "[42]",
	}
	for k, v := range want {
		if got := gotQuery[k]; len(got) != 1 || got[0] != v {
			t.Errorf("query %s = %v, want %q", k, got, v)
		}
	}
}

func TestDownloadResolver_ViaDownloadEndpoint_DomainError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errno": 31061, "errmsg": "forbidden"}`)
	}))
	defer server.Close()

	d := NewDownloadResolver(newTestConfig(server.URL, server.URL))
	_, err := d.viaDownloadEndpoint(context.Background(), newTestSession(t), testLinkRequest())
	if !internal.IsType(err, internal.ErrDomain) {
		t.Errorf("expected domain error, got %v", err)
	}
}

func TestDownloadResolver_ViaDownloadEndpoint_NoSession(t *testing.T) {
	d := NewDownloadResolver(newTestConfig("http://unused", "http://unused"))
	req := testLinkRequest()
	req.Session.JSToken = ""
	_, err := d.viaDownloadEndpoint(context.Background(), newTestSession(t), req)
	if !internal.IsType(err, internal.ErrEndpoint) {
		t.Errorf("expected endpoint error, got %v", err)
	}
}

func TestDownloadResolver_ViaCDNRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/final/file.mp4", http.StatusFound)
			return
		}
	}))
	defer server.Close()

	d := NewDownloadResolver(newTestConfig(server.URL, server.URL))
	req := testLinkRequest()
	req.File.DirectLink = server.URL + "/start"

	link, err := d.viaCDNRedirect(context.Background(), newTestSession(t), req)
	if err != nil {
		t.Fatalf("viaCDNRedirect failed: %v", err)
	}
	if !strings.HasSuffix(link, "/final/file.mp4") {
		t.Errorf("redirect not followed, link = %q", link)
	}
}

func TestDownloadResolver_ViaCDNRedirect_NoLink(t *testing.T) {
	d := NewDownloadResolver(newTestConfig("http://unused", "http://unused"))
	_, err := d.viaCDNRedirect(context.Background(), newTestSession(t), testLinkRequest())
	if err == nil {
		t.Fatal("expected error without a direct link")
	}
}

func TestDownloadResolver_ViaSharePage(t *testing.T) {
	d := NewDownloadResolver(newTestConfig("http://unused", "https://www.terabox.com"))
	link, err := d.viaSharePage(context.Background(), nil, testLinkRequest())
	if err != nil {
		t.Fatalf("viaSharePage failed: %v", err)
	}
	if link != "https://www.terabox.com/sharing/link?surl=AbC123" {
		t.Errorf("link = %q", link)
	}
}

// A failing strategy passes control to the next one; a succeeding
// strategy ends the chain without touching the rest.
func TestDownloadResolver_ChainOrder(t *testing.T) {
	thirdCalled := false
	d := NewDownloadResolver(newTestConfig("http://unused", "http://unused"))
	d.strategies = []strategy{
		{name: "first", fn: func(context.Context, *utils.Session, *LinkRequest) (string, error) {
			return "", errors.New("boom")
		}},
		{name: "second", fn: func(context.Context, *utils.Session, *LinkRequest) (string, error) {
			return "https://cdn.example.com/ok", nil
		}},
		{name: "third", fn: func(context.Context, *utils.Session, *LinkRequest) (string, error) {
			thirdCalled = true
			return "https://never.example.com", nil
		}},
	}

	link, err := d.ResolveLink(context.Background(), nil, testLinkRequest())
	if err != nil {
		t.Fatalf("ResolveLink failed: %v", err)
	}
	if link.URL != "https://cdn.example.com/ok" {
		t.Errorf("URL = %q", link.URL)
	}
	if thirdCalled {
		t.Error("third strategy ran after the second succeeded")
	}
}

func TestDownloadResolver_Exhaustion(t *testing.T) {
	d := NewDownloadResolver(newTestConfig("http://unused", "http://unused"))
	d.strategies = []strategy{
		{name: "a", fn: func(context.Context, *utils.Session, *LinkRequest) (string, error) {
			return "", errors.New("a failed")
		}},
		{name: "b", fn: func(context.Context, *utils.Session, *LinkRequest) (string, error) {
			return "", nil
		}},
	}

	_, err := d.ResolveLink(context.Background(), nil, testLinkRequest())
	if !internal.IsType(err, internal.ErrExhausted) {
		t.Fatalf("expected exhaustion error, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "a failed") || !strings.Contains(msg, "empty link") {
		t.Errorf("attempt trail missing from %q", msg)
	}
}

func TestDownloadResolver_DegradedFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	// Every networked strategy fails against this host, leaving the
	// share-page fallback as the answer.
	d := NewDownloadResolver(newTestConfig(server.URL, server.URL))
	link, err := d.ResolveLink(context.Background(), newTestSession(t), testLinkRequest())
	if err != nil {
		t.Fatalf("ResolveLink failed: %v", err)
	}
	if !link.Degraded {
		t.Error("share-page answer should be marked degraded")
	}
	if !strings.Contains(link.URL, "surl=AbC123") {
		t.Errorf("URL = %q", link.URL)
	}
}

func TestRewriteCDNHost(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "host_and_routing_tag",
			input: "https://c-jp.terabox.com/file?by=themis&sign=x",
			want:  "https://d3.terabox.com/file?by=dapunta&sign=x",
		},
		{
			name:  "host_only",
			input: "https://c01.terabox.app/file",
			want:  "https://d3.terabox.app/file",
		},
		{
			name:  "no_dot_in_host",
			input: "https://localhost/file",
			want:  "https://localhost/file",
		},
		{
			name:  "not_a_url",
			input: "garbage",
			want:  "garbage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rewriteCDNHost(tt.input); got != tt.want {
				t.Errorf("rewriteCDNHost(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractLink_FieldPriority(t *testing.T) {
	env := &downloadEnvelope{
		Dlink:        "https://a.example.com",
		DownloadLink: "https://b.example.com",
	}
	env.List = append(env.List, struct {
		Dlink string `json:"dlink"`
	}{Dlink: "https://c.example.com"})

	if got := extractLink(env, []string{"dlink", "list", "download_link"}); got != "https://a.example.com" {
		t.Errorf("dlink priority: got %q", got)
	}
	if got := extractLink(env, []string{"download_link", "dlink"}); got != "https://b.example.com" {
		t.Errorf("download_link priority: got %q", got)
	}

	env.Dlink = ""
	if got := extractLink(env, []string{"dlink", "list", "download_link"}); got != "https://c.example.com" {
		t.Errorf("list fallback: got %q", got)
	}

	if got := extractLink(&downloadEnvelope{}, []string{"dlink", "list", "download_link"}); got != "" {
		t.Errorf("empty envelope: got %q", got)
	}
}
