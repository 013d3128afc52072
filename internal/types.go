package internal

import "net/http"

// SessionArtifacts holds the short-lived credentials captured from one
// share-page fetch. They are only valid for the resolution attempt that
// produced them and are never persisted.
type SessionArtifacts struct {
	JSToken   string
	BrowserID string
	Cookies   []*http.Cookie
	ShareID   string
	UserKey   string
	Sign      string
	Timestamp string
}

// FileRecord describes one entry of a shared item as returned by the
// listing endpoint.
type FileRecord struct {
	FsID       int64  `json:"fs_id"`
	Filename   string `json:"server_filename"`
	Size       int64  `json:"size"`
	IsDir      int    `json:"isdir"`
	Category   int    `json:"category"`
	DirectLink string `json:"dlink"`
}

// ResolvedFile is the terminal artifact handed to the presentation
// layer. URL may be empty, meaning the metadata is known but no
// download target could be obtained at all. RequiresBrowser marks the
// degraded case where URL points at the share page instead of a direct
// download target.
type ResolvedFile struct {
	Name            string `json:"name"`
	URL             string `json:"url"`
	Size            string `json:"size"`
	SizeBytes       int64  `json:"size_bytes"`
	RequiresBrowser bool   `json:"requires_browser,omitempty"`
}

// HasDirectLink reports whether the file carries a usable direct
// download target rather than a degraded browser-only URL.
func (f *ResolvedFile) HasDirectLink() bool {
	return f.URL != "" && !f.RequiresBrowser
}
