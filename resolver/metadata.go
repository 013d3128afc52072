package resolver

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"teragrab/internal"
	"teragrab/utils"
)

const maxEnvelopeBytes = 8 << 20

// videoExtensions are the filename suffixes treated as download
// candidates ahead of everything else in a multi-file share.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".webm": true,
}

// listEnvelope is the JSON envelope of the shorturlinfo listing call.
// Numeric identifiers arrive as numbers; they are carried onward as
// strings because the download endpoint takes them as query text.
type listEnvelope struct {
	Errno     int                   `json:"errno"`
	Errmsg    string                `json:"errmsg"`
	List      []internal.FileRecord `json:"list"`
	ShareID   int64                 `json:"shareid"`
	UserKey   int64                 `json:"uk"`
	Sign      string                `json:"sign"`
	Timestamp int64                 `json:"timestamp"`
}

// MetadataResolver calls the listing endpoint to obtain the file records
// and the envelope fields the download call needs.
type MetadataResolver struct {
	cfg *internal.Config
}

// NewMetadataResolver creates a metadata resolver.
func NewMetadataResolver(cfg *internal.Config) *MetadataResolver {
	return &MetadataResolver{cfg: cfg}
}

// List fetches the file listing for token, trying each configured API
// host once, in order. The envelope identifiers are merged into arts.
// A verification-required answer aborts the host loop immediately: the
// condition is tied to the caller's network origin, not the host.
func (m *MetadataResolver) List(ctx context.Context, session *utils.Session, token string, arts *internal.SessionArtifacts) ([]internal.FileRecord, error) {
	var lastErr error

	for _, base := range m.cfg.APIBases {
		listURL := fmt.Sprintf("%s/api/shorturlinfo?app_id=250528&shorturl=1%s&root=1",
			strings.TrimRight(base, "/"), token)

		env, err := m.fetchEnvelope(ctx, session, listURL, base)
		if err != nil {
			if internal.IsVerificationRequired(err, m.cfg.VerifyErrno) {
				return nil, err
			}
			internal.LogWarn("listing host failed: %v", err)
			lastErr = err
			continue
		}

		arts.ShareID = strconv.FormatInt(env.ShareID, 10)
		arts.UserKey = strconv.FormatInt(env.UserKey, 10)
		arts.Sign = env.Sign
		arts.Timestamp = strconv.FormatInt(env.Timestamp, 10)

		if len(env.List) == 0 {
			return nil, &internal.ResolveError{Type: internal.ErrDomain, Message: "share contains no entries"}
		}
		internal.LogDebug("listing resolved via %s: %d entries", base, len(env.List))
		return env.List, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, internal.NewEndpointError("no listing hosts configured", 0)
}

func (m *MetadataResolver) fetchEnvelope(ctx context.Context, session *utils.Session, listURL, base string) (*listEnvelope, error) {
	headers := map[string]string{
		"Referer": base + "/",
		"Origin":  base,
	}
	resp, err := session.Get(ctx, listURL, headers)
	if err != nil {
		return nil, internal.NewEndpointError(fmt.Sprintf("listing call: %v", err), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, internal.NewEndpointError("listing call failed", resp.StatusCode).
			WithContext("url", listURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeBytes))
	if err != nil {
		return nil, internal.NewEndpointError(fmt.Sprintf("listing read: %v", err), resp.StatusCode)
	}

	var env listEnvelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return nil, internal.NewEndpointError(fmt.Sprintf("listing parse: %v", err), resp.StatusCode)
	}

	if env.Errno != 0 {
		if env.Errno == m.cfg.VerifyErrno {
			return nil, internal.NewVerificationError(env.Errno)
		}
		return nil, internal.NewDomainError(env.Errno, env.Errmsg)
	}
	return &env, nil
}

// SelectFile picks the download target from a listing: the first
// non-directory entry with a video extension, else the first
// non-directory entry. Directories are never candidates.
func SelectFile(records []internal.FileRecord) (internal.FileRecord, error) {
	var fallback *internal.FileRecord
	for i := range records {
		rec := &records[i]
		if rec.IsDir != 0 {
			continue
		}
		if videoExtensions[strings.ToLower(filepath.Ext(rec.Filename))] {
			return *rec, nil
		}
		if fallback == nil {
			fallback = rec
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return internal.FileRecord{}, &internal.ResolveError{Type: internal.ErrDomain, Message: "share contains only directories"}
}
