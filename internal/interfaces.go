package internal

import "context"

// LinkResolver turns a share URL into a ResolvedFile. The bot and the
// CLI depend on this rather than the concrete resolver so tests can
// substitute a fake.
type LinkResolver interface {
	Resolve(ctx context.Context, shareURL string) (*ResolvedFile, error)
}
