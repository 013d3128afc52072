package bot

import (
	"fmt"
	"regexp"
	"time"

	tg "github.com/amarnathcjd/gogram/telegram"

	"teragrab/internal"
	"teragrab/utils"
)

var shareLinkPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:mirrobox\.com|nephobox\.com|freeterabox\.com|1024tera\.com|1024terabox\.com|terabox\.com|4funbox\.com|terabox\.app|terabox\.fun|tibibox\.com|momerybox\.com|teraboxapp\.com|4funbox\.co)/(?:s/[a-zA-Z0-9_-]+|sharing/link\?surl=[a-zA-Z0-9_-]+)`)

// Bot wraps the Telegram client together with the resolver pipeline.
type Bot struct {
	cfg      *internal.Config
	client   *tg.Client
	resolver internal.LinkResolver
	fetcher  *Fetcher
	started  time.Time
}

// New connects and logs in the bot account. The resolver is injected so
// the Telegram surface stays independent of how links get resolved.
func New(cfg *internal.Config, resolver internal.LinkResolver) (*Bot, error) {
	if err := cfg.ValidateBot(); err != nil {
		return nil, err
	}

	client, err := tg.NewClient(tg.ClientConfig{
		AppID:       cfg.APIID,
		AppHash:     cfg.APIHash,
		SessionName: "session",
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}

	if _, err := client.Conn(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.LoginBot(cfg.BotToken); err != nil {
		return nil, fmt.Errorf("bot login: %w", err)
	}

	me, err := client.GetMe()
	if err != nil {
		return nil, fmt.Errorf("identify bot account: %w", err)
	}
	internal.LogInfo("logged in as @%s", me.Username)

	return &Bot{
		cfg:      cfg,
		client:   client,
		resolver: resolver,
		fetcher:  NewFetcher(cfg, nil),
		started:  time.Now(),
	}, nil
}

// Run registers the handlers and blocks until the client stops.
func (b *Bot) Run() {
	b.client.On("command:start", b.handleStart)
	b.client.On("command:help", b.handleHelp)
	b.client.On("command:time", b.handleTime)
	b.client.On("command:date", b.handleDate)
	b.client.On("message:*", b.handleShareLink, tg.FilterFunc(b.filterShareLink))
	b.client.Idle()
	internal.LogInfo("bot stopped")
}

// filterShareLink admits plain user messages that carry a supported
// share link. Commands, forwards and the bot's own inline results are
// skipped.
func (b *Bot) filterShareLink(m *tg.NewMessage) bool {
	text := m.Text()
	if m.IsCommand() || text == "" || m.IsForward() || m.Message.ViaBotID == m.Client.Me().ID {
		return false
	}
	return shareLinkPattern.MatchString(text)
}

// TransferTimeout bounds one download-and-upload cycle. File transfers
// get a budget of their own rather than the per-request API timeout.
const TransferTimeout = 5 * time.Minute

// NewTransferSession creates an HTTP session sized for streaming a
// whole file instead of a single API call.
func NewTransferSession(cfg *internal.Config) (*utils.Session, error) {
	return utils.NewSession(utils.SessionConfig{
		Timeout:   TransferTimeout,
		ProxyURL:  cfg.ProxyURL,
		UserAgent: cfg.UserAgent,
	})
}
