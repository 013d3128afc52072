package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	tg "github.com/amarnathcjd/gogram/telegram"

	"teragrab/internal"
)

func (b *Bot) handleStart(m *tg.NewMessage) error {
	name := html.EscapeString(m.Sender.FirstName)
	response := fmt.Sprintf(`<b>Hello %s!</b>

Send me a TeraBox share link and I will fetch the file for you.

<b>Supported domains:</b>
<code>terabox.com, terabox.app, terabox.fun, 1024terabox.com,
1024tera.com, teraboxapp.com, freeterabox.com, mirrobox.com,
nephobox.com, momerybox.com, tibibox.com, 4funbox.com</code>

Append <code>list</code> after a link to get the download link
without uploading the file here. Use /help for details.`, name)

	_, err := m.Reply(response, tg.SendOptions{ParseMode: tg.HTML})
	return err
}

func (b *Bot) handleHelp(m *tg.NewMessage) error {
	response := `<b>How to use</b>

1. Paste a share link, e.g. <code>https://terabox.com/s/1abcDEF</code>
2. I resolve it and upload the file (up to the size limit).
3. Add <code>list</code> after the link to only get the direct link.

If a share needs account verification the resolver cannot open it
without cookies. Links expire quickly, so use them right away.

<b>Commands</b>
/start - intro
/help - this message
/time - server time
/date - server date`

	_, err := m.Reply(response, tg.SendOptions{ParseMode: tg.HTML})
	return err
}

func (b *Bot) handleTime(m *tg.NewMessage) error {
	_, err := m.Reply("🕒 " + time.Now().Format("15:04:05 MST"))
	return err
}

func (b *Bot) handleDate(m *tg.NewMessage) error {
	_, err := m.Reply("📅 " + time.Now().Format("Monday, 2 January 2006"))
	return err
}

// handleShareLink resolves the link in the message and either uploads
// the file or, in list mode, answers with the link alone.
func (b *Bot) handleShareLink(m *tg.NewMessage) error {
	text := strings.TrimSpace(m.Text())
	shareURL := shareLinkPattern.FindString(text)
	listOnly := strings.HasSuffix(strings.ToLower(text), " list")

	reply, err := m.Reply("🔍 Resolving share link...", tg.SendOptions{ParseMode: tg.HTML})
	if err != nil {
		return fmt.Errorf("send status message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.Timeout())
	defer cancel()

	file, err := b.resolver.Resolve(ctx, shareURL)
	if err != nil {
		_, _ = reply.Edit(describeError(err), tg.SendOptions{ParseMode: tg.HTML})
		return fmt.Errorf("resolve %s: %w", shareURL, err)
	}

	if listOnly || !file.HasDirectLink() {
		return b.sendDescriptor(reply, file)
	}
	return b.uploadFile(reply, file)
}

// sendDescriptor answers with name, size and a link button.
func (b *Bot) sendDescriptor(reply *tg.NewMessage, file *internal.ResolvedFile) error {
	label := "📥 Download"
	note := ""
	if file.RequiresBrowser {
		label = "🌐 Open in browser"
		note = "\n\n<i>No direct link could be obtained. The button opens the share page.</i>"
	}
	keyboard := tg.NewKeyboard().AddRow(tg.Button.URL(label, file.URL))

	_, err := reply.Edit(fmt.Sprintf("📁 <b>%s</b>\n📦 %s%s",
		html.EscapeString(file.Name), file.Size, note), tg.SendOptions{
		ParseMode:   tg.HTML,
		ReplyMarkup: keyboard.Build(),
		LinkPreview: false,
	})
	return err
}

// uploadFile downloads the resolved file to the cache and re-sends it
// as media. Oversized files degrade to the descriptor answer. The
// transfer runs under its own deadline: the per-request timeout is
// sized for small API calls and would cut a ceiling-sized download off
// mid-stream.
func (b *Bot) uploadFile(reply *tg.NewMessage, file *internal.ResolvedFile) error {
	_, _ = reply.Edit(fmt.Sprintf("⬇️ Downloading <b>%s</b> (%s)...",
		html.EscapeString(file.Name), file.Size), tg.SendOptions{ParseMode: tg.HTML})

	ctx, cancel := context.WithTimeout(context.Background(), TransferTimeout)
	defer cancel()

	session, err := NewTransferSession(b.cfg)
	if err != nil {
		_, _ = reply.Edit("❌ Internal error preparing the download.")
		return err
	}

	path, mimeType, err := b.fetcher.Fetch(ctx, session, file, nil)
	if err != nil {
		var tooLarge *ErrTooLarge
		if errors.As(err, &tooLarge) {
			_, _ = reply.Edit(fmt.Sprintf(
				"⚠️ <b>%s</b> is larger than the upload limit. Use the link instead.",
				html.EscapeString(file.Name)), tg.SendOptions{ParseMode: tg.HTML})
			return b.sendDescriptor(reply, file)
		}
		_, _ = reply.Edit("❌ Download failed: "+html.EscapeString(err.Error()), tg.SendOptions{ParseMode: tg.HTML})
		return fmt.Errorf("fetch %s: %w", file.Name, err)
	}
	defer b.fetcher.fs.RemoveQuiet(path)

	_, err = reply.Edit(fmt.Sprintf("📁 <b>%s</b>\n📦 %s",
		html.EscapeString(file.Name), file.Size), tg.SendOptions{
		Media:     path,
		MimeType:  mimeType,
		ParseMode: tg.HTML,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", file.Name, err)
	}
	return nil
}

// describeError maps resolver failures to user-facing answers.
func describeError(err error) string {
	var re *internal.ResolveError
	if !errors.As(err, &re) {
		return "❌ Something went wrong: " + html.EscapeString(err.Error())
	}
	switch re.Type {
	case internal.ErrInput:
		return "⚠️ That link does not look like a supported share link."
	case internal.ErrTokenExtraction:
		return "⚠️ The share page changed and the link could not be processed. Try again later."
	case internal.ErrDomain:
		msg := "❌ The share service rejected the request"
		if re.Message != "" {
			msg += ": " + html.EscapeString(re.Message)
		}
		if re.Suggestion != "" {
			msg += "\n💡 " + html.EscapeString(re.Suggestion)
		}
		return msg
	case internal.ErrEndpoint:
		return "❌ The share service is unreachable right now. Try again in a minute."
	case internal.ErrExhausted:
		return "❌ Every way of getting a download link failed for this share."
	default:
		return "❌ " + html.EscapeString(re.Message)
	}
}
