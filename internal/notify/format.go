package notify

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf16"

	"nexo-alert/internal/ledger"
)

// CaptionLimit is Telegram's maximum photo caption length, in UTF-16 code
// units.
const CaptionLimit = 1024

const (
	noUpdates    = "No new news or tweets."
	socialFailed = "Tweet collection failed"
)

type NewsItem struct {
	Title string
	Link  string
}

// Digest is everything one run reports.
type Digest struct {
	Symbol       string
	Subject      string
	News         []NewsItem
	Posts        []string
	SocialFailed bool
	Price        ledger.Report
}

func (d Digest) empty() bool {
	return len(d.News) == 0 && len(d.Posts) == 0 && !d.SocialFailed
}

// ChangeLine renders a change as "📈 Up (+1.23%)", "📉 Down (-2.46%)" or
// "➖ No Change (+0.00%)".
func ChangeLine(c ledger.Change) string {
	var dir string
	switch c.Direction {
	case ledger.Increase:
		dir = "📈 Up"
	case ledger.Decrease:
		dir = "📉 Down"
	default:
		dir = "➖ No Change"
	}
	return fmt.Sprintf("%s (%+.2f%%)", dir, c.Percent)
}

func (d Digest) priceText() string {
	if !d.Price.Recorded {
		return "unavailable"
	}
	return "$" + d.Price.Price.StringFixed(2)
}

// Text is the plain-text body used for email and webhooks.
func (d Digest) Text() string {
	var lines []string
	if d.empty() {
		lines = append(lines, noUpdates)
	}
	for _, n := range d.News {
		lines = append(lines, fmt.Sprintf("[News] %s (%s)", n.Title, n.Link))
	}
	for _, p := range d.Posts {
		lines = append(lines, "[Tweet] "+p)
	}
	if d.SocialFailed {
		lines = append(lines, "[Tweet] "+socialFailed)
	}

	lines = append(lines, fmt.Sprintf("📊 %s Current Price: %s", d.Symbol, d.priceText()))
	if d.Price.Recorded {
		lines = append(lines, ChangeLine(d.Price.Change))
	}
	return strings.Join(lines, "\n")
}

// HTML is the Telegram caption. Item lines are dropped from the end until
// the caption fits in limit UTF-16 code units; the price lines always stay.
func (d Digest) HTML(limit int) string {
	var items []string
	if d.empty() {
		items = append(items, html.EscapeString(noUpdates))
	}
	for _, n := range d.News {
		items = append(items, fmt.Sprintf(`📢 <b>[News]</b> <a href="%s">%s</a>`,
			html.EscapeString(n.Link), html.EscapeString(n.Title)))
	}
	for _, p := range d.Posts {
		items = append(items, "🕊 <b>[Tweet]</b> "+html.EscapeString(p))
	}
	if d.SocialFailed {
		items = append(items, "🕊 <b>[Tweet]</b> "+socialFailed)
	}

	footer := fmt.Sprintf("\n📊 <b>%s Price</b>: %s", html.EscapeString(d.Symbol), d.priceText())
	if d.Price.Recorded {
		footer += "\n📉 <b>Change</b>: " + ChangeLine(d.Price.Change)
	}

	budget := limit - captionLen(footer)
	var kept []string
	used := 0
	for _, item := range items {
		n := captionLen(item) + 1
		if limit > 0 && used+n > budget {
			break
		}
		kept = append(kept, item)
		used += n
	}
	return strings.Join(append(kept, footer), "\n")
}

// captionLen measures s the way Telegram does, so characters outside the
// BMP (most emoji) count twice.
func captionLen(s string) int {
	return len(utf16.Encode([]rune(s)))
}

func (d Digest) Message(image []byte) Message {
	msg := Message{
		Subject: d.Subject,
		Text:    d.Text(),
		HTML:    d.HTML(CaptionLimit),
	}
	if len(image) > 0 {
		msg.Image = image
		msg.ImageName = "chart.png"
	}
	return msg
}
