package notifier

import (
	"regexp"
	"strings"

	"sjsage522/jobfeedworker/internal/crawler"
)

// markdownV2Reserved is Telegram's MarkdownV2 reserved-character set
const markdownV2Reserved = "_*[]()~`>#+-=|{}.!"

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanText strips HTML-like tags and collapses whitespace runs into single
// spaces.
func CleanText(text string) string {
	text = tagPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// EscapeMarkdownV2 prefixes every reserved character with a backslash. It
// must be applied to individual fields, never to an assembled message.
func EscapeMarkdownV2(text string) string {
	if !strings.ContainsAny(text, markdownV2Reserved) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 8)
	for _, r := range text {
		if strings.ContainsRune(markdownV2Reserved, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// truncate cuts text to at most limit runes, marking the cut with an
// ellipsis. A limit of zero disables truncation.
func truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

// FormatMessage renders rec as a MarkdownV2 message. Fields are cleaned,
// truncated and escaped one at a time; the template itself holds no reserved
// characters.
func FormatMessage(feedName string, rec crawler.JobRecord, maxDescription int) string {
	description := truncate(CleanText(rec.Description), maxDescription)

	var b strings.Builder
	b.WriteString("New ")
	if name := strings.TrimSpace(feedName); name != "" {
		b.WriteString(EscapeMarkdownV2(name))
		b.WriteString(" ")
	}
	b.WriteString("Job:\n")
	b.WriteString("Title: " + EscapeMarkdownV2(strings.TrimSpace(rec.Title)) + "\n")
	b.WriteString("Description: " + EscapeMarkdownV2(description) + "\n")
	b.WriteString("Link: " + EscapeMarkdownV2(strings.TrimSpace(rec.Link)) + "\n")
	b.WriteString("Publish Date: " + EscapeMarkdownV2(strings.TrimSpace(rec.PublishDate)))
	return b.String()
}
