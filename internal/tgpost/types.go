package tgpost

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseMode selects how Telegram interprets markup in a message or caption.
// The zero value means no parse mode is sent.
type ParseMode string

const (
	ParseModeNone       ParseMode = ""
	ParseModeHTML       ParseMode = tgbotapi.ModeHTML
	ParseModeMarkdown   ParseMode = tgbotapi.ModeMarkdown
	ParseModeMarkdownV2 ParseMode = tgbotapi.ModeMarkdownV2
)

// ParseModes lists the values accepted by ParseParseMode.
var ParseModes = []ParseMode{ParseModeHTML, ParseModeMarkdown, ParseModeMarkdownV2}

// ParseParseMode converts user input into a ParseMode. Matching is exact,
// as the Bot API is case-sensitive about these names.
func ParseParseMode(s string) (ParseMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ParseModeNone, nil
	}
	for _, mode := range ParseModes {
		if string(mode) == s {
			return mode, nil
		}
	}
	names := make([]string, 0, len(ParseModes))
	for _, mode := range ParseModes {
		names = append(names, string(mode))
	}
	return ParseModeNone, fmt.Errorf("invalid parse mode %q (choose from %s)", s, strings.Join(names, ", "))
}

// PostResult describes a message Telegram accepted.
type PostResult struct {
	MessageID int64
	URL       string
}

// Poster publishes messages and photos to a Telegram chat.
type Poster interface {
	SendMessage(ctx context.Context, chatID, text string, mode ParseMode) (PostResult, error)
	SendPhoto(ctx context.Context, chatID, photoPath, caption string, mode ParseMode) (PostResult, error)
}
