package tgpost

import (
	"strconv"
	"strings"
)

const publicHost = "t.me"

// NormalizeChannel returns the @-prefixed form of a channel reference.
// Numeric IDs are prefixed as well.
func NormalizeChannel(channel string) string {
	if strings.HasPrefix(channel, "@") {
		return channel
	}
	return "@" + channel
}

// PostURL returns the public link for a message in a public channel.
// Chats without an @username have no public link and yield "".
func PostURL(chatID string, messageID int64) string {
	name, ok := strings.CutPrefix(chatID, "@")
	if !ok || name == "" {
		return ""
	}
	return "https://" + publicHost + "/" + name + "/" + strconv.FormatInt(messageID, 10)
}
