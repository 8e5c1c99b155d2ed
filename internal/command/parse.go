package command

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/shlex"
)

// ParsePrefix strips a command prefix from content. A mention of the bot
// followed by a space counts as a prefix and is tried first; configured
// prefixes are tried in order.
func ParsePrefix(content string, prefixes []string, botID string) (prefix, rest string, ok bool) {
	if botID != "" {
		for _, m := range []string{"<@" + botID + "> ", "<@!" + botID + "> "} {
			if strings.HasPrefix(content, m) {
				return m, content[len(m):], true
			}
		}
	}
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(content, p) {
			return p, content[len(p):], true
		}
	}
	return "", "", false
}

// SplitArgs splits s like a shell would, honouring quotes.
func SplitArgs(s string) ([]string, error) {
	args, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArgument, err)
	}
	return args, nil
}

// Tail returns s with its first n whitespace separated fields removed.
func Tail(s string, n int) string {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	for ; n > 0 && s != ""; n-- {
		i := strings.IndexFunc(s, unicode.IsSpace)
		if i < 0 {
			return ""
		}
		s = strings.TrimLeftFunc(s[i:], unicode.IsSpace)
	}
	return s
}

// UserID extracts a snowflake from a user mention or returns s unchanged.
func UserID(s string) string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "<@"), ">")
	return strings.TrimPrefix(s, "!")
}

// ChannelID extracts a snowflake from a channel mention or returns s unchanged.
func ChannelID(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, "<#"), ">")
}
