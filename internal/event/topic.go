package event

import "strings"

// Topic is a hierarchical event type using dot notation.
type Topic string

// Wildcards and separator for topic patterns.
const (
	WildcardSingle = "*"
	WildcardMulti  = "**"
	Separator      = "."
)

// Topics published by the application.
const (
	TopicHistoryExecuted Topic = "history.executed"
	TopicHistoryUndone   Topic = "history.undone"
	TopicHistoryRedone   Topic = "history.redone"
	TopicHistoryCleared  Topic = "history.cleared"
	TopicHistoryFailed   Topic = "history.failed"
	TopicConfigReloaded  Topic = "config.reloaded"
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// IsValid returns true if the topic is non-empty and has no empty segments.
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// Matches reports whether the concrete topic t matches pattern.
func (t Topic) Matches(pattern Topic) bool {
	return matchSegments(pattern.Segments(), t.Segments())
}

func matchSegments(pattern, topic []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case WildcardMulti:
			rest := pattern[1:]
			for i := 0; i <= len(topic); i++ {
				if matchSegments(rest, topic[i:]) {
					return true
				}
			}
			return false
		case WildcardSingle:
			if len(topic) == 0 {
				return false
			}
		default:
			if len(topic) == 0 || topic[0] != pattern[0] {
				return false
			}
		}
		pattern = pattern[1:]
		topic = topic[1:]
	}
	return len(topic) == 0
}
