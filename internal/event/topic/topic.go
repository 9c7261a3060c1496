package topic

import "strings"

// Topic is a message kind in dot notation.
type Topic string

const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more segments.
	WildcardMulti = "**"

	// Separator separates segments.
	Separator = "."
)

// String returns the kind as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the kind split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// IsWildcard reports whether the kind contains a wildcard segment.
func (t Topic) IsWildcard() bool {
	for _, seg := range t.Segments() {
		if seg == WildcardSingle || seg == WildcardMulti {
			return true
		}
	}
	return false
}

// IsValid reports whether the kind is non-empty and has no empty segments.
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

// Matches reports whether this concrete kind is accepted by pattern.
func (t Topic) Matches(pattern Topic) bool {
	return matchSegments(t.Segments(), pattern.Segments())
}

func matchSegments(kind, pattern []string) bool {
	if len(pattern) == 0 {
		return len(kind) == 0
	}
	switch pattern[0] {
	case WildcardMulti:
		for i := 0; i <= len(kind); i++ {
			if matchSegments(kind[i:], pattern[1:]) {
				return true
			}
		}
		return false
	case WildcardSingle:
		return len(kind) > 0 && matchSegments(kind[1:], pattern[1:])
	default:
		return len(kind) > 0 && kind[0] == pattern[0] && matchSegments(kind[1:], pattern[1:])
	}
}

// Join joins segments into a kind.
func Join(segments ...string) Topic {
	return Topic(strings.Join(segments, Separator))
}
