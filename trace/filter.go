package trace

import (
	"regexp"
	"strings"
)

// Config holds the enabled state of every channel. It is resolved once and
// never changes afterwards.
type Config struct {
	enabled map[Channel]bool
}

// NewConfig enables exactly the given channels
func NewConfig(channels ...Channel) Config {
	enabled := make(map[Channel]bool, len(channels))
	for _, ch := range channels {
		enabled[ch] = true
	}
	return Config{enabled: enabled}
}

// ParseFilter resolves a DEBUG style filter such as "pgguard:*,-pgguard:query".
// Patterns are separated by commas or whitespace, '*' matches any run of
// characters and a leading '-' excludes matching namespaces.
func ParseFilter(filter string) Config {
	var includes, excludes []*regexp.Regexp

	for _, pattern := range strings.FieldsFunc(filter, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	}) {
		if strings.HasPrefix(pattern, "-") {
			excludes = append(excludes, compilePattern(pattern[1:]))
			continue
		}
		includes = append(includes, compilePattern(pattern))
	}

	var channels []Channel
	for _, ch := range Channels() {
		name := ch.Namespace()
		if matchesAny(excludes, name) {
			continue
		}
		if matchesAny(includes, name) {
			channels = append(channels, ch)
		}
	}

	return NewConfig(channels...)
}

// Enabled reports whether the channel is switched on
func (c Config) Enabled(ch Channel) bool {
	return c.enabled[ch]
}

// EnabledChannels lists the enabled channels in their canonical order
func (c Config) EnabledChannels() []Channel {
	var out []Channel
	for _, ch := range Channels() {
		if c.enabled[ch] {
			out = append(out, ch)
		}
	}
	return out
}

func compilePattern(pattern string) *regexp.Regexp {
	quoted := strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*?")
	return regexp.MustCompile("^" + quoted + "$")
}

func matchesAny(patterns []*regexp.Regexp, name string) bool {
	for _, p := range patterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}
