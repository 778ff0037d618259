package services

import (
	"regexp"
)

// BannedWords are rejected in public comments.
var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"ass", "asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
	"porn", "porno", "nude", "nudes",
}

// ContentFilter screens free text written by campus users.
type ContentFilter struct {
	bannedWordRegexps []*regexp.Regexp
}

func NewContentFilter(words []string) *ContentFilter {
	f := &ContentFilter{bannedWordRegexps: make([]*regexp.Regexp, 0, len(words))}
	for _, word := range words {
		pattern := `(?i)\b` + regexp.QuoteMeta(word) + `\b`
		if re, err := regexp.Compile(pattern); err == nil {
			f.bannedWordRegexps = append(f.bannedWordRegexps, re)
		}
	}
	return f
}

func (f *ContentFilter) ContainsProfanity(text string) bool {
	if f == nil {
		return false
	}
	for _, re := range f.bannedWordRegexps {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
