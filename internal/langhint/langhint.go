// Package langhint classifies chat text into a coarse language hint using
// character-range and keyword heuristics.
package langhint

import (
	"errors"
	"strings"
)

// ErrUnknownHint is returned by ParseHint for unrecognised input.
var ErrUnknownHint = errors.New("unknown language hint")

// Hint is a coarse classification of the language a text is written in.
type Hint string

const (
	HintChinese Hint = "CHINESE"
	HintTagalog Hint = "TAGALOG"
	HintUrdu    Hint = "URDU"
	HintUnknown Hint = "UNKNOWN"
)

// Unicode ranges checked by Detect.
const (
	cjkFirst    = '\u4e00'
	cjkLast     = '\u9fff'
	arabicFirst = '\u0600'
	arabicLast  = '\u06ff'
)

// tagalogKeywords are matched as substrings of the lower-cased text, so
// "oo" also fires inside "good" and "ano" inside "piano".
var tagalogKeywords = []string{
	"ako", "ikaw", "siya", "kami", "kayo", "sila",
	"maganda", "salamat", "paalam", "mahal", "oo", "hindi",
	"kumusta", "mabuti", "pangalan", "ano", "saan", "kailan",
}

// Detect returns the language hint for text. Checks run in a fixed order
// and the first match wins: CJK ideographs, Tagalog keywords, Arabic script.
func Detect(text string) Hint {
	if containsRange(text, cjkFirst, cjkLast) {
		return HintChinese
	}

	lower := strings.ToLower(text)
	for _, kw := range tagalogKeywords {
		if strings.Contains(lower, kw) {
			return HintTagalog
		}
	}

	if containsRange(text, arabicFirst, arabicLast) {
		return HintUrdu
	}

	return HintUnknown
}

func containsRange(text string, lo, hi rune) bool {
	for _, r := range text {
		if r >= lo && r <= hi {
			return true
		}
	}
	return false
}

// Keywords returns a copy of the Tagalog keyword list.
func Keywords() []string {
	out := make([]string, len(tagalogKeywords))
	copy(out, tagalogKeywords)
	return out
}

// Code returns the short language code for the hint, or "" for HintUnknown.
func (h Hint) Code() string {
	switch h {
	case HintChinese:
		return "zh"
	case HintTagalog:
		return "tl"
	case HintUrdu:
		return "ur"
	default:
		return ""
	}
}

// DisplayName returns a human-readable name.
func (h Hint) DisplayName() string {
	switch h {
	case HintChinese:
		return "Chinese"
	case HintTagalog:
		return "Tagalog"
	case HintUrdu:
		return "Urdu"
	default:
		return "Unknown"
	}
}

func (h Hint) String() string {
	return string(h)
}

// ParseHint accepts a short code ("zh") or a name ("chinese") in any case.
func ParseHint(s string) (Hint, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zh", "chinese":
		return HintChinese, nil
	case "tl", "tagalog", "filipino":
		return HintTagalog, nil
	case "ur", "urdu":
		return HintUrdu, nil
	case "unknown":
		return HintUnknown, nil
	}
	return HintUnknown, ErrUnknownHint
}
