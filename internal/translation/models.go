// Package translation selects a target language for a detected hint and
// translates text through a chat-completion API.
package translation

import (
	"errors"
	"strings"

	"github.com/relaytranslate/relaytranslate/internal/langhint"
)

// ErrUnsupportedLanguage is returned by ParseLanguage.
var ErrUnsupportedLanguage = errors.New("unsupported target language")

// Language is a translation target.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageUrdu    Language = "ur"
	LanguageChinese Language = "zh"
)

// DisplayName returns the English name of the language.
func (l Language) DisplayName() string {
	switch l {
	case LanguageEnglish:
		return "English"
	case LanguageUrdu:
		return "Urdu"
	case LanguageChinese:
		return "Chinese"
	default:
		return string(l)
	}
}

// ParseLanguage accepts a code ("en") or an English name ("urdu").
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "english":
		return LanguageEnglish, nil
	case "ur", "urdu":
		return LanguageUrdu, nil
	case "zh", "chinese":
		return LanguageChinese, nil
	}
	return "", ErrUnsupportedLanguage
}

// Request is a single translation job.
type Request struct {
	Text   string
	Source langhint.Hint
	Target Language
}

// Result is the outcome of a translation job.
type Result struct {
	Text      string
	Success   bool
	ErrorKind ErrorKind
}
