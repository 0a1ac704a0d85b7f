package translation

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/relaytranslate/relaytranslate/internal/langhint"
)

type promptKey struct {
	source langhint.Hint
	target Language
}

type promptTemplate struct {
	system string
	user   string
}

var prompts = map[promptKey]promptTemplate{
	{langhint.HintChinese, LanguageUrdu}: {
		system: "You are a professional translator. Translate the following Chinese text into Urdu accurately and naturally, keeping the original tone and style. Reply with the translation only.",
		user:   "Translate this Chinese text into Urdu: %s",
	},
	{langhint.HintChinese, LanguageEnglish}: {
		system: "You are a professional translator. Translate the following Chinese text into English accurately and naturally, keeping the original tone and style. Reply with the translation only.",
		user:   "Translate this Chinese text into English: %s",
	},
	{langhint.HintTagalog, LanguageEnglish}: {
		system: "You are a professional translator. Translate the following Tagalog (Filipino) text into English accurately, keeping its meaning. Reply with the translation only.",
		user:   "Translate this Tagalog text into English: %s",
	},
	{langhint.HintUrdu, LanguageEnglish}: {
		system: "You are a professional translator. Translate the following Urdu text into English accurately, keeping its meaning. Reply with the translation only.",
		user:   "Translate this Urdu text into English: %s",
	},
}

// buildPrompt returns the system and user messages for a translation.
func buildPrompt(text string, source langhint.Hint, target Language) (string, string) {
	if tpl, ok := prompts[promptKey{source, target}]; ok {
		return tpl.system, fmt.Sprintf(tpl.user, text)
	}

	name := target.DisplayName()
	system := fmt.Sprintf("You are a professional translator. Translate the following text into %s. If it mixes languages, translate it as a whole. Reply with the translation only.", name)
	return system, fmt.Sprintf("Translate the following text into %s: %s", name, text)
}

// preambleMarkers are labels models sometimes put before the translation.
var preambleMarkers = []string{
	"翻译：",
	"Translation:",
	"乌尔都语翻译：",
	"英语翻译：",
	"ترجمہ:",
}

var quotePairs = [][2]string{
	{`"`, `"`},
	{`'`, `'`},
	{"“", "”"},
	{"「", "」"},
}

// cleanCompletion removes preamble labels and surrounding quotes.
func cleanCompletion(content string) string {
	out := strings.TrimSpace(content)

	for _, marker := range preambleMarkers {
		if _, after, found := strings.Cut(out, marker); found {
			out = strings.TrimSpace(after)
		}
	}

	for {
		trimmed := false
		for _, q := range quotePairs {
			if len(out) >= len(q[0])+len(q[1]) && strings.HasPrefix(out, q[0]) && strings.HasSuffix(out, q[1]) {
				out = strings.TrimSpace(out[len(q[0]) : len(out)-len(q[1])])
				trimmed = true
			}
		}
		if !trimmed {
			return out
		}
	}
}

func mentionsInsufficientBalance(body []byte) bool {
	lower := bytes.ToLower(body)
	return bytes.Contains(lower, []byte("insufficient balance")) ||
		bytes.Contains(lower, []byte("insufficient_balance")) ||
		bytes.Contains(lower, []byte("insufficient_quota"))
}
