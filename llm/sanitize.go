package llm

import (
	"regexp"
	"strings"
	"unicode"
)

// stageDirections matches parenthesised action descriptions the model
// sometimes emits, e.g. "(laughs nervously)".
var stageDirections = regexp.MustCompile(`\([^)]*\)|（[^）]*）`)

// fillerPhrases are catchphrases the model tends to overuse, matched
// case-insensitively. Only the first occurrence per reply survives.
var fillerPhrases = compileFillers(
	"haha", "lol", "lmao", "tbh", "ngl", "imo", "idk", "fr fr",
)

func compileFillers(phrases ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(phrases))
	for i, p := range phrases {
		res[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(p))
	}
	return res
}

var whitespace = regexp.MustCompile(`\s+`)

// CleanReply post-processes a raw completion into something that reads like
// a typed chat message: stage directions removed, repeated filler collapsed,
// terminal punctuation guaranteed. Pure string transform, no I/O.
func CleanReply(reply string) string {
	reply = stageDirections.ReplaceAllString(reply, "")

	for _, phrase := range fillerPhrases {
		locs := phrase.FindAllStringIndex(reply, -1)
		if len(locs) < 2 {
			continue
		}
		var b strings.Builder
		prev := locs[0][1]
		b.WriteString(reply[:prev])
		for _, loc := range locs[1:] {
			b.WriteString(reply[prev:loc[0]])
			prev = loc[1]
		}
		b.WriteString(reply[prev:])
		reply = b.String()
	}

	reply = strings.TrimSpace(whitespace.ReplaceAllString(reply, " "))
	if reply == "" {
		return reply
	}

	last := []rune(reply)[len([]rune(reply))-1]
	if !strings.ContainsRune(".!?。！？", last) && !unicode.IsPunct(last) {
		reply += "."
	}
	return reply
}
