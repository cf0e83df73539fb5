package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxCandidates caps the heuristic result.
const MaxCandidates = 10

// SkipVocabulary marks lines that carry prescription metadata rather than drugs.
// Matching is a case-insensitive substring test on the whole line.
var SkipVocabulary = []string{
	"doctor", "clinic", "hospital", "date", "patient", "age",
	"prescription", "rx", "diagnosis", "advice", "notes",
}

// Heuristic scans text line by line and keeps the first token of every line
// that starts with an uppercase letter. Tokens lose leading and trailing
// ".,;:", must be longer than two characters and are kept once. The result
// is deterministic and never longer than MaxCandidates.
func Heuristic(text string) []string {
	names := []string{}
	seen := make(map[string]struct{})

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || hasSkipWord(strings.ToLower(line)) {
			continue
		}
		first := strings.Fields(line)[0]
		if r, _ := utf8.DecodeRuneInString(first); !unicode.IsUpper(r) {
			continue
		}
		name := strings.Trim(first, ".,;:")
		if utf8.RuneCountInString(name) <= 2 {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
		if len(names) == MaxCandidates {
			break
		}
	}
	return names
}

func hasSkipWord(lower string) bool {
	for _, w := range SkipVocabulary {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
