package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	reFenceJSON = regexp.MustCompile("```json\\s*")
	reFence     = regexp.MustCompile("```\\s*")
	reBracketed = regexp.MustCompile(`(?s)\[(.*?)\]`)
	reQuoted    = regexp.MustCompile(`"([^"]+)"`)
)

// StripCodeFences removes markdown code-fence markers around a reply.
func StripCodeFences(s string) string {
	s = reFenceJSON.ReplaceAllString(s, "")
	s = reFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParseNameList reads a list of names from a service reply. Strict JSON is
// tried first; otherwise the first bracketed span is scanned for quoted tokens.
// Tokens are trimmed and blanks dropped. Duplicates are kept.
func ParseNameList(reply string) ([]string, error) {
	body := StripCodeFences(reply)

	var raw []string
	if err := validateNameList([]byte(body)); err == nil {
		if err := json.Unmarshal([]byte(body), &raw); err != nil {
			return nil, fmt.Errorf("decode name list: %w", err)
		}
	} else {
		m := reBracketed.FindStringSubmatch(body)
		if m == nil {
			return nil, fmt.Errorf("no list in reply: %w", err)
		}
		for _, q := range reQuoted.FindAllStringSubmatch(m[1], -1) {
			raw = append(raw, q[1])
		}
	}

	names := make([]string, 0, len(raw))
	for _, n := range raw {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}
