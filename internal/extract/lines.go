package extract

import (
	"regexp"
	"strings"

	"github.com/sizemo/ocreceipt/internal/ocr"
)

var (
	reSpaces   = regexp.MustCompile(`\s+`)
	reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
)

// normalizeLines splits raw pass text into compact, non-empty lines.
func normalizeLines(text string) []string {
	var cleaned []string
	for _, line := range strings.Split(text, "\n") {
		compact := strings.TrimSpace(reSpaces.ReplaceAllString(line, " "))
		if compact != "" {
			cleaned = append(cleaned, compact)
		}
	}
	return cleaned
}

// normalizeForMatch reduces a line to its lowercase alphanumeric core so
// the same text recognized with different punctuation or spacing still
// keys to one confidence entry.
func normalizeForMatch(line string) string {
	return reNonAlnum.ReplaceAllString(strings.ToLower(line), "")
}

// dedupeLines removes lines whose normalized form was already seen,
// preserving first-seen order.
func dedupeLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	var ordered []string
	for _, line := range lines {
		key := normalizeForMatch(line)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ordered = append(ordered, line)
	}
	return ordered
}

// confMap looks up per-line confidence by normalized text. Entries keep
// insertion order so the substring fallback is deterministic.
type confMap struct {
	keys  []string
	exact map[string]float64
}

func buildConfMap(lines []ocr.Line) *confMap {
	m := &confMap{exact: make(map[string]float64, len(lines))}
	for _, line := range lines {
		key := normalizeForMatch(line.Text)
		if key == "" {
			continue
		}
		if _, ok := m.exact[key]; !ok {
			m.keys = append(m.keys, key)
		}
		m.exact[key] = line.Confidence
	}
	return m
}

// confidence returns the confidence of the pass line matching the given
// text: exact normalized match first, then a substring match in either
// direction, else zero.
func (m *confMap) confidence(line string) float64 {
	if len(m.exact) == 0 {
		return 0
	}
	key := normalizeForMatch(line)
	if key == "" {
		return 0
	}
	if conf, ok := m.exact[key]; ok {
		return conf
	}
	for _, k := range m.keys {
		if strings.Contains(k, key) || strings.Contains(key, k) {
			return m.exact[k]
		}
	}
	return 0
}
