package engine

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ZerkerEOD/filecrack/internal/models"
)

// LineKind is the classification of one engine output line
type LineKind int

const (
	LineInformational LineKind = iota
	LineSuccess
	LineFatal
)

func (k LineKind) String() string {
	switch k {
	case LineSuccess:
		return "success"
	case LineFatal:
		return "fatal"
	}
	return "info"
}

// LineResult is what ClassifyLine found in a line.
type LineResult struct {
	Kind     LineKind
	Password string
}

// fatalMarkers are engine messages worth logging at error level. None of
// them stops a stage on its own; the engine exits by itself when it cannot
// continue.
var fatalMarkers = []string{
	"ERROR",
	"FAILED",
	"NO HASHES LOADED",
	"TOKEN LENGTH EXCEPTION",
	"SEPARATOR UNMATCHED",
	"LINE-LENGTH EXCEPTION",
	"HASH-FILE EXCEPTION",
}

// skipPrefixes start status and prompt lines that may contain colons.
var skipPrefixes = []string{"[", "*", "Approaching"}

var progressRe = regexp.MustCompile(`^Progress\.+:\s+(\d+)/(\d+)\s+\(([\d.]+)%\)`)

// ClassifyLine inspects one line of engine output. hash is the target
// canonical hash; when the line starts with it plus ':' the rest of the line
// is the password. Otherwise a line whose first ':' field carries a known
// hash prefix is a result line.
func ClassifyLine(line, hash string) LineResult {
	line = strings.TrimRight(line, "\r\n")

	if hash != "" && strings.HasPrefix(line, hash+":") {
		return LineResult{Kind: LineSuccess, Password: line[len(hash)+1:]}
	}

	if !hasAnyPrefix(line, skipPrefixes) {
		if head, pw, ok := strings.Cut(line, ":"); ok && models.HasHashPrefix(head) {
			return LineResult{Kind: LineSuccess, Password: pw}
		}
	}

	upper := strings.ToUpper(line)
	for _, m := range fatalMarkers {
		if strings.Contains(upper, m) {
			return LineResult{Kind: LineFatal}
		}
	}
	return LineResult{Kind: LineInformational}
}

// ParseProgress reads a "Progress....: done/total (p%)" status line and
// returns the percentage.
func ParseProgress(line string) (float64, bool) {
	m := progressRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, false
	}
	p, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return p, true
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
