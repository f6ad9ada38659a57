package models

import "strings"

// HashPrefixes is the closed set of canonical hash prefixes accepted from
// extraction tools and recognised in engine result lines.
var HashPrefixes = []string{
	"$rar5$", "$rar3$", "$RAR3$", "$zip2$", "$pkzip2$", "$pkzip$", "$7z$",
	"$office$", "$oldoffice$", "$pdf$", "$sshng$", "$ssh$", "$keepass$", "$gpg$",
	"$bitlocker$", "$WPAPSK$", "$vnc$",
	"$1$", "$5$", "$6$", "$2a$", "$2b$", "$2y$",
}

// HasHashPrefix reports whether s starts with one of HashPrefixes.
func HasHashPrefix(s string) bool {
	for _, p := range HashPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
