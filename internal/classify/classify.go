// Package classify maps canonical hash strings to engine hash modes.
package classify

import (
	"strconv"
	"strings"

	"github.com/ZerkerEOD/filecrack/internal/models"
)

// Engine hash modes
const (
	ModeRAR5            models.AlgorithmID = 13000
	ModeRAR3            models.AlgorithmID = 12500
	ModeWinZip          models.AlgorithmID = 13600
	Mode7z              models.AlgorithmID = 11600
	ModePDF11           models.AlgorithmID = 10400
	ModePDF14           models.AlgorithmID = 10500
	ModePDF17L3         models.AlgorithmID = 10600
	ModePDF17L8         models.AlgorithmID = 10700
	ModeOffice2007      models.AlgorithmID = 9400
	ModeOffice2010      models.AlgorithmID = 9500
	ModeOffice2013      models.AlgorithmID = 9600
	ModeOffice2016      models.AlgorithmID = 25300
	ModeOldOfficeMD5    models.AlgorithmID = 9700
	ModeOldOfficeSHA1   models.AlgorithmID = 9800
	ModePKZIPCompressed models.AlgorithmID = 17200
	ModePKZIPMultiFile  models.AlgorithmID = 17220
	ModeKeePass         models.AlgorithmID = 13400
	ModeGPG             models.AlgorithmID = 17010
	ModeBitLocker       models.AlgorithmID = 22100
	ModeWPA             models.AlgorithmID = 2500
	ModeSSHCipher0      models.AlgorithmID = 22911
	ModeSSHCipher6      models.AlgorithmID = 22921
	ModeSSHCipher1or3   models.AlgorithmID = 22931
	ModeSSHCipher4      models.AlgorithmID = 22941
	ModeSSHCipher5      models.AlgorithmID = 22951
	ModeMD5Crypt        models.AlgorithmID = 500
	ModeSHA256Crypt     models.AlgorithmID = 7400
	ModeSHA512Crypt     models.AlgorithmID = 1800
	ModeBcrypt          models.AlgorithmID = 3200
)

// Rule resolves hashes that start with Prefix. Once a rule's prefix matches,
// its Resolve result is final; later rules are not consulted.
type Rule struct {
	Name   string
	Prefix string
	// FoldCase compares the prefix case-insensitively
	FoldCase bool
	Resolve  func(hash string) (models.AlgorithmID, bool)
}

func fixed(id models.AlgorithmID) func(string) (models.AlgorithmID, bool) {
	return func(string) (models.AlgorithmID, bool) { return id, true }
}

// Rules is evaluated top to bottom. Keep prefixes disjoint or put the longer
// one first, otherwise the later rule becomes unreachable.
var Rules = []Rule{
	{Name: "rar5", Prefix: "$rar5$", Resolve: fixed(ModeRAR5)},
	{Name: "rar3", Prefix: "$RAR3$", FoldCase: true, Resolve: fixed(ModeRAR3)},
	{Name: "zip2", Prefix: "$zip2$", Resolve: fixed(ModeWinZip)},
	{Name: "7z", Prefix: "$7z$", Resolve: fixed(Mode7z)},
	{Name: "pdf", Prefix: "$pdf$", Resolve: resolvePDF},
	{Name: "office", Prefix: "$office$", Resolve: resolveOffice},
	{Name: "oldoffice", Prefix: "$oldoffice$", Resolve: resolveOldOffice},
	{Name: "pkzip2", Prefix: "$pkzip2$", Resolve: resolvePKZIP},
	{Name: "pkzip", Prefix: "$pkzip$", Resolve: resolvePKZIP},
	{Name: "keepass", Prefix: "$keepass$", Resolve: fixed(ModeKeePass)},
	{Name: "gpg", Prefix: "$gpg$", Resolve: fixed(ModeGPG)},
	{Name: "bitlocker", Prefix: "$bitlocker$", Resolve: fixed(ModeBitLocker)},
	{Name: "wpapsk", Prefix: "$WPAPSK$", Resolve: fixed(ModeWPA)},
	{Name: "sshng", Prefix: "$sshng$", Resolve: resolveSSH},
	{Name: "md5crypt", Prefix: "$1$", Resolve: fixed(ModeMD5Crypt)},
	{Name: "sha256crypt", Prefix: "$5$", Resolve: fixed(ModeSHA256Crypt)},
	{Name: "sha512crypt", Prefix: "$6$", Resolve: fixed(ModeSHA512Crypt)},
	{Name: "bcrypt-2a", Prefix: "$2a$", Resolve: fixed(ModeBcrypt)},
	{Name: "bcrypt-2b", Prefix: "$2b$", Resolve: fixed(ModeBcrypt)},
	{Name: "bcrypt-2y", Prefix: "$2y$", Resolve: fixed(ModeBcrypt)},
}

func (r Rule) matches(hash string) bool {
	if len(hash) < len(r.Prefix) {
		return false
	}
	if r.FoldCase {
		return strings.EqualFold(hash[:len(r.Prefix)], r.Prefix)
	}
	return strings.HasPrefix(hash, r.Prefix)
}

// Classify returns the engine mode for hash, or an UnrecognizedAlgorithm
// error. It never guesses.
func Classify(hash string) (models.AlgorithmID, error) {
	hash = strings.TrimSpace(hash)
	for _, r := range Rules {
		if !r.matches(hash) {
			continue
		}
		if id, ok := r.Resolve(hash); ok {
			return id, nil
		}
		return 0, models.NewError(models.KindUnrecognizedAlgorithm, "unsupported %s sub-version in hash %s", r.Name, preview(hash))
	}
	return 0, models.NewError(models.KindUnrecognizedAlgorithm, "no rule matches hash %s", preview(hash))
}

// fields splits everything after prefix on '*'.
func fields(hash, prefix string) []string {
	return strings.Split(hash[len(prefix):], "*")
}

// resolvePDF reads $pdf$<V>*<R>*...
func resolvePDF(hash string) (models.AlgorithmID, bool) {
	f := fields(hash, "$pdf$")
	if len(f) < 2 {
		return 0, false
	}
	switch f[0] {
	case "1":
		return ModePDF11, true
	case "2", "4":
		return ModePDF14, true
	case "5":
		switch f[1] {
		case "5":
			return ModePDF17L3, true
		case "6":
			return ModePDF17L8, true
		}
	}
	return 0, false
}

// resolveOffice looks for a standalone year token. The 2016 sheet-protection
// form uses '$' separators ($office$2016$...), the others use '*'.
func resolveOffice(hash string) (models.AlgorithmID, bool) {
	tokens := strings.FieldsFunc(hash, func(r rune) bool { return r == '*' || r == '$' })
	for _, tok := range tokens {
		switch tok {
		case "2007":
			return ModeOffice2007, true
		case "2010":
			return ModeOffice2010, true
		case "2013":
			return ModeOffice2013, true
		case "2016":
			return ModeOffice2016, true
		}
	}
	return 0, false
}

// resolveOldOffice reads the type digit right after $oldoffice$.
func resolveOldOffice(hash string) (models.AlgorithmID, bool) {
	rest := hash[len("$oldoffice$"):]
	if rest == "" {
		return 0, false
	}
	switch rest[0] {
	case '0', '1':
		return ModeOldOfficeMD5, true
	case '3', '4':
		return ModeOldOfficeSHA1, true
	}
	return 0, false
}

// resolvePKZIP reads the chunk count, the first '*' field.
func resolvePKZIP(hash string) (models.AlgorithmID, bool) {
	prefix := "$pkzip2$"
	if !strings.HasPrefix(hash, prefix) {
		prefix = "$pkzip$"
	}
	n, err := strconv.Atoi(fields(hash, prefix)[0])
	if err != nil {
		return 0, false
	}
	switch n {
	case 1:
		return ModePKZIPCompressed, true
	case 3:
		return ModePKZIPMultiFile, true
	}
	return 0, false
}

// resolveSSH reads the cipher code from $sshng$<cipher>$...
func resolveSSH(hash string) (models.AlgorithmID, bool) {
	rest := hash[len("$sshng$"):]
	cipher, _, ok := strings.Cut(rest, "$")
	if !ok {
		return 0, false
	}
	switch cipher {
	case "0":
		return ModeSSHCipher0, true
	case "6":
		return ModeSSHCipher6, true
	case "1", "3":
		return ModeSSHCipher1or3, true
	case "4":
		return ModeSSHCipher4, true
	case "5":
		return ModeSSHCipher5, true
	}
	return 0, false
}

// preview keeps error messages short and avoids logging full hashes.
func preview(hash string) string {
	if len(hash) > 24 {
		return hash[:24] + "..."
	}
	return hash
}
