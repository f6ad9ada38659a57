package plan

import (
	"fmt"
	"strings"
)

// MaskPosition is one slot of an engine mask: a placeholder such as ?d or a
// literal character.
type MaskPosition struct {
	Token   string
	Literal bool
}

// ParseMask splits an engine mask into positions. Placeholders are two
// characters: ?l ?u ?d ?s ?a ?b ?h ?H and custom charsets ?1-?9. "??" is a
// literal question mark.
func ParseMask(mask string) ([]MaskPosition, error) {
	if mask == "" {
		return nil, fmt.Errorf("mask cannot be empty")
	}

	var out []MaskPosition
	for i := 0; i < len(mask); i++ {
		if mask[i] != '?' {
			out = append(out, MaskPosition{Token: string(mask[i]), Literal: true})
			continue
		}
		if i+1 >= len(mask) {
			return nil, fmt.Errorf("incomplete placeholder at end of mask")
		}
		tok := mask[i : i+2]
		switch mask[i+1] {
		case '?':
			out = append(out, MaskPosition{Token: tok, Literal: true})
		case 'l', 'u', 'd', 's', 'a', 'b', 'h', 'H', '1', '2', '3', '4', '5', '6', '7', '8', '9':
			out = append(out, MaskPosition{Token: tok})
		default:
			return nil, fmt.Errorf("invalid placeholder: %s", tok)
		}
		i++
	}
	return out, nil
}

// ValidateMask reports whether mask parses.
func ValidateMask(mask string) error {
	_, err := ParseMask(mask)
	return err
}

// RepeatMask builds a mask of n copies of placeholder, e.g. ?d x 6.
func RepeatMask(placeholder string, n int) string {
	return strings.Repeat(placeholder, n)
}

// Keyspace multiplies the charset sizes of every placeholder. Custom
// charsets are unknown here and counted as 26.
func Keyspace(mask string) (uint64, error) {
	positions, err := ParseMask(mask)
	if err != nil {
		return 0, err
	}
	var ks uint64 = 1
	for _, p := range positions {
		if p.Literal {
			continue
		}
		ks *= charsetSize(p.Token)
	}
	return ks, nil
}

func charsetSize(tok string) uint64 {
	switch tok {
	case "?l", "?u":
		return 26
	case "?d":
		return 10
	case "?s":
		return 33
	case "?a":
		return 95
	case "?b":
		return 256
	case "?h", "?H":
		return 16
	}
	return 26
}
