package models

import "time"

// AttackKind selects the engine attack mode
type AttackKind string

const (
	AttackMask        AttackKind = "mask"
	AttackDictionary  AttackKind = "dictionary"
	AttackIncremental AttackKind = "incremental"
)

// AttackStage is one bounded candidate space tried against the hash.
type AttackStage struct {
	Index      int           `json:"index"`
	Name       string        `json:"name"`
	Kind       AttackKind    `json:"kind"`
	Mask       string        `json:"mask,omitempty"`
	Dictionary string        `json:"dictionary,omitempty"`
	Rules      string        `json:"rules,omitempty"`
	MinLength  int           `json:"min_length,omitempty"`
	MaxLength  int           `json:"max_length,omitempty"`
	Budget     time.Duration `json:"budget"`
}
