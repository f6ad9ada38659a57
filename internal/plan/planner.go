// Package plan builds the ordered list of attack stages for a task.
package plan

import (
	"path/filepath"
	"time"

	"github.com/ZerkerEOD/filecrack/internal/config"
	"github.com/ZerkerEOD/filecrack/internal/models"
	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

// Stage names, also used as engine session suffixes
const (
	StageCustomMask  = "custom-mask"
	StageNumericMask = "numeric-mask"
	StageDictionary  = "dictionary"
	StageRules       = "dictionary-rules"
	StageIncremental = "incremental"
)

// wpaMinLength is the shortest valid WPA passphrase
const wpaMinLength = 8

// stageBudgets is the per-profile time allotment for each stage.
type stageBudgets struct {
	custom, numeric, dictionary, rules, incremental time.Duration
	// incrementalCap limits the brute-force length for cheap profiles; 0 means no cap
	incrementalCap int
}

var profileBudgets = map[models.Profile]stageBudgets{
	models.ProfileSimple: {
		custom: 10 * time.Minute, numeric: 5 * time.Minute, dictionary: 10 * time.Minute,
		incremental: 35 * time.Minute, incrementalCap: 6,
	},
	models.ProfileNormal: {
		custom: time.Hour, numeric: 10 * time.Minute, dictionary: time.Hour,
		incremental: 21*time.Hour + 50*time.Minute,
	},
	models.ProfileAdvanced: {
		custom: 3*time.Hour + 30*time.Minute, numeric: 30 * time.Minute, dictionary: 2 * time.Hour,
		rules: 12 * time.Hour, incremental: 150 * time.Hour,
	},
}

// Planner turns a container type and profile into attack stages.
type Planner struct {
	MaskLength   int
	IncrementMax int
	Dictionary   string
	Rules        string
}

// New creates a Planner from the attack settings in cfg. Wordlist paths are
// made absolute because the engine runs from its own directory.
func New(cfg *config.Config) *Planner {
	return &Planner{
		MaskLength:   cfg.MaskLength,
		IncrementMax: cfg.IncrementMax,
		Dictionary:   absPath(cfg.DictionaryPath),
		Rules:        absPath(cfg.RulesPath),
	}
}

func absPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		debug.Warning("Failed to resolve %s: %v", p, err)
		return p
	}
	return abs
}

// Plan returns the stages to run, in order, plus any stages dropped because
// the running budget sum would exceed total. Once a stage does not fit it and
// everything after it are dropped. An empty plan is BudgetExhausted.
func (p *Planner) Plan(container models.ContainerType, profile models.Profile, total time.Duration, customMask string) ([]models.AttackStage, []models.AttackStage, error) {
	b, ok := profileBudgets[profile]
	if !ok {
		b = profileBudgets[models.ProfileNormal]
	}

	candidates, err := p.candidates(container, profile, b, customMask)
	if err != nil {
		return nil, nil, err
	}

	var (
		stages  []models.AttackStage
		dropped []models.AttackStage
		sum     time.Duration
	)
	for i, st := range candidates {
		if sum+st.Budget > total {
			dropped = append(dropped, candidates[i:]...)
			break
		}
		sum += st.Budget
		st.Index = len(stages)
		stages = append(stages, st)
	}

	for _, d := range dropped {
		debug.Warning("Dropping stage %s (budget %v): total budget %v already committed %v", d.Name, d.Budget, total, sum)
	}
	if len(stages) == 0 {
		return nil, dropped, models.NewError(models.KindBudgetExhausted, "budget %v is too small for any attack stage", total)
	}
	return stages, dropped, nil
}

func (p *Planner) candidates(container models.ContainerType, profile models.Profile, b stageBudgets, customMask string) ([]models.AttackStage, error) {
	maskLen := p.MaskLength
	minLen, maxLen := 1, p.IncrementMax
	if b.incrementalCap > 0 && maxLen > b.incrementalCap {
		maxLen = b.incrementalCap
	}
	if container == models.ContainerWiFi || container == models.ContainerWiFiCapture {
		if maskLen < wpaMinLength {
			maskLen = wpaMinLength
		}
		minLen = wpaMinLength
		if maxLen < wpaMinLength {
			maxLen = wpaMinLength
		}
	}

	var out []models.AttackStage
	if customMask != "" {
		positions, err := ParseMask(customMask)
		if err != nil {
			return nil, err
		}
		out = append(out, models.AttackStage{
			Name: StageCustomMask, Kind: models.AttackMask, Mask: customMask,
			MinLength: len(positions), MaxLength: len(positions), Budget: b.custom,
		})
	}

	out = append(out,
		models.AttackStage{
			Name: StageNumericMask, Kind: models.AttackMask, Mask: RepeatMask("?d", maskLen),
			MinLength: maskLen, MaxLength: maskLen, Budget: b.numeric,
		},
		models.AttackStage{
			Name: StageDictionary, Kind: models.AttackDictionary, Dictionary: p.Dictionary,
			Budget: b.dictionary,
		},
	)
	if profile == models.ProfileAdvanced && p.Rules != "" {
		out = append(out, models.AttackStage{
			Name: StageRules, Kind: models.AttackDictionary, Dictionary: p.Dictionary, Rules: p.Rules,
			Budget: b.rules,
		})
	}
	out = append(out, models.AttackStage{
		Name: StageIncremental, Kind: models.AttackIncremental, Mask: RepeatMask("?a", maxLen),
		MinLength: minLen, MaxLength: maxLen, Budget: b.incremental,
	})
	return out, nil
}

// TotalBudget sums the budgets of stages.
func TotalBudget(stages []models.AttackStage) time.Duration {
	var sum time.Duration
	for _, s := range stages {
		sum += s.Budget
	}
	return sum
}
