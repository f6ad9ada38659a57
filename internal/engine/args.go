package engine

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ZerkerEOD/filecrack/internal/models"
)

// Engine attack modes
const (
	attackModeStraight   = "0"
	attackModeBruteForce = "3"
)

// Options are the engine settings shared by every stage.
type Options struct {
	Binary      string
	DeviceMode  string
	StatusTimer time.Duration
	ExtraParams []string
	// KillGrace is how long a terminated engine gets before SIGKILL
	KillGrace time.Duration
}

// Request is one stage run against one hash.
type Request struct {
	SessionID string
	Algorithm models.AlgorithmID
	Hash      string
	HashFile  string
	Stage     models.AttackStage
	Timeout   time.Duration
}

// BuildArgs returns the engine command line for req. Result caching and
// resume state are always disabled so a rerun starts clean.
func BuildArgs(req Request, opts Options) []string {
	mode := attackModeBruteForce
	if req.Stage.Kind == models.AttackDictionary {
		mode = attackModeStraight
	}

	args := []string{"-m", req.Algorithm.String(), "-a", mode, req.HashFile}

	switch req.Stage.Kind {
	case models.AttackDictionary:
		args = append(args, req.Stage.Dictionary)
		if req.Stage.Rules != "" {
			args = append(args, "-r", req.Stage.Rules)
		}
	case models.AttackIncremental:
		args = append(args, req.Stage.Mask,
			"--increment",
			"--increment-min="+strconv.Itoa(req.Stage.MinLength),
			"--increment-max="+strconv.Itoa(req.Stage.MaxLength))
	default:
		args = append(args, req.Stage.Mask)
	}

	timer := int(opts.StatusTimer / time.Second)
	if timer < 1 {
		timer = 1
	}
	args = append(args,
		"--potfile-disable",
		"--restore-disable",
		"--session="+req.SessionID,
		"--status",
		fmt.Sprintf("--status-timer=%d", timer),
		"--force",
	)

	switch opts.DeviceMode {
	case "cpu":
		args = append(args, "-D", "1")
	case "gpu":
		args = append(args, "-D", "2")
	}
	return append(args, opts.ExtraParams...)
}
