package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ZerkerEOD/filecrack/internal/models"
)

// options are the parsed command line
type options struct {
	File       string
	Mode       string
	Verbose    bool
	Profile    models.Profile
	Budget     time.Duration
	Mask       string
	Enqueue    bool
	CheckTools bool
	// Cancel and Status name a task submitted earlier with --enqueue
	Cancel string
	Status string
}

const usage = `Usage: filecrack [flags] <file>
       filecrack --cancel|--status <task-id>

Recover the password of an encrypted file with hashcat.

Flags:
  --mode cpu|gpu       device type (default from DEVICE_MODE, cpu)
  -v, --verbose        show stage progress and debug output
  --profile NAME       simple, normal or advanced (default normal)
  --budget DURATION    total time budget, e.g. 2h (default per profile)
  --mask MASK          custom hashcat mask tried before the default stages
  --enqueue            submit the task to the worker queue instead of running it
  --check-tools        list extraction tools and exit
  --cancel ID          cancel a queued or running task and exit
  --status ID          show the state of a submitted task and exit
`

// parseArgs accepts flags before and after the positional file.
func parseArgs(args []string, defaultMode string, stderr io.Writer) (*options, error) {
	opts := &options{}
	var profile string

	fs := flag.NewFlagSet("filecrack", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	fs.StringVar(&opts.Mode, "mode", defaultMode, "device type")
	fs.BoolVar(&opts.Verbose, "v", false, "verbose")
	fs.BoolVar(&opts.Verbose, "verbose", false, "verbose")
	fs.StringVar(&profile, "profile", string(models.ProfileNormal), "crack profile")
	fs.DurationVar(&opts.Budget, "budget", 0, "total time budget")
	fs.StringVar(&opts.Mask, "mask", "", "custom mask")
	fs.BoolVar(&opts.Enqueue, "enqueue", false, "submit to the worker queue")
	fs.BoolVar(&opts.CheckTools, "check-tools", false, "list extraction tools")
	fs.StringVar(&opts.Cancel, "cancel", "", "task id to cancel")
	fs.StringVar(&opts.Status, "status", "", "task id to show")

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	opts.Mode = strings.ToLower(opts.Mode)
	if opts.Mode != "cpu" && opts.Mode != "gpu" {
		return nil, fmt.Errorf("invalid --mode %q: must be cpu or gpu", opts.Mode)
	}
	p, err := models.ParseProfile(profile)
	if err != nil {
		return nil, err
	}
	opts.Profile = p
	if opts.Budget < 0 {
		return nil, errors.New("--budget must be positive")
	}

	if opts.Cancel != "" && opts.Status != "" {
		return nil, errors.New("--cancel and --status are exclusive")
	}
	if opts.CheckTools || opts.Cancel != "" || opts.Status != "" {
		if len(positional) > 0 {
			return nil, fmt.Errorf("unexpected argument %q", positional[0])
		}
		return opts, nil
	}
	switch len(positional) {
	case 0:
		fs.Usage()
		return nil, errors.New("missing file argument")
	case 1:
		opts.File = positional[0]
	default:
		return nil, fmt.Errorf("expected one file, got %d", len(positional))
	}
	return opts, nil
}
