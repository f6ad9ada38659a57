package main

import (
	"fmt"

	"github.com/ZerkerEOD/filecrack/internal/models"
	"github.com/ZerkerEOD/filecrack/pkg/console"
)

// progressView turns controller status snapshots into console output.
type progressView struct {
	verbose bool
	state   models.State
	stage   int
	bar     *console.Bar
}

func newProgressView(verbose bool) *progressView {
	return &progressView{verbose: verbose, stage: -1}
}

func (p *progressView) update(st models.TaskStatus) {
	if st.State != p.state {
		if st.State == models.StateAnalyzing {
			console.Status("Extracting hash")
		}
		p.state = st.State
	}
	if st.State != models.StateCracking {
		return
	}

	if st.StageIndex != p.stage {
		p.finish()
		p.stage = st.StageIndex
		label := fmt.Sprintf("Stage %d/%d", st.StageIndex+1, st.StageCount)
		console.Status("%s started (%.0f%% of budget used)", label, st.BudgetRatio*100)
		if p.verbose {
			p.bar = console.NewBar(label)
		}
	}

	if !p.verbose {
		return
	}
	if p.bar != nil && console.IsTerminal() {
		p.bar.Set(st.Progress)
		return
	}
	if st.Progress > 0 {
		console.Progress(fmt.Sprintf("Stage %d/%d", st.StageIndex+1, st.StageCount), st.Progress)
	}
}

func (p *progressView) finish() {
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}
