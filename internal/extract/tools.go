package extract

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZerkerEOD/filecrack/internal/models"
)

// Argument placeholders expanded per invocation
const (
	argInput     = "{input}"
	argCompanion = "{companion}"
	argOutput    = "{output}"
)

// ToolStep is one external program in an extraction chain.
type ToolStep struct {
	Tool string
	Args []string
}

// ToolSpec describes how to get a hash out of one container type. Steps run
// in order; only the last step's output is parsed.
type ToolSpec struct {
	Steps []ToolStep
	// Companion requires a paired credential file next to the input
	Companion bool
	// Artifact names the scratch file written by an intermediate step
	Artifact string
}

func single(tool string) ToolSpec {
	return ToolSpec{Steps: []ToolStep{{Tool: tool, Args: []string{argInput}}}}
}

// ToolTable maps every supported container to its extraction chain.
var ToolTable = map[models.ContainerType]ToolSpec{
	models.ContainerZip:        single("zip2john"),
	models.ContainerRar:        single("rar2john"),
	models.Container7z:         single("7z2john.pl"),
	models.ContainerWord:       single("office2john.py"),
	models.ContainerExcel:      single("office2john.py"),
	models.ContainerPowerPoint: single("office2john.py"),
	models.ContainerPDF:        single("pdf2john.pl"),
	models.ContainerSSH:        single("ssh2john.py"),
	models.ContainerKeePass:    single("keepass2john"),
	models.ContainerGPG:        single("gpg2john"),
	models.ContainerBitLocker:  single("bitlocker2john"),
	models.ContainerWiFi:       single("hccap2john"),
	models.ContainerWiFiCapture: {
		Steps: []ToolStep{
			{Tool: "cap2hccapx", Args: []string{argInput, argOutput}},
			{Tool: "hccap2john", Args: []string{argOutput}},
		},
		Artifact: "capture.hccapx",
	},
	models.ContainerShadow: {
		Steps:     []ToolStep{{Tool: "unshadow", Args: []string{argCompanion, argInput}}},
		Companion: true,
	},
}

// CompanionPath returns the passwd file paired with a shadow file.
func CompanionPath(shadowPath string) string {
	dir, base := filepath.Split(shadowPath)
	return filepath.Join(dir, strings.Replace(base, "shadow", "passwd", 1))
}

// Locator resolves tool names to executables and interpreters.
type Locator struct {
	ToolsDir   string
	PerlPath   string
	PythonPath string
}

// Find returns the program to execute and any leading arguments (the script
// path when the tool runs under perl or python).
func (l *Locator) Find(tool string) (string, []string, error) {
	path, err := l.resolve(tool)
	if err != nil {
		return "", nil, err
	}
	switch filepath.Ext(tool) {
	case ".pl":
		return l.PerlPath, []string{path}, nil
	case ".py":
		return l.PythonPath, []string{path}, nil
	}
	return path, nil, nil
}

func (l *Locator) resolve(tool string) (string, error) {
	if l.ToolsDir != "" {
		// john ships its helpers under run/
		for _, candidate := range []string{
			filepath.Join(l.ToolsDir, tool),
			filepath.Join(l.ToolsDir, "run", tool),
		} {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}
	if path, err := exec.LookPath(tool); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("extraction tool %s not found", tool)
}

// ToolStatus reports whether one tool is available.
type ToolStatus struct {
	Tool  string
	Path  string
	Found bool
}

// Check resolves every tool referenced by ToolTable, sorted by name.
func (l *Locator) Check() []ToolStatus {
	seen := map[string]bool{}
	var out []ToolStatus
	for _, chain := range ToolTable {
		for _, step := range chain.Steps {
			if seen[step.Tool] {
				continue
			}
			seen[step.Tool] = true
			path, err := l.resolve(step.Tool)
			out = append(out, ToolStatus{Tool: step.Tool, Path: path, Found: err == nil})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool < out[j].Tool })
	return out
}
