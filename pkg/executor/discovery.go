package executor

import (
	"github.com/arthur-debert/deltapack/pkg/errors"
)

var (
	vsYears    = []string{"2022", "2019", "2017"}
	vsVersions = []string{"Current", "17.0", "15.0", "14.0"}
)

func (t *Toolbox) programFiles() []string {
	var roots []string
	for _, name := range []string{"ProgramFiles", "ProgramFiles(x86)"} {
		if v := t.getenv(name); v != "" {
			roots = append(roots, v)
		}
	}
	return roots
}

// Install paths are Windows paths regardless of the host, so they are
// assembled with backslashes rather than filepath.Join.
func msbuildCandidates(roots []string) []string {
	var out []string
	for _, root := range roots {
		for _, version := range vsVersions {
			for _, year := range vsYears {
				out = append(out, root+`\Microsoft Visual Studio\`+year+`\Community\MSBuild\`+version+`\Bin\MSBuild.exe`)
			}
		}
	}
	return out
}

func devenvCandidates(roots []string) []string {
	var out []string
	for _, root := range roots {
		for _, year := range vsYears {
			out = append(out, root+`\Microsoft Visual Studio\`+year+`\Community\Common7\IDE\devenv.exe`)
		}
	}
	return out
}

func dotnetCandidates(roots []string) []string {
	var out []string
	for _, root := range roots {
		out = append(out, root+`\dotnet\dotnet.exe`)
	}
	return out
}

// locate resolves a tool: the configured path wins, then the first existing
// install candidate, then the binary name on PATH
func (t *Toolbox) locate(name, configured string, candidates []string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	for _, c := range candidates {
		if t.exists(c) {
			t.logger.Debug().Str("tool", name).Str("path", c).Msg("Found tool install")
			return c, nil
		}
	}

	if p, err := t.lookPath(name); err == nil {
		t.logger.Debug().Str("tool", name).Str("path", p).Msg("Found tool on PATH")
		return p, nil
	}

	return "", errors.Newf(errors.ErrToolMissing, "could not locate %s", name).
		WithDetail("tool", name)
}
