package executor

import (
	"regexp"
	"strings"
)

var (
	msbuildFailed = regexp.MustCompile(`Build FAILED\.?([\s\S]*)$`)
	msbuildError  = regexp.MustCompile(`MSBUILD : (error [\s\S]*)$`)
	dotnetError   = regexp.MustCompile(`\): error ([\s\S]*?)\r?\n`)
	dotnetFailed  = regexp.MustCompile(`Failed([\s\S]*)`)
)

// classifyMSBuild returns the failure message of an msbuild run, or ""
func classifyMSBuild(res Result) string {
	if res.Stderr != "" {
		return res.Stderr
	}
	if m := msbuildFailed.FindStringSubmatch(res.Stdout); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := msbuildError.FindStringSubmatch(res.Stdout); m != nil {
		return strings.TrimSpace(m[1])
	}
	if res.ExitCode != 0 {
		return exitedWith(res.ExitCode)
	}
	return ""
}

func classifyDevenv(res Result) string {
	if res.Stderr != "" {
		return res.Stderr
	}
	if res.ExitCode != 0 {
		return exitedWith(res.ExitCode)
	}
	return ""
}

// classifyDotnet fails on diagnostic output, on a non-zero exit and on
// compiler errors reported in stdout
func classifyDotnet(res Result) string {
	if res.Stderr != "" {
		return res.Stderr
	}

	errorText := ""
	if m := dotnetError.FindStringSubmatch(res.Stdout); m != nil {
		errorText = strings.TrimSpace(m[1])
	} else if strings.Contains(res.Stdout, "): error ") {
		errorText = strings.TrimSpace(res.Stdout[strings.Index(res.Stdout, "): error ")+len("): error "):])
	} else if m := dotnetFailed.FindStringSubmatch(res.Stdout); m != nil {
		errorText = strings.TrimSpace(m[1])
	}

	if res.ExitCode != 0 {
		return firstNonEmpty(errorText, res.Stdout, exitedWith(res.ExitCode))
	}
	if strings.Contains(res.Stdout, "): error ") {
		return firstNonEmpty(errorText, res.Stdout)
	}
	return ""
}
