package style

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/arthur-debert/deltapack/pkg/events"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/charmbracelet/lipgloss"
)

// Console prints progress lines for packing and unpacking. Progress goes to
// out; warnings and duplicate reports go to errOut.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	sheet  *Sheet
}

// NewConsole creates a console. With noColor every line is plain text.
func NewConsole(out, errOut io.Writer, noColor bool) *Console {
	sheet := PlainSheet()
	if !noColor {
		sheet = DefaultSheet(lipgloss.NewRenderer(out))
	}
	return &Console{out: out, errOut: errOut, sheet: sheet}
}

// Package announces the start of a package definition
func (c *Console) Package(name string) {
	c.println(c.out, "Package", fmt.Sprintf("> Packaging %s...", name))
}

// Unpacking announces the replay of a manifest
func (c *Console) Unpacking(manifest, out string) {
	c.println(c.out, "Package", fmt.Sprintf("> Unpacking %s into %s...", manifest, out))
}

// Done closes a successful run
func (c *Console) Done() {
	c.println(c.out, "Success", "> Done.")
}

// Failed reports the error that ended a run
func (c *Console) Failed(err error) {
	c.println(c.errOut, "Error", "Failed: "+err.Error())
}

// Notify implements events.Observer
func (c *Console) Notify(e events.Event) {
	switch e.Kind {
	case events.Action:
		if e.Action == nil || e.Action.Description == "" {
			return
		}
		c.println(c.out, "Action", "  . Action: "+e.Action.Description)
	case events.ActionStart:
		if e.Action == nil || e.Action.Description == "" {
			return
		}
		if line := describeAction(e.Action); line != "" {
			c.println(c.out, "Step", "  .. "+line)
		}
	case events.ActionSkip:
		if e.Action == nil || e.Action.Description == "" {
			return
		}
		c.println(c.out, "Skipped", "  .. Skipped")
	case events.PackStart:
		c.println(c.out, "Step", "  . Packing...")
	case events.PackSkip:
		c.println(c.out, "Skipped", "  .. Nothing to pack")
	case events.DuplicateFile:
		if d := e.Duplicate; d != nil {
			c.println(c.errOut, "Warning",
				fmt.Sprintf(" . Trying to add duplicate file %s:", d.Name),
				fmt.Sprintf("   Existing source: %s with size %d.", d.Source, d.Size),
				fmt.Sprintf("   New source: %s with size %d.", d.NewSource, d.NewSize),
				"   Skipping...",
			)
		}
	case events.Warning:
		c.println(c.errOut, "Warning", e.Message)
	}
}

func describeAction(a *types.ActionDef) string {
	switch opts := a.Options.(type) {
	case *types.MSBuildOptions:
		return fmt.Sprintf("Performing MSBuild of %s...", opts.Solution)
	case *types.DevenvOptions:
		return fmt.Sprintf("Performing Devenv of %s...", opts.Solution)
	case *types.CmdOptions:
		return fmt.Sprintf("Performing command %s with args %s...", opts.Path, strings.Join(opts.Args, " "))
	case *types.DotnetOptions:
		return fmt.Sprintf("Performing dotnet %s...", opts.Command)
	}
	return ""
}

// println writes each line with the named style. Lines are styled one by
// one so multi-line blocks are not padded to a common width.
func (c *Console) println(w io.Writer, styleName string, lines ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range lines {
		_, _ = fmt.Fprintln(w, c.sheet.Render(styleName, line))
	}
}
