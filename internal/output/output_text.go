package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tkjaer/ifroute/internal/shared"
)

var (
	foundStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	absentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	preferredStyle = lipgloss.NewStyle().Bold(true)
)

type cellAlignment int

const (
	alignLeft cellAlignment = iota
	alignRight
)

const (
	indexWidth   = 5
	addressWidth = 15
)

func formatCell(value string, width int, alignment cellAlignment) string {
	if alignment == alignRight {
		return fmt.Sprintf("%*s", width, value)
	}
	return fmt.Sprintf("%-*s", width, value)
}

func truncateToWidth(value string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(value) <= width {
		return value
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(value)
}

// TextOutput writes a human readable report per query
type TextOutput struct {
	mu          sync.Mutex
	w           io.Writer
	matchesOnly bool
	width       int // terminal width, 0 = unlimited
}

// NewTextOutput writes to w. With matchesOnly, interfaces without a route
// are left out; failed interfaces are always shown.
func NewTextOutput(w io.Writer, matchesOnly bool, width int) *TextOutput {
	return &TextOutput{w: w, matchesOnly: matchesOnly, width: width}
}

var _ Output = (*TextOutput)(nil)

// Close closes the underlying writer if it is an io.Closer other than a
// standard stream.
func (t *TextOutput) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.w == os.Stdout || t.w == os.Stderr {
		return nil
	}
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *TextOutput) WriteReport(run *shared.ReportRun) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Searching for network destination %s", run.Destination)
	if run.Query != "" && run.Query != run.Destination {
		fmt.Fprintf(&b, " (%s)", run.Query)
	}
	fmt.Fprintf(&b, " on %d interfaces", len(run.Interfaces))
	if run.Iteration > 0 {
		fmt.Fprintf(&b, ", query %d", run.Iteration+1)
	}
	fmt.Fprintf(&b, " [%v]\n\n", time.Duration(run.Elapsed)*time.Microsecond)

	nameWidth := 0
	for _, ir := range run.Interfaces {
		nameWidth = max(nameWidth, len(ir.Name))
	}

	shown := 0
	for _, ir := range run.Interfaces {
		if t.matchesOnly && ir.Status == shared.StatusAbsent {
			continue
		}
		shown++
		t.writeInterface(&b, ir, nameWidth)
	}
	if shown == 0 {
		fmt.Fprintf(&b, "  No interface has a route to %s\n", run.Destination)
	}
	b.WriteString("\n")

	_, err := io.WriteString(t.w, b.String())
	return err
}

func (t *TextOutput) writeInterface(b *strings.Builder, ir *shared.InterfaceRun, nameWidth int) {
	addr := ir.Address
	if addr == "" {
		addr = "-"
	}
	line := "  " + formatCell(ir.Name, nameWidth, alignLeft) +
		formatCell(fmt.Sprintf("%d", ir.Index), indexWidth, alignRight) + "  " +
		formatCell(addr, addressWidth, alignLeft) + "  "

	var status string
	switch ir.Status {
	case shared.StatusFound:
		status = foundStyle.Render("found")
	case shared.StatusFailed:
		status = "query failed: " + ir.Error
		if t.width > 0 {
			status = truncateToWidth(status, max(t.width-lipgloss.Width(line), 1))
		}
		status = failedStyle.Render(status)
	default:
		status = absentStyle.Render("no route found")
	}
	if ir.Preferred {
		status += " " + preferredStyle.Render("(preferred)")
	}
	b.WriteString(line + status + "\n")

	for _, r := range ir.Routes {
		b.WriteString("      " + formatRoute(r) + "\n")
	}
}

func formatRoute(r *shared.RouteRun) string {
	dest := r.Prefix
	if dest == "" {
		dest = r.Destination
	}
	nextHop := r.NextHop
	if r.NextHopPTR != "" {
		nextHop += " (" + r.NextHopPTR + ")"
	}
	if r.NextHopMAC != "" {
		nextHop += " [" + r.NextHopMAC + "]"
	}
	return fmt.Sprintf("%s via %s, %s, %s, metric %d, age %ds", dest, nextHop, r.Type, r.Proto, r.Metric, r.Age)
}
