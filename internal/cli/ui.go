package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtree "github.com/charmbracelet/lipgloss/tree"

	"github.com/matzehuels/mindmap/pkg/document"
	"github.com/matzehuels/mindmap/pkg/tree"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleID      = lipgloss.NewStyle().Foreground(colorDim)
	styleImage   = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Documents
// =============================================================================

// formatStats renders document statistics on a single line.
func formatStats(st document.Stats, cached bool) string {
	parts := []string{
		fmt.Sprintf("%d nodes", st.Nodes),
		fmt.Sprintf("depth %d", st.Depth),
	}
	if st.Images > 0 {
		parts = append(parts, fmt.Sprintf("%d images", st.Images))
	}
	if st.Links > 0 {
		parts = append(parts, fmt.Sprintf("%d links", st.Links))
	}
	for i, p := range parts {
		parts[i] = StyleDim.Render(p)
	}

	status, statusStyle := iconFresh, styleComputed
	if cached {
		status, statusStyle = iconCached, styleCached
	}
	parts = append(parts, statusStyle.Render(status))
	return "  " + strings.Join(parts, StyleDim.Render(" · "))
}

// nodeLabel is the one-line description of a node in listings.
func nodeLabel(s *tree.Store, id tree.NodeID, showIDs bool) string {
	c, _ := s.Content(id)
	var parts []string
	if showIDs {
		parts = append(parts, styleID.Render(string(id)))
	}
	if c.Text != "" {
		text, _, _ := strings.Cut(c.Text, "\n")
		if id == s.Root() {
			text = StyleTitle.Render(text)
		}
		parts = append(parts, text)
	}
	if c.Image != nil {
		parts = append(parts, styleImage.Render(fmt.Sprintf("[%s %dx%d]", c.Image.Format, c.Image.Width, c.Image.Height)))
	}
	if c.Link != "" {
		parts = append(parts, StyleLink.Render(c.Link))
	}
	return strings.Join(parts, " ")
}

// renderOutline draws the document as an indented tree.
func renderOutline(d *document.Document, showIDs bool) string {
	root := d.Tree.Root()
	if root == "" {
		return StyleDim.Render("(empty)")
	}
	var build func(id tree.NodeID) *lgtree.Tree
	build = func(id tree.NodeID) *lgtree.Tree {
		t := lgtree.Root(nodeLabel(d.Tree, id, showIDs))
		for _, child := range d.Tree.Children(id) {
			if d.Tree.ChildCount(child) == 0 {
				t.Child(nodeLabel(d.Tree, child, showIDs))
			} else {
				t.Child(build(child))
			}
		}
		return t
	}
	return build(root).
		Enumerator(lgtree.RoundedEnumerator).
		EnumeratorStyle(StyleDim).
		String()
}
