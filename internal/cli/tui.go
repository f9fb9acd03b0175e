package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mindmap/pkg/editor"
	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/session"
	"github.com/matzehuels/mindmap/pkg/tree"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	inputStyle        = lipgloss.NewStyle().Foreground(colorYellow)
)

// tuiCommand creates "tui", an interactive outline editor.
func (c *CLI) tuiCommand() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "tui [file]",
		Short: "Edit a mind map interactively in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd.Context(), args[0], watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the file when it changes on disk")
	return cmd
}

func (c *CLI) runTUI(ctx context.Context, path string, watch bool) error {
	c.SetLogLevel(logQuiet)

	sess, err := c.openSession(ctx, path)
	if err != nil {
		return err
	}
	p := tea.NewProgram(newOutlineModel(ctx, sess), tea.WithAltScreen(), tea.WithContext(ctx))

	if watch {
		w, err := session.NewWatcher(sess, 0)
		if err != nil {
			return err
		}
		w.Reloaded = func(res session.LoadResult) { p.Send(reloadedMsg{err: res.Err}) }
		wctx, stop := context.WithCancel(ctx)
		defer stop()
		go func() { _ = w.Run(wctx) }()
	}

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(outlineModel); ok && m.sess.Dirty() {
		printWarning("Quit with unsaved edits to %s", path)
	}
	return nil
}

// =============================================================================
// outlineModel - Interactive outline editor
// =============================================================================

type tuiMode int

const (
	modeBrowse tuiMode = iota
	modeAdd
	modeEdit
	modeConfirmQuit
)

// reloadedMsg is sent when the watcher reloaded the file.
type reloadedMsg struct{ err error }

type outlineRow struct {
	id    tree.NodeID
	depth int
	label string
}

// outlineModel is the bubbletea model of the outline editor. Every edit goes
// through the session, so the model only keeps a flattened view of the tree.
type outlineModel struct {
	ctx    context.Context
	sess   *session.Session
	rows   []outlineRow
	cursor int
	offset int
	height int

	mode   tuiMode
	input  []rune
	status string
	failed bool
}

func newOutlineModel(ctx context.Context, sess *session.Session) outlineModel {
	m := outlineModel{ctx: ctx, sess: sess, height: 20}
	m.refresh()
	return m
}

// refresh rebuilds the rows and keeps the cursor on the same node if it
// still exists.
func (m *outlineModel) refresh() {
	var current tree.NodeID
	if m.cursor < len(m.rows) {
		current = m.rows[m.cursor].id
	}
	m.rows = m.rows[:0]
	_ = m.sess.Do(func(ed *editor.Editor) error {
		s := ed.Document().Tree
		if s.Root() == "" {
			return nil
		}
		s.Walk(s.Root(), func(id tree.NodeID, depth int) bool {
			m.rows = append(m.rows, outlineRow{id: id, depth: depth, label: nodeLabel(s, id, false)})
			return true
		})
		return nil
	})
	m.cursor = min(m.cursor, max(len(m.rows)-1, 0))
	for i, r := range m.rows {
		if r.id == current {
			m.cursor = i
			break
		}
	}
	m.scroll()
}

func (m *outlineModel) scroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

func (m outlineModel) selected() tree.NodeID {
	if m.cursor < len(m.rows) {
		return m.rows[m.cursor].id
	}
	return ""
}

// run applies fn to the editor and reports the outcome in the status line.
func (m *outlineModel) run(done string, fn func(ed *editor.Editor) error) {
	if err := m.sess.Do(fn); err != nil {
		m.status, m.failed = pkgerrors.UserMessage(err), true
	} else {
		m.status, m.failed = done, false
	}
	m.refresh()
}

func (m outlineModel) Init() tea.Cmd {
	return nil
}

func (m outlineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-6, 5)
		m.scroll()
	case reloadedMsg:
		if msg.err != nil {
			m.status, m.failed = "reload failed: "+pkgerrors.UserMessage(msg.err), true
		} else {
			m.status, m.failed = "reloaded from disk", false
		}
		m.refresh()
	case tea.KeyMsg:
		switch m.mode {
		case modeAdd, modeEdit:
			return m.updateInput(msg)
		case modeConfirmQuit:
			if msg.String() == "q" || msg.String() == "y" {
				return m, tea.Quit
			}
			m.mode, m.status = modeBrowse, ""
			return m, nil
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m outlineModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx, id := m.ctx, m.selected()
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc":
		if m.sess.Dirty() {
			m.mode, m.status, m.failed = modeConfirmQuit, "unsaved edits; press q again to quit", true
			return m, nil
		}
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.scroll()
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.scroll()
		}
	case "a", "tab":
		m.mode, m.input = modeAdd, nil
	case "e", "enter":
		if id == "" {
			return m, nil
		}
		var text string
		_ = m.sess.Do(func(ed *editor.Editor) error {
			c, _ := ed.Document().Tree.Content(id)
			text = c.Text
			return nil
		})
		m.mode, m.input = modeEdit, []rune(text)
	case "d", "x", "delete":
		m.run("deleted", func(ed *editor.Editor) error {
			_, err := ed.Delete(ctx, id)
			return err
		})
	case "K", "shift+up":
		m.run("moved up", func(ed *editor.Editor) error { return ed.MoveSibling(ctx, id, -1) })
	case "J", "shift+down":
		m.run("moved down", func(ed *editor.Editor) error { return ed.MoveSibling(ctx, id, 1) })
	case "o":
		m.run("organized subtree", func(ed *editor.Editor) error { return ed.OrganizeFrom(ctx, id) })
	case "O":
		m.run("organized", func(ed *editor.Editor) error { return ed.Organize(ctx) })
	case "u", "ctrl+z":
		m.history("undo", func(ed *editor.Editor) bool { return ed.Undo(ctx) })
	case "r", "ctrl+y":
		m.history("redo", func(ed *editor.Editor) bool { return ed.Redo(ctx) })
	case "s", "ctrl+s":
		if err := m.sess.Save(ctx); err != nil {
			m.status, m.failed = pkgerrors.UserMessage(err), true
		} else {
			m.status, m.failed = "saved "+filepath.Base(m.sess.Path()), false
		}
	}
	return m, nil
}

func (m *outlineModel) history(name string, step func(ed *editor.Editor) bool) {
	applied := false
	_ = m.sess.Do(func(ed *editor.Editor) error {
		applied = step(ed)
		return nil
	})
	if applied {
		m.status, m.failed = name, false
	} else {
		m.status, m.failed = "nothing to "+name, true
	}
	m.refresh()
}

func (m outlineModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode, m.input = modeBrowse, nil
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil
	case tea.KeySpace:
		m.input = append(m.input, ' ')
		return m, nil
	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
		return m, nil
	case tea.KeyEnter:
	default:
		return m, nil
	}

	ctx, id, text := m.ctx, m.selected(), string(m.input)
	mode := m.mode
	m.mode, m.input = modeBrowse, nil
	switch mode {
	case modeAdd:
		var added tree.NodeID
		m.run("added", func(ed *editor.Editor) error {
			var err error
			if ed.Document().Tree.Root() == "" {
				added, err = ed.Init(ctx, tree.TextContent(text))
			} else {
				added, err = ed.AddChild(ctx, id, tree.TextContent(text))
			}
			return err
		})
		for i, r := range m.rows {
			if r.id == added {
				m.cursor = i
				m.scroll()
			}
		}
	case modeEdit:
		m.run("updated", func(ed *editor.Editor) error {
			c, _ := ed.Document().Tree.Content(id)
			c.Text = text
			return ed.SetContent(ctx, id, c)
		})
	}
	return m, nil
}

func (m outlineModel) View() string {
	var b strings.Builder

	title := filepath.Base(m.sess.Path())
	if m.sess.Dirty() {
		title += " ●"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ move  a add  e edit  d delete  J/K reorder  o/O organize  u/r undo/redo  s save  q quit"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(listDimStyle.Render("  (empty, press a to add the root)"))
		b.WriteString("\n")
	}
	end := min(m.offset+m.height, len(m.rows))
	for i := m.offset; i < end; i++ {
		r := m.rows[i]
		line := strings.Repeat("  ", r.depth) + "• " + r.label
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(listNormalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch m.mode {
	case modeAdd:
		b.WriteString(inputStyle.Render("new child: " + string(m.input) + "█"))
	case modeEdit:
		b.WriteString(inputStyle.Render("text: " + string(m.input) + "█"))
	default:
		if m.status != "" {
			style := listDimStyle
			if m.failed {
				style = StyleWarning
			}
			b.WriteString(style.Render(m.status))
		}
		if len(m.rows) > 0 {
			b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.rows))))
		}
	}
	return b.String()
}
