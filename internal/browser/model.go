// Package browser is the interactive terminal view over the subset loader:
// fold groups, switch grouping, toggle families and change versions.
package browser

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dyluth/burrow/internal/loader"
	"github.com/dyluth/burrow/internal/model"
	"github.com/dyluth/burrow/internal/render"
)

// ReloadMsg asks the browser to re-read the asset.
type ReloadMsg struct {
	// Reason is shown in the status line when set.
	Reason string
}

// StatusMsg replaces the status line.
type StatusMsg string

// ProgramReloader forwards reload requests into a running program so the
// view stack is only touched from the UI loop.
type ProgramReloader struct {
	Program *tea.Program
}

// Refresh implements watch.Reloader.
func (r ProgramReloader) Refresh(context.Context) error {
	r.Program.Send(ReloadMsg{})
	return nil
}

type line struct {
	header bool
	key    string
	label  string
	subset string
	cells  []string
}

// Model is the bubbletea model of the browser.
type Model struct {
	ctx      context.Context
	pipeline *loader.Pipeline

	keys  KeyMap
	help  help.Model
	input textinput.Model

	snapshot  *render.Snapshot
	headers   []string
	widths    []int
	lines     []line
	families  []string
	collapsed map[string]bool
	cursor    int
	editing   string

	status   string
	err      error
	quitting bool
}

// New returns a browser over a pipeline with an asset already selected.
func New(ctx context.Context, p *loader.Pipeline) *Model {
	input := textinput.New()
	input.Placeholder = "v001"
	input.CharLimit = 32

	m := &Model{
		ctx:       ctx,
		pipeline:  p,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		input:     input,
		collapsed: make(map[string]bool),
	}
	m.rebuild()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case ReloadMsg:
		m.reload()
		if msg.Reason != "" && m.err == nil {
			m.status = msg.Reason
		}
		return m, nil

	case StatusMsg:
		m.status = string(msg)
		return m, nil

	case tea.KeyMsg:
		if m.editing != "" {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}

	return m, nil
}

func (m *Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.lines)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Fold):
		if l, ok := m.current(); ok && l.header {
			m.setCollapsed(l.key, !m.collapsed[l.key])
		}

	case key.Matches(msg, m.keys.Collapse):
		if l, ok := m.current(); ok {
			m.setCollapsed(l.key, true)
		}

	case key.Matches(msg, m.keys.Expand):
		if l, ok := m.current(); ok && l.header {
			m.setCollapsed(l.key, false)
		}

	case key.Matches(msg, m.keys.GroupBy):
		m.cycleGroupBy()

	case key.Matches(msg, m.keys.Family):
		m.toggleFamily(int(msg.Runes[0] - '1'))

	case key.Matches(msg, m.keys.Edit):
		l, ok := m.current()
		if !ok || l.header {
			m.status = "Select a subset to change its version"
			return m, nil
		}
		m.editing = l.subset
		m.input.SetValue("")
		m.err = nil
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Reload):
		m.reload()
		if m.err == nil {
			m.status = "Reloaded"
		}
	}

	return m, nil
}

func (m *Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.stopEditing()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		subset, version := m.editing, strings.TrimSpace(m.input.Value())
		m.stopEditing()
		if version == "" {
			return m, nil
		}

		rec, err := m.pipeline.SetVersion(m.ctx, subset, version)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("%s → %s (%s)", subset, rec.Version, rec.Frames)
		m.rebuild()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) stopEditing() {
	m.editing = ""
	m.input.Blur()
}

func (m *Model) current() (line, bool) {
	if m.cursor < 0 || m.cursor >= len(m.lines) {
		return line{}, false
	}
	return m.lines[m.cursor], true
}

func (m *Model) setCollapsed(group string, collapsed bool) {
	m.collapsed[group] = collapsed
	m.layout(group, "")
}

func (m *Model) reload() {
	if err := m.pipeline.Refresh(m.ctx); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.rebuild()
}

// groupOptions lists every column the proxy can group by, then "none".
func (m *Model) groupOptions() []string {
	src := m.pipeline.Filter
	options := make([]string, 0, src.ColumnCount()+1)
	for c := 0; c < src.ColumnCount(); c++ {
		h, err := src.HeaderData(c, model.DisplayRole)
		if err != nil {
			continue
		}
		options = append(options, fmt.Sprint(h))
	}
	return append(options, "none")
}

func (m *Model) cycleGroupBy() {
	options := m.groupOptions()
	current := m.pipeline.Proxy.GroupBy()

	next := options[0]
	for i, o := range options {
		if o == current {
			next = options[(i+1)%len(options)]
			break
		}
	}

	if err := m.pipeline.Proxy.SetGroupBy(next); err != nil {
		m.err = err
		return
	}
	m.collapsed = make(map[string]bool)
	m.err = nil
	m.status = fmt.Sprintf("Grouped by %s", next)
	m.rebuild()
}

// toggleFamily flips the i-th known family. The filter becomes the explicit
// list of families that remain shown.
func (m *Model) toggleFamily(i int) {
	if i < 0 || i >= len(m.families) {
		return
	}
	target := m.families[i]

	var allow []string
	shown := false
	for _, f := range m.families {
		on := m.pipeline.Filter.Accepts(f)
		if f == target {
			on = !on
			shown = on
		}
		if on {
			allow = append(allow, f)
		}
	}
	if allow == nil {
		allow = []string{}
	}

	m.pipeline.Filter.SetFamilyFilter(allow)
	if shown {
		m.status = fmt.Sprintf("Showing %s", target)
	} else {
		m.status = fmt.Sprintf("Hiding %s", target)
	}
	m.rebuild()
}

// rebuild re-reads the proxy, keeping the cursor on the same group or subset
// where possible.
func (m *Model) rebuild() {
	var group, subset string
	if l, ok := m.current(); ok {
		group = l.key
		if !l.header {
			subset = l.subset
		}
	}

	m.families = m.loadedFamilies()

	snap, err := render.Collect(m.pipeline.Proxy)
	if err != nil {
		m.err = err
		return
	}
	m.headers = snap.Headers
	m.widths = render.ColumnWidths(snap)
	m.snapshot = snap
	m.layout(group, subset)
}

// layout flattens the last snapshot into lines honouring collapsed groups.
func (m *Model) layout(group, subset string) {
	m.lines = m.lines[:0]
	cursor := -1

	if m.snapshot != nil {
		for _, g := range m.snapshot.Groups {
			if g.Key == group && (subset == "" || m.collapsed[g.Key]) && cursor < 0 {
				cursor = len(m.lines)
			}
			m.lines = append(m.lines, line{header: true, key: g.Key, label: g.Label})
			if m.collapsed[g.Key] {
				continue
			}
			for _, cells := range g.Cells {
				name := ""
				if len(cells) > 0 {
					name = cells[0]
				}
				if subset != "" && name == subset && cursor < 0 {
					cursor = len(m.lines)
				}
				m.lines = append(m.lines, line{key: g.Key, subset: name, cells: cells})
			}
		}
	}

	switch {
	case cursor >= 0:
		m.cursor = cursor
	case m.cursor >= len(m.lines):
		m.cursor = len(m.lines) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) loadedFamilies() []string {
	n, err := m.pipeline.Subsets.RowCount()
	if err != nil {
		return m.families
	}

	seen := make(map[string]bool)
	var out []string
	for row := 0; row < n; row++ {
		rec, err := m.pipeline.Subsets.Record(row)
		if err != nil {
			continue
		}
		if f := rec.FamilyName(); f != "" && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}
