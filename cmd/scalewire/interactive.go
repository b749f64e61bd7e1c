package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/substratools/scalewire"
	"github.com/substratools/scalewire/metadata"
	"github.com/substratools/scalewire/storage"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type explorerState int

const (
	statePallets explorerState = iota
	stateEntries
	stateInputs
	stateResult
)

type explorerModel struct {
	client *scalewire.Client
	meta   *metadata.Metadata
	online bool

	state    explorerState
	pallets  []*metadata.Pallet
	palSel   int
	entrySel int
	inputs   []textinput.Model
	focusIdx int
	height   int

	key    string
	result string
	found  bool
	err    error
}

func newExplorerModel(client *scalewire.Client, online bool) *explorerModel {
	meta := client.Metadata()
	pallets := make([]*metadata.Pallet, 0, len(meta.Pallets))
	for i := range meta.Pallets {
		pallets = append(pallets, &meta.Pallets[i])
	}
	return &explorerModel{client: client, meta: meta, online: online, pallets: pallets}
}

// fetchedMsg carries the outcome of a storage fetch or offline decode.
type fetchedMsg struct {
	err    error
	key    string
	result string
	found  bool
}

func (m *explorerModel) Init() tea.Cmd {
	return nil
}

func (m *explorerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == statePallets && m.palSel > 0 {
				m.palSel--
			}
			if m.state == stateEntries && m.entrySel > 0 {
				m.entrySel--
			}

		case "down", "j":
			if m.state == statePallets && m.palSel < len(m.pallets)-1 {
				m.palSel++
			}
			if m.state == stateEntries && m.entrySel < len(m.pallets[m.palSel].Entries)-1 {
				m.entrySel++
			}

		case "enter":
			switch m.state {
			case statePallets:
				if len(m.pallets) > 0 && len(m.pallets[m.palSel].Entries) > 0 {
					m.entrySel = 0
					m.state = stateEntries
				}

			case stateEntries:
				return m.openEntry()

			case stateInputs:
				if m.online {
					return m, m.fetchEntry
				}
				return m, m.decodeInput

			case stateResult:
				m.state = stateEntries
				m.key, m.result, m.err = "", "", nil
			}

		case "tab":
			if m.state == stateInputs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateEntries:
				m.state = statePallets
			case stateInputs:
				m.state = stateEntries
				m.inputs = nil
			case stateResult:
				m.state = stateEntries
				m.key, m.result, m.err = "", "", nil
			}
		}

	case fetchedMsg:
		m.key = msg.key
		m.result = msg.result
		m.found = msg.found
		m.err = msg.err
		m.state = stateResult
	}

	if m.state == stateInputs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// openEntry moves from the entry list into fetching or key input.
// Online plain entries need no keys and fetch immediately.
func (m *explorerModel) openEntry() (tea.Model, tea.Cmd) {
	e := m.currentEntry()
	if m.online && len(e.Hashers) == 0 {
		m.inputs = nil
		return m, m.fetchEntry
	}
	if m.online {
		m.prepareKeyInputs(e)
	} else {
		m.prepareValueInput()
	}
	m.state = stateInputs
	return m, textinput.Blink
}

func (m *explorerModel) currentEntry() *metadata.StorageEntry {
	return &m.pallets[m.palSel].Entries[m.entrySel]
}

func (m *explorerModel) prepareKeyInputs(e *metadata.StorageEntry) {
	m.inputs = make([]textinput.Model, len(e.Hashers))
	for i, h := range e.Hashers {
		ti := textinput.New()
		ti.Placeholder = "SCALE hex"
		ti.Prompt = fmt.Sprintf("key %d (%s): ", i+1, h)
		ti.Width = 48
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *explorerModel) prepareValueInput() {
	ti := textinput.New()
	ti.Placeholder = "storage value hex"
	ti.Prompt = "value: "
	ti.Width = 64
	ti.Focus()
	m.inputs = []textinput.Model{ti}
	m.focusIdx = 0
}

func (m *explorerModel) fetchEntry() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p := m.pallets[m.palSel]
	e := m.currentEntry()

	keys := make([][]byte, len(m.inputs))
	for i := range m.inputs {
		part, err := parseHex(m.inputs[i].Value())
		if err != nil {
			return fetchedMsg{err: fmt.Errorf("key %d: %w", i+1, err)}
		}
		keys[i] = part
	}

	key, err := storage.KeyFor(m.meta, p.Name, e.Name, keys...)
	if err != nil {
		return fetchedMsg{err: err}
	}
	keyHex := "0x" + hex.EncodeToString(key)

	raw, ok, err := m.client.StorageRaw(ctx, key, "")
	if err != nil {
		return fetchedMsg{key: keyHex, err: err}
	}
	if !ok {
		return fetchedMsg{key: keyHex}
	}
	v, err := m.client.DecodeStorage(p.Name, e.Name, raw)
	if err != nil {
		return fetchedMsg{key: keyHex, err: err}
	}
	return fetchedMsg{key: keyHex, result: renderValue(v), found: true}
}

func (m *explorerModel) decodeInput() tea.Msg {
	p := m.pallets[m.palSel]
	e := m.currentEntry()

	raw, err := parseHex(m.inputs[0].Value())
	if err != nil {
		return fetchedMsg{err: err}
	}
	v, err := m.client.DecodeStorage(p.Name, e.Name, raw)
	if err != nil {
		return fetchedMsg{err: err}
	}
	return fetchedMsg{result: renderValue(v), found: true}
}

func (m *explorerModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Chain Explorer"))
	mode := "offline"
	if m.online {
		mode = "connected"
	}
	b.WriteString(fmt.Sprintf(" %s, metadata v%d", mode, m.meta.Version))
	b.WriteString("\n\n")

	switch m.state {
	case statePallets:
		b.WriteString("Select a pallet:\n\n")
		lines := make([]string, len(m.pallets))
		for i, p := range m.pallets {
			label := nameStyle.Render(p.Name)
			if n := len(p.Entries); n > 0 {
				label += typeStyle.Render(fmt.Sprintf(" (%d entries)", n))
			} else {
				label += helpStyle.Render(" (no storage)")
			}
			lines[i] = label
		}
		m.writeList(&b, lines, m.palSel)
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • q quit"))

	case stateEntries:
		p := m.pallets[m.palSel]
		b.WriteString(fmt.Sprintf("Storage entries of %s:\n\n", nameStyle.Render(p.Name)))
		lines := make([]string, len(p.Entries))
		for i := range p.Entries {
			lines[i] = formatEntry(&p.Entries[i])
		}
		m.writeList(&b, lines, m.entrySel)
		b.WriteString("\n")
		if m.online {
			b.WriteString(helpStyle.Render("↑/↓ select • enter fetch • esc back • q quit"))
		} else {
			b.WriteString(helpStyle.Render("↑/↓ select • enter decode • esc back • q quit"))
		}

	case stateInputs:
		p := m.pallets[m.palSel]
		e := m.currentEntry()
		b.WriteString(fmt.Sprintf("%s.%s\n\n", nameStyle.Render(p.Name), nameStyle.Render(e.Name)))
		for i := range m.inputs {
			b.WriteString(m.inputs[i].View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		help := "enter fetch • esc back"
		if !m.online {
			help = "enter decode • esc back"
		}
		if len(m.inputs) > 1 {
			help = "tab next key • " + help
		}
		b.WriteString(helpStyle.Render(help))

	case stateResult:
		p := m.pallets[m.palSel]
		e := m.currentEntry()
		b.WriteString(fmt.Sprintf("%s.%s\n\n", nameStyle.Render(p.Name), nameStyle.Render(e.Name)))
		if m.key != "" {
			b.WriteString(typeStyle.Render("key ") + m.key + "\n\n")
		}
		switch {
		case m.err != nil:
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		case !m.found:
			b.WriteString(helpStyle.Render("(no value under this key)"))
		default:
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • esc back • q quit"))
	}

	return b.String()
}

// writeList renders a cursor list, windowed around the cursor when
// the list is taller than the screen.
func (m *explorerModel) writeList(b *strings.Builder, lines []string, cursor int) {
	visible := m.height - 8
	start, end := 0, len(lines)
	if visible > 0 && len(lines) > visible {
		start = cursor - visible/2
		if start < 0 {
			start = 0
		}
		if start > len(lines)-visible {
			start = len(lines) - visible
		}
		end = start + visible
	}
	for i := start; i < end; i++ {
		if i == cursor {
			b.WriteString(selectedStyle.Render("> " + lines[i]))
		} else {
			b.WriteString("  " + lines[i])
		}
		b.WriteString("\n")
	}
}

func formatEntry(e *metadata.StorageEntry) string {
	if len(e.Hashers) == 0 {
		return nameStyle.Render(e.Name) + " " + typeStyle.Render("plain")
	}
	hs := make([]string, len(e.Hashers))
	for i, h := range e.Hashers {
		hs[i] = h.String()
	}
	return nameStyle.Render(e.Name) + " " + typeStyle.Render("map["+strings.Join(hs, ", ")+"]")
}

func runInteractive(client *scalewire.Client, online bool) error {
	p := tea.NewProgram(newExplorerModel(client, online), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
