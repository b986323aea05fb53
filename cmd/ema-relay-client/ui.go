package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type lineKind int

const (
	lineUser lineKind = iota
	lineAssistant
	lineError
	lineInfo
)

type line struct {
	kind lineKind
	text string
}

type model struct {
	endpoint string
	source   string

	viewport viewport.Model
	ready    bool
	width    int
	lines    []line
	status   string
}

func newModel(endpoint, source string) model {
	return model{
		endpoint: endpoint,
		source:   source,
		status:   "listening",
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		height := max(msg.Height-lipgloss.Height(m.header())-lipgloss.Height(m.footer()), 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.width = msg.Width
		m.refresh()
	case serverMsg:
		switch msg.Type {
		case "final":
			m.append(line{kind: lineUser, text: msg.Text})
			m.status = "thinking"
		case "assistant":
			m.append(line{kind: lineAssistant, text: msg.Text})
			m.status = "speaking"
		case "error":
			m.append(line{kind: lineError, text: msg.Message})
		}
	case savedMsg:
		m.append(line{kind: lineInfo, text: "saved " + msg.path})
		m.status = "listening"
	case errMsg:
		m.append(line{kind: lineError, text: msg.err.Error()})
	case disconnectedMsg:
		m.status = "disconnected"
		m.append(line{kind: lineInfo, text: "relay closed the connection, press q to quit"})
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *model) append(l line) {
	m.lines = append(m.lines, l)
	m.refresh()
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.render())
	m.viewport.GotoBottom()
}

func (m model) render() string {
	width := max(m.width, 20)
	rendered := make([]string, 0, len(m.lines))
	for _, l := range m.lines {
		var text string
		switch l.kind {
		case lineUser:
			text = userStyle.Render("you  ") + l.text
		case lineAssistant:
			text = assistantStyle.Render("ema  ") + l.text
		case lineError:
			text = errorStyle.Render("error ") + l.text
		default:
			text = mutedStyle.Render(l.text)
		}
		rendered = append(rendered, wordwrap.String(text, width))
	}
	return strings.Join(rendered, "\n")
}

func (m model) header() string {
	return titleStyle.Render("ema-relay") + mutedStyle.Render(fmt.Sprintf("  %s  from %s", m.endpoint, m.source))
}

func (m model) footer() string {
	return mutedStyle.Render(fmt.Sprintf("%s  q to quit", m.status))
}

func (m model) View() string {
	if !m.ready {
		return "connecting..."
	}
	return m.header() + "\n" + m.viewport.View() + "\n" + m.footer()
}
