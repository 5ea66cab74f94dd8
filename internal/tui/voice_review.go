// Package tui implements the interactive voice-review step shown after
// speaker assignment and voice remapping: it lists every character the
// collaborator discovered alongside the voice the allocator chose for it and
// lets the operator retarget any of them before synthesis begins.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/textcast/orchestrator/internal/orchestrator"
	"github.com/textcast/orchestrator/pkg/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	headerBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	nameStyle = lipgloss.NewStyle().
			Width(24).
			MarginRight(2)

	voiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	editingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#444444"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 3)

	buttonDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(0, 3)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)
)

// VoiceReviewer presents the voice map chosen for a conversion and lets the
// operator hand-edit any entry before the pipeline resumes past the
// RemapVoices pause.
type VoiceReviewer struct {
	in  io.Reader
	out io.Writer
}

// NewVoiceReviewer builds a reviewer reading keystrokes from in and
// rendering to out.
func NewVoiceReviewer(in io.Reader, out io.Writer) *VoiceReviewer {
	return &VoiceReviewer{in: in, out: out}
}

// Review implements orchestrator.Callbacks.AwaitVoiceReview. When out is not
// an interactive terminal (piped output, a CI log, a test harness) it
// accepts the generated map unchanged rather than blocking on input that
// will never arrive.
func (r *VoiceReviewer) Review(ctx context.Context, characters []types.Character, voiceMap types.ConversionVoiceMap) (orchestrator.VoiceReviewResult, error) {
	if f, ok := r.out.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		return orchestrator.VoiceReviewResult{VoiceMap: voiceMap}, nil
	}

	model := newReviewModel(characters, voiceMap)
	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithInput(r.in), tea.WithOutput(r.out))
	result, err := program.Run()
	if err != nil {
		return orchestrator.VoiceReviewResult{}, fmt.Errorf("voice review TUI: %w", err)
	}

	final := result.(reviewModel)
	if final.cancelled {
		return orchestrator.VoiceReviewResult{VoiceMap: voiceMap}, nil
	}
	return orchestrator.VoiceReviewResult{VoiceMap: final.resultMap()}, nil
}

// row is one editable character/voice pairing in the review list.
type row struct {
	key     string // canonical name or sentinel key into the voice map
	display string
	value   string
	editing bool
}

type reviewModel struct {
	rows      []row
	cursor    int
	confirmed bool
	cancelled bool
	err       error
}

func newReviewModel(characters []types.Character, voiceMap types.ConversionVoiceMap) reviewModel {
	byName := make(map[string]types.Character, len(characters))
	for _, c := range characters {
		byName[c.CanonicalName] = c
	}

	keys := make([]string, 0, len(voiceMap))
	for k := range voiceMap {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == types.Narrator {
			return true
		}
		if keys[j] == types.Narrator {
			return false
		}
		return keys[i] < keys[j]
	})

	rows := make([]row, 0, len(keys))
	for _, k := range keys {
		display := k
		if c, ok := byName[k]; ok && len(c.Variations) > 0 {
			display = fmt.Sprintf("%s (%s)", k, strings.Join(c.Variations, ", "))
		}
		rows = append(rows, row{key: k, display: display, value: string(voiceMap[k])})
	}

	return reviewModel{rows: rows}
}

func (m reviewModel) resultMap() types.ConversionVoiceMap {
	out := make(types.ConversionVoiceMap, len(m.rows))
	for _, r := range m.rows {
		out[r.key] = types.VoiceID(r.value)
	}
	return out
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) confirmIdx() int {
	return len(m.rows)
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if len(m.rows) > 0 && m.cursor < len(m.rows) && m.rows[m.cursor].editing {
		return m.updateEditing(keyMsg)
	}

	switch keyMsg.String() {
	case "ctrl+c", "q", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < m.confirmIdx() {
			m.cursor++
		}
	case "enter", " ":
		if m.cursor == m.confirmIdx() {
			m.confirmed = true
			return m, tea.Quit
		}
		m.rows[m.cursor].editing = true
	}
	return m, nil
}

func (m reviewModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	r := &m.rows[m.cursor]
	switch msg.String() {
	case "enter":
		r.editing = false
	case "esc":
		r.editing = false
	case "backspace":
		if len(r.value) > 0 {
			r.value = r.value[:len(r.value)-1]
		}
	case "ctrl+u":
		r.value = ""
	default:
		if msg.Type == tea.KeyRunes {
			r.value += string(msg.Runes)
		}
	}
	return m, nil
}

func (m reviewModel) View() string {
	var b strings.Builder

	b.WriteString(headerBorder.Render(titleStyle.Render("Voice review")))
	b.WriteString("\n")

	for i, r := range m.rows {
		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
		}
		label := nameStyle.Render(r.display)
		var value string
		if r.editing {
			value = editingStyle.Render(r.value + "_")
		} else {
			value = voiceStyle.Render(r.value)
		}
		b.WriteString(prefix + label + " " + value + "\n")
	}

	b.WriteString("\n")
	if m.cursor == m.confirmIdx() {
		b.WriteString("  " + buttonStyle.Render(" Accept and continue "))
	} else {
		b.WriteString("  " + buttonDimStyle.Render(" Accept and continue "))
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString("\n" + m.err.Error() + "\n")
	}

	b.WriteString(helpStyle.Render("  j/k to navigate | enter to edit a voice id | enter on Accept to continue | q to cancel"))
	b.WriteString("\n")

	return b.String()
}
