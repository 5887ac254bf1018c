// ABOUTME: Interactive TUI wizard for writing the podroll config file.
// ABOUTME: 3-step bubbletea model collecting database path, crawl workers and log level.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Step represents the current wizard step.
type Step int

const (
	StepDatabase Step = iota
	StepWorkers
	StepLogLevel
	StepDone
)

const maxWorkers = 64

var logLevels = []string{"debug", "info", "warn", "error"}

// Answers holds the values collected by the wizard.
type Answers struct {
	DBPath   string
	Workers  int
	LogLevel string
}

// SetupModel is the bubbletea model for the setup wizard.
type SetupModel struct {
	step     Step
	inputs   [3]textinput.Model
	defaults Answers
	err      string
	quitting bool
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// NewSetupModel creates a setup wizard. current pre-fills the inputs and
// defaults is used for any step left blank.
func NewSetupModel(current, defaults Answers) SetupModel {
	values := [3]string{current.DBPath, "", current.LogLevel}
	if current.Workers > 0 {
		values[1] = strconv.Itoa(current.Workers)
	}
	placeholders := [3]string{defaults.DBPath, strconv.Itoa(defaults.Workers), defaults.LogLevel}

	var inputs [3]textinput.Model
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Placeholder = placeholders[i]
		inputs[i].Width = 50
		if values[i] != "" {
			inputs[i].SetValue(values[i])
		}
	}
	inputs[0].Focus()

	return SetupModel{
		step:     StepDatabase,
		inputs:   inputs,
		defaults: defaults,
	}
}

// Init implements tea.Model.
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.step == StepDone {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEscape:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.handleEnter()
		}
	}

	// Forward keys and cursor blinks to the active input
	idx := int(m.step)
	var cmd tea.Cmd
	m.inputs[idx], cmd = m.inputs[idx].Update(msg)
	return m, cmd
}

func (m SetupModel) handleEnter() (tea.Model, tea.Cmd) {
	idx := int(m.step)
	val := strings.TrimSpace(m.inputs[idx].Value())
	m.err = ""

	switch m.step {
	case StepDatabase:
		if val == "" {
			val = m.defaults.DBPath
		}
	case StepWorkers:
		if val == "" {
			val = strconv.Itoa(m.defaults.Workers)
		}
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 || n > maxWorkers {
			m.err = fmt.Sprintf("workers must be a number between 1 and %d", maxWorkers)
			return m, nil
		}
	case StepLogLevel:
		if val == "" {
			val = m.defaults.LogLevel
		}
		val = strings.ToLower(val)
		if !validLevel(val) {
			m.err = "log level must be one of " + strings.Join(logLevels, ", ")
			return m, nil
		}
	}
	m.inputs[idx].SetValue(val)
	m.inputs[idx].Blur()

	m.step++
	if m.step == StepDone {
		return m, tea.Quit
	}
	m.inputs[m.step].Focus()
	return m, textinput.Blink
}

func validLevel(level string) bool {
	for _, l := range logLevels {
		if l == level {
			return true
		}
	}
	return false
}

// View implements tea.Model.
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(brandStyle.Render("   PODROLL"))
	b.WriteString(titleStyle.Render(" - Setup"))
	b.WriteString("\n\n")
	b.WriteString("Configure where podcasts are stored and how crawls run.\n\n")

	switch m.step {
	case StepDatabase:
		b.WriteString(stepStyle.Render("Step 1 of 3: Database Path"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render(fmt.Sprintf("(press Enter for default: %s)", m.defaults.DBPath)))
		b.WriteString("\n")
		b.WriteString(m.inputs[0].View())
		b.WriteString("\n")

	case StepWorkers:
		b.WriteString(fmt.Sprintf("  Database: %s\n\n", m.inputs[0].Value()))
		b.WriteString(stepStyle.Render("Step 2 of 3: Crawl Workers"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render(fmt.Sprintf("(feeds fetched in parallel, 1-%d, default %d)", maxWorkers, m.defaults.Workers)))
		b.WriteString("\n")
		b.WriteString(m.inputs[1].View())
		b.WriteString("\n")

	case StepLogLevel:
		b.WriteString(fmt.Sprintf("  Database: %s\n", m.inputs[0].Value()))
		b.WriteString(fmt.Sprintf("  Workers:  %s\n\n", m.inputs[1].Value()))
		b.WriteString(stepStyle.Render("Step 3 of 3: Log Level"))
		b.WriteString("\n")
		b.WriteString(promptStyle.Render(fmt.Sprintf("(%s, default %s)", strings.Join(logLevels, ", "), m.defaults.LogLevel)))
		b.WriteString("\n")
		b.WriteString(m.inputs[2].View())
		b.WriteString("\n")

	case StepDone:
		b.WriteString(successStyle.Render("Setup complete!"))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("  Database:  %s\n", m.inputs[0].Value()))
		b.WriteString(fmt.Sprintf("  Workers:   %s\n", m.inputs[1].Value()))
		b.WriteString(fmt.Sprintf("  Log level: %s\n", m.inputs[2].Value()))
		b.WriteString("\n")
	}

	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	}

	return b.String()
}

// Result returns the entered values. Only meaningful once ShouldSave is true.
func (m SetupModel) Result() Answers {
	workers, _ := strconv.Atoi(m.inputs[1].Value())
	return Answers{
		DBPath:   m.inputs[0].Value(),
		Workers:  workers,
		LogLevel: m.inputs[2].Value(),
	}
}

// ShouldSave returns true if the wizard completed and the user did not cancel.
func (m SetupModel) ShouldSave() bool {
	return m.step == StepDone && !m.quitting
}
