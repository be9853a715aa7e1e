package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PizzaHomicide/vidbridge/internal/domain"
	"github.com/PizzaHomicide/vidbridge/internal/log"
	"github.com/PizzaHomicide/vidbridge/internal/player"
	"github.com/PizzaHomicide/vidbridge/internal/service"
	"github.com/PizzaHomicide/vidbridge/internal/ui/tui/styles"
	"github.com/PizzaHomicide/vidbridge/internal/ui/tui/util"
)

const maxEventLogLines = 6

// PlaybackModel drives the backend and shows what it reports
type PlaybackModel struct {
	backend player.Backend
	library *service.LibraryService
	width   int
	spinner spinner.Model
	current *domain.MediaEntry
	events  []string
	now     func() time.Time
}

// NewPlaybackModel creates a playback model for an initialised backend
func NewPlaybackModel(backend player.Backend, library *service.LibraryService) *PlaybackModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#9D86FF"))

	return &PlaybackModel{
		backend: backend,
		library: library,
		spinner: s,
		now:     time.Now,
	}
}

// Resize updates the width of the status panel
func (m *PlaybackModel) Resize(width int) {
	m.width = width
}

// Current returns the entry that was loaded last
func (m *PlaybackModel) Current() *domain.MediaEntry {
	return m.current
}

// Load hands the entry to the backend.  The outcome arrives later as a PlaybackEventMsg.
func (m *PlaybackModel) Load(entry *domain.MediaEntry) tea.Cmd {
	src := player.Source{Locator: entry.Locator, DRM: entry.DRM}
	log.Info("Loading library entry", "id", entry.ID, "title", entry.Title, "source", src)

	m.current = entry
	if err := m.backend.Load(src); err != nil {
		m.logLine(styles.Error.Render(fmt.Sprintf("Load rejected: %v", err)))
		return nil
	}
	m.logLine(fmt.Sprintf("Loading %s", entry.DisplayTitle()))
	return m.spinner.Tick
}

// TogglePlayback pauses a playing backend and resumes a ready or paused one
func (m *PlaybackModel) TogglePlayback() tea.Cmd {
	var err error
	switch m.backend.State() {
	case player.StatePlaying:
		err = m.backend.Pause()
	case player.StateReady, player.StatePaused:
		err = m.backend.Play()
	default:
		log.Debug("Nothing to play or pause", "state", m.backend.State())
		return nil
	}
	if err != nil {
		log.Warn("Failed to toggle playback", "error", err)
		m.logLine(styles.Error.Render(err.Error()))
	}
	return nil
}

// Update handles spinner ticks, backend events and recorded outcomes
func (m *PlaybackModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		// Let the spinner stop once loading is over
		if m.backend.State() == player.StateLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return cmd
		}

	case PlaybackEventMsg:
		return m.handleEvent(msg.Event)

	case PlaybackRecordedMsg:
		if msg.Err != nil {
			log.Warn("Failed to record playback", "id", msg.MediaID, "outcome", msg.Outcome, "error", msg.Err)
			m.logLine(styles.Error.Render(fmt.Sprintf("Could not record %s: %v", strings.ToLower(string(msg.Outcome)), msg.Err)))
		}
	}
	return nil
}

func (m *PlaybackModel) handleEvent(ev player.Event) tea.Cmd {
	log.Debug("Playback event received", "code", ev.Code, "error", ev.Err)

	switch ev.Code {
	case player.EventPrepared:
		m.logLine(styles.Success.Render("Prepared, playback started"))
		return m.record(domain.OutcomeStarted)
	case player.EventFrameReady:
		m.logLine("First frame rendered")
	case player.EventCompleted:
		m.logLine(styles.Success.Render("Playback completed"))
		return m.record(domain.OutcomeCompleted)
	case player.EventError:
		m.logLine(styles.Error.Render(fmt.Sprintf("Error: %v", ev.Err)))
		return m.record(domain.OutcomeFailed)
	default:
		m.logLine(ev.Code.String())
	}
	return nil
}

// record stores the outcome of the current entry in the background
func (m *PlaybackModel) record(outcome domain.PlaybackOutcome) tea.Cmd {
	if m.current == nil || m.library == nil {
		return nil
	}
	id := m.current.ID
	library := m.library
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := library.RecordPlayback(ctx, id, outcome)
		return PlaybackRecordedMsg{MediaID: id, Outcome: outcome, Err: err}
	}
}

func (m *PlaybackModel) logLine(line string) {
	m.events = append(m.events, fmt.Sprintf("%s  %s", m.now().Format("15:04:05"), line))
	if len(m.events) > maxEventLogLines {
		m.events = m.events[len(m.events)-maxEventLogLines:]
	}
}

// View renders the status panel with the event log below it
func (m *PlaybackModel) View() string {
	state := m.backend.State()

	title := "Nothing loaded"
	if m.current != nil {
		title = m.current.DisplayTitle()
	}
	title = util.TruncateString(title, max(m.width-30, 10))

	status := state.String()
	if state == player.StateLoading {
		status = m.spinner.View() + " " + status
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Now: "))
	b.WriteString(title)
	b.WriteString("   ")
	b.WriteString(styles.Muted.Render("State: "))
	b.WriteString(status)
	b.WriteString("\n\n")
	if len(m.events) == 0 {
		b.WriteString(styles.Muted.Render("No events yet"))
	}
	for i, line := range m.events {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}

	return styles.ContentBox(m.width-2, b.String(), 0)
}
