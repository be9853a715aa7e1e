package models

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PizzaHomicide/vidbridge/internal/log"
	"github.com/PizzaHomicide/vidbridge/internal/player"
	"github.com/PizzaHomicide/vidbridge/internal/service"
	"github.com/PizzaHomicide/vidbridge/internal/ui/tui/components"
	kb "github.com/PizzaHomicide/vidbridge/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/vidbridge/internal/ui/tui/styles"
	"github.com/PizzaHomicide/vidbridge/internal/version"
)

// AppModel is the main application model that coordinates all child models.  It is the high level wrapper.
type AppModel struct {
	activeView    View  // Track the current active 'main view'
	activeModal   Modal // Track the current active 'modal overlay' if any
	width, height int

	libraryModel  *LibraryModel
	playbackModel *PlaybackModel
	helpModel     *HelpModel
}

// NewAppModel creates the main application model.  The backend must already be initialised; its events are
// expected to arrive as PlaybackEventMsg.
func NewAppModel(backend player.Backend, library *service.LibraryService) AppModel {
	kind := "unknown"
	if k, ok := backend.(interface{ Kind() string }); ok {
		kind = k.Kind()
	}

	return AppModel{
		activeView:    ViewLibrary,
		activeModal:   ModalNone,
		libraryModel:  NewLibraryModel(library),
		playbackModel: NewPlaybackModel(backend, library),
		helpModel:     NewHelpModel(kind),
	}
}

func (m AppModel) Init() tea.Cmd {
	log.Info("Initialising vidbridge TUI")
	return m.libraryModel.Init()
}

// Update handles messages and updates the models as appropriate
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch kb.GetActionByKey(msg, kb.ContextGlobal) {
		case kb.ActionQuit:
			// The backend is released once the program has stopped
			log.Info("Quit command received.  Shutting down...")
			return m, tea.Quit
		case kb.ActionToggleHelp:
			log.Debug("Help requested", "active_view", m.activeView)
			if m.activeModal != ModalNone {
				m.activeModal = ModalNone
			} else {
				m.activeModal = ModalHelp
			}
			return m, nil
		case kb.ActionBack:
			// Handle closing modal when esc is pressed if any is active
			if m.activeModal != ModalNone {
				m.activeModal = ModalNone
				return m, nil
			}
		}

		if m.activeModal == ModalHelp {
			return m, m.helpModel.Update(msg)
		}
		return m.updateLibraryView(msg)

	case tea.MouseMsg:
		if m.activeModal == ModalHelp {
			return m, m.helpModel.Update(msg)
		}
		return m, nil

	case tea.WindowSizeMsg:
		log.Debug("Window size changed", "old_width", m.width, "new_width", msg.Width, "old_height", m.height, "new_height", msg.Height)
		m.width = msg.Width
		m.height = msg.Height

		m.libraryModel.Resize(msg.Width, msg.Height)
		m.playbackModel.Resize(msg.Width)
		m.helpModel.Resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		// Each spinner ignores the other's ticks
		return m, tea.Batch(m.libraryModel.Update(msg), m.playbackModel.Update(msg))

	case LibraryLoadedMsg:
		return m, m.libraryModel.Update(msg)

	case PlaybackEventMsg, PlaybackRecordedMsg:
		return m, m.playbackModel.Update(msg)
	}

	return m, nil
}

// updateLibraryView handles key presses on the library view.  Playback keys go to the backend unless the search
// input has focus.
func (m AppModel) updateLibraryView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.libraryModel.Searching() {
		switch kb.GetActionByKey(msg, kb.ContextLibrary) {
		case kb.ActionLoadSource:
			entry := m.libraryModel.Selected()
			if entry == nil {
				return m, nil
			}
			return m, m.playbackModel.Load(entry)
		case kb.ActionTogglePlayback:
			return m, m.playbackModel.TogglePlayback()
		}
	}
	return m, m.libraryModel.Update(msg)
}

func (m AppModel) View() string {
	// If there is an active modal it takes precedence
	if m.activeModal == ModalHelp {
		return m.helpModel.View()
	}

	header := styles.Header(m.width, "vidbridge "+version.GetVersion())
	footer := components.KeyBindingsBar(m.width, append(
		kb.Lookup(kb.ContextLibrary, kb.ActionLoadSource, kb.ActionTogglePlayback, kb.ActionEnableSearch),
		kb.Lookup(kb.ContextGlobal, kb.ActionToggleHelp, kb.ActionQuit)...,
	))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		"",
		m.libraryModel.View(),
		m.playbackModel.View(),
		strings.TrimRight(footer, "\n"),
	)
}
