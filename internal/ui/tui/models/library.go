package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PizzaHomicide/vidbridge/internal/domain"
	"github.com/PizzaHomicide/vidbridge/internal/log"
	"github.com/PizzaHomicide/vidbridge/internal/service"
	kb "github.com/PizzaHomicide/vidbridge/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/vidbridge/internal/ui/tui/styles"
	"github.com/PizzaHomicide/vidbridge/internal/ui/tui/util"
)

// LibraryModel lists the library and lets the user search and pick an entry
type LibraryModel struct {
	library       *service.LibraryService
	width, height int
	loading       bool
	loadError     error
	spinner       spinner.Model
	searchInput   textinput.Model
	searchMode    bool
	cursor        int
	filtered      []*domain.MediaEntry
}

// NewLibraryModel creates a new library model
func NewLibraryModel(library *service.LibraryService) *LibraryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	input := textinput.New()
	input.Placeholder = "Filter library..."
	input.Width = 30

	return &LibraryModel{
		library:     library,
		loading:     true,
		spinner:     s,
		searchInput: input,
	}
}

// loadLibrary loads the library from the service
func loadLibrary(library *service.LibraryService) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := library.Load(ctx); err != nil {
			log.Error("Failed to load library", "error", err)
			return LibraryLoadedMsg{Err: err}
		}
		return LibraryLoadedMsg{}
	}
}

// Init initializes the model
func (m *LibraryModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		loadLibrary(m.library),
	)
}

// Resize updates the model with new dimensions
func (m *LibraryModel) Resize(width, height int) {
	m.width = width
	m.height = height
}

// Searching reports whether key presses go to the search input
func (m *LibraryModel) Searching() bool {
	return m.searchMode
}

// Selected returns the entry under the cursor or nil if there is none
func (m *LibraryModel) Selected() *domain.MediaEntry {
	if len(m.filtered) == 0 || m.cursor >= len(m.filtered) {
		return nil
	}
	return m.filtered[m.cursor]
}

// Update handles messages and updates the model
func (m *LibraryModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchModeKeyMsg(msg)
		}
		return m.handleKeyPress(msg)

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return cmd
		}

	case LibraryLoadedMsg:
		log.Debug("Library loaded", "error", msg.Err)
		m.loading = false
		m.loadError = msg.Err
		m.applyFilter()
	}
	return nil
}

func (m *LibraryModel) handleSearchModeKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch kb.GetActionByKey(msg, kb.ContextSearchMode) {
	case kb.ActionBack:
		// Cancels search, clearing the filter
		m.searchMode = false
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.applyFilter()
		return nil
	case kb.ActionSearchComplete:
		m.searchMode = false
		m.searchInput.Blur()
		return nil
	}

	// Let the text input model handle other keys and filter as we type
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.applyFilter()
	return cmd
}

// handleKeyPress processes navigation keys.  Playback keys are handled by the app model.
func (m *LibraryModel) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	switch kb.GetActionByKey(msg, kb.ContextLibrary) {
	case kb.ActionMoveUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case kb.ActionMoveDown:
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}
	case kb.ActionPageUp:
		m.cursor = max(m.cursor-m.visibleCount(), 0)
	case kb.ActionPageDown:
		m.cursor = max(min(m.cursor+m.visibleCount(), len(m.filtered)-1), 0)
	case kb.ActionMoveTop:
		m.cursor = 0
	case kb.ActionMoveBottom:
		m.cursor = max(len(m.filtered)-1, 0)
	case kb.ActionEnableSearch:
		m.searchMode = true
		return m.searchInput.Focus()
	case kb.ActionRefreshLibrary:
		m.loading = true
		m.loadError = nil
		return tea.Batch(m.spinner.Tick, loadLibrary(m.library))
	}
	return nil
}

// applyFilter applies the search query to the library and keeps the cursor in bounds
func (m *LibraryModel) applyFilter() {
	m.filtered = m.library.Filter(m.searchInput.Value())

	if len(m.filtered) == 0 {
		m.cursor = 0
	} else if m.cursor >= len(m.filtered) {
		m.cursor = len(m.filtered) - 1
	}
}

// visibleCount is the number of entries that fit in the list box
func (m *LibraryModel) visibleCount() int {
	// Header, search line, list header, separator, status panel and footer
	return max(m.height-22, 1)
}

// View renders the library
func (m *LibraryModel) View() string {
	if m.loading {
		return styles.CenteredText(m.width, fmt.Sprintf("%s Loading library...", m.spinner.View()))
	}

	var b strings.Builder
	b.WriteString(m.renderSearchStatus())
	b.WriteString("\n")
	if m.loadError != nil {
		b.WriteString(styles.Error.Render(fmt.Sprintf("Catalog unavailable: %v.  Press 'r' to retry.", m.loadError)))
		b.WriteString("\n")
	}
	b.WriteString(m.renderList())
	return b.String()
}

func (m *LibraryModel) renderSearchStatus() string {
	if m.searchMode {
		return styles.Title.Render("Search: ") + m.searchInput.View()
	}
	if q := m.searchInput.Value(); q != "" {
		return styles.Title.Render("Filter:") + styles.SearchStatus.Render(fmt.Sprintf("%q (%d matches)", q, len(m.filtered)))
	}
	return styles.Title.Render("Library:") + styles.SearchStatus.Render(fmt.Sprintf("%d entries", len(m.filtered)))
}

// renderList renders the visible part of the filtered library
func (m *LibraryModel) renderList() string {
	if len(m.filtered) == 0 {
		return styles.ContentBox(m.width-2, styles.CenteredText(m.width-6, "No entries found"), 1)
	}

	visibleCount := min(len(m.filtered), m.visibleCount())

	// Adjust starting index to keep cursor in view
	startIdx := 0
	if m.cursor >= visibleCount {
		startIdx = m.cursor - visibleCount + 1
	}
	endIdx := min(startIdx+visibleCount, len(m.filtered))

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Width(m.width-4).
		Padding(0, 1)

	selectedStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#7D56F4")).
		Width(m.width-4).
		Padding(0, 1)

	normalStyle := lipgloss.NewStyle().
		Width(m.width-4).
		Padding(0, 1)

	titleWidth, locatorWidth := m.columnWidths()

	var listContent strings.Builder
	headerText := fmt.Sprintf("%-3s %s %s %6s", "DRM", util.PadRight("Title", titleWidth), util.PadRight("Locator", locatorWidth), "Plays")
	listContent.WriteString(headerStyle.Render(headerText) + "\n")
	listContent.WriteString(strings.Repeat("─", max(m.width-6, 0)) + "\n")

	for i := startIdx; i < endIdx; i++ {
		itemText := formatLibraryItem(m.filtered[i], titleWidth, locatorWidth)
		if i == m.cursor {
			listContent.WriteString(selectedStyle.Render(itemText) + "\n")
		} else {
			listContent.WriteString(normalStyle.Render(itemText) + "\n")
		}
	}

	if len(m.filtered) > visibleCount {
		pagination := fmt.Sprintf("Showing %d-%d of %d", startIdx+1, endIdx, len(m.filtered))
		listContent.WriteString(styles.CenteredText(m.width-4, pagination))
	}

	return styles.ContentBox(m.width-2, listContent.String(), 1)
}

// columnWidths splits the row width between the title and locator columns
func (m *LibraryModel) columnWidths() (int, int) {
	// Box borders and padding, the DRM and play count columns and separators
	available := max(m.width-24, 20)
	titleWidth := available / 2
	return titleWidth, available - titleWidth
}

// formatLibraryItem formats a single library row
func formatLibraryItem(entry *domain.MediaEntry, titleWidth, locatorWidth int) string {
	drmIndicator := "[ ]"
	if entry.DRM {
		drmIndicator = "[D]"
	}

	plays := "-"
	if entry.UserData != nil {
		plays = fmt.Sprintf("%d", entry.UserData.PlayCount)
	}

	return fmt.Sprintf("%s %s %s %6s",
		drmIndicator,
		util.PadRight(entry.DisplayTitle(), titleWidth),
		util.PadRight(entry.Locator, locatorWidth),
		plays)
}
