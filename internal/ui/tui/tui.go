package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/PizzaHomicide/vidbridge/internal/log"
	"github.com/PizzaHomicide/vidbridge/internal/player"
	"github.com/PizzaHomicide/vidbridge/internal/service"
	"github.com/PizzaHomicide/vidbridge/internal/ui/tui/models"
)

// Run initialises the backend, runs the TUI until the user quits and then releases the backend.
func Run(backend player.Backend, host player.HostContext, library *service.LibraryService) error {
	p := tea.NewProgram(models.NewAppModel(backend, library), tea.WithAltScreen())

	// Events are handed to the program's own goroutine; Send returns once the program has exited
	sink := player.SinkFunc(func(ev player.Event) {
		p.Send(models.PlaybackEventMsg{Event: ev})
	})
	if err := backend.Init(host, sink); err != nil {
		return fmt.Errorf("failed to initialise playback backend: %w", err)
	}

	_, runErr := p.Run()

	// Release only after Run has returned so a delivery blocked in Send cannot hold it up
	if err := backend.Release(); err != nil {
		log.Warn("Failed to release playback backend", "error", err)
	}
	return runErr
}
