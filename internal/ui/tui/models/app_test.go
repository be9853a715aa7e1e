package models

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PizzaHomicide/vidbridge/internal/config"
	"github.com/PizzaHomicide/vidbridge/internal/domain"
	"github.com/PizzaHomicide/vidbridge/internal/player"
	"github.com/PizzaHomicide/vidbridge/internal/service"
)

// fakeBackend records what the UI asks of it
type fakeBackend struct {
	mu      sync.Mutex
	state   player.State
	loaded  []player.Source
	loadErr error
	plays   int
	pauses  int
}

func (b *fakeBackend) Init(player.HostContext, player.EventSink) error { return nil }
func (b *fakeBackend) SetSurface(player.Surface) error                 { return nil }
func (b *fakeBackend) Release() error                                  { return nil }
func (b *fakeBackend) Kind() string                                    { return "fake" }

func (b *fakeBackend) Load(src player.Source) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadErr != nil {
		return b.loadErr
	}
	b.loaded = append(b.loaded, src)
	b.state = player.StateLoading
	return nil
}

func (b *fakeBackend) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.plays++
	b.state = player.StatePlaying
	return nil
}

func (b *fakeBackend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pauses++
	b.state = player.StatePaused
	return nil
}

func (b *fakeBackend) State() player.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *fakeBackend) setState(s player.State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

var entries = []config.LibraryEntry{
	{Title: "Big Buck Bunny", Locator: "https://cdn.example/bbb.mp4"},
	{Title: "Sintel", Locator: "https://cdn.example/sintel.mpd", DRM: true},
}

func newApp(t *testing.T) (AppModel, *fakeBackend, *service.LibraryService) {
	t.Helper()
	backend := &fakeBackend{state: player.StateInitialized}
	library := service.NewLibraryService(entries, nil)
	require.NoError(t, library.Load(context.Background()))

	app := NewAppModel(backend, library)
	app = update(t, app, tea.WindowSizeMsg{Width: 120, Height: 40})
	app = update(t, app, LibraryLoadedMsg{})
	return app, backend, library
}

func update(t *testing.T, app AppModel, msg tea.Msg) AppModel {
	t.Helper()
	model, _ := app.Update(msg)
	return model.(AppModel)
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLoadSelectedEntry(t *testing.T) {
	app, backend, _ := newApp(t)

	app = update(t, app, key(tea.KeyDown))
	model, cmd := app.Update(key(tea.KeyEnter))
	app = model.(AppModel)

	assert.NotNil(t, cmd, "spinner should start while loading")
	require.Len(t, backend.loaded, 1)
	assert.Equal(t, player.Source{Locator: "https://cdn.example/sintel.mpd", DRM: true}, backend.loaded[0])
	assert.Equal(t, "Sintel", app.playbackModel.Current().Title)
	assert.Contains(t, app.View(), "Loading Sintel")
}

func TestLoadRejected(t *testing.T) {
	app, backend, _ := newApp(t)
	backend.loadErr = player.ErrDRMNotSupported

	model, cmd := app.Update(key(tea.KeyEnter))
	app = model.(AppModel)

	assert.Nil(t, cmd)
	assert.Contains(t, app.View(), "Load rejected")
}

func TestTogglePlayback(t *testing.T) {
	app, backend, _ := newApp(t)

	// Nothing loaded yet
	app = update(t, app, key(tea.KeySpace))
	assert.Zero(t, backend.plays)
	assert.Zero(t, backend.pauses)

	backend.setState(player.StatePlaying)
	app = update(t, app, key(tea.KeySpace))
	assert.Equal(t, 1, backend.pauses)

	app = update(t, app, runes("p"))
	assert.Equal(t, 1, backend.plays)
	assert.Equal(t, player.StatePlaying, backend.State())
}

func TestSearch(t *testing.T) {
	app, backend, _ := newApp(t)

	app = update(t, app, runes("/"))
	require.True(t, app.libraryModel.Searching())

	// Keys go to the search input while searching
	app = update(t, app, runes("sin"))
	app = update(t, app, runes("p"))
	assert.Zero(t, backend.plays)
	assert.Equal(t, "sinp", app.libraryModel.searchInput.Value())

	app = update(t, app, key(tea.KeyBackspace))
	app = update(t, app, key(tea.KeyEnter))
	assert.False(t, app.libraryModel.Searching())
	require.NotNil(t, app.libraryModel.Selected())
	assert.Equal(t, "Sintel", app.libraryModel.Selected().Title)
	assert.Empty(t, backend.loaded, "completing a search does not load")

	// Esc in search mode clears the filter
	app = update(t, app, runes("/"))
	app = update(t, app, key(tea.KeyEsc))
	assert.False(t, app.libraryModel.Searching())
	assert.Len(t, app.libraryModel.filtered, 2)
}

func TestPlaybackEventsAreRecorded(t *testing.T) {
	app, _, library := newApp(t)
	app = update(t, app, key(tea.KeyEnter))

	model, cmd := app.Update(PlaybackEventMsg{Event: player.Event{Code: player.EventPrepared}})
	app = model.(AppModel)
	require.NotNil(t, cmd)

	msg := cmd()
	require.IsType(t, PlaybackRecordedMsg{}, msg)
	recorded := msg.(PlaybackRecordedMsg)
	assert.Equal(t, "config-0", recorded.MediaID)
	assert.Equal(t, domain.OutcomeStarted, recorded.Outcome)
	assert.NoError(t, recorded.Err)
	assert.Equal(t, 1, library.Get("config-0").UserData.PlayCount)

	model, cmd = app.Update(PlaybackEventMsg{Event: player.Event{Code: player.EventError, Err: errors.Join(player.ErrPlayback, errors.New("decoder died"))}})
	app = model.(AppModel)
	require.NotNil(t, cmd)
	assert.Equal(t, domain.OutcomeFailed, cmd().(PlaybackRecordedMsg).Outcome)
	assert.Contains(t, app.View(), "decoder died")

	// Frame ready is only logged
	_, cmd = app.Update(PlaybackEventMsg{Event: player.Event{Code: player.EventFrameReady}})
	assert.Nil(t, cmd)
}

func TestGlobalKeys(t *testing.T) {
	app, _, _ := newApp(t)

	app = update(t, app, key(tea.KeyCtrlH))
	assert.Equal(t, ModalHelp, app.activeModal)
	assert.Contains(t, app.View(), "Library commands:")

	app = update(t, app, key(tea.KeyEsc))
	assert.Equal(t, ModalNone, app.activeModal)

	_, cmd := app.Update(key(tea.KeyCtrlC))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
