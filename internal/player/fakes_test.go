package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/PizzaHomicide/vidbridge/internal/media"
)

// recordingSink collects delivered events
type recordingSink struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan Event, 32)}
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
	s.ch <- ev
}

func (s *recordingSink) next(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-s.ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func (s *recordingSink) expectNone(t *testing.T) {
	t.Helper()
	select {
	case ev := <-s.ch:
		t.Fatalf("unexpected event %s (err: %v)", ev.Code, ev.Err)
	case <-time.After(50 * time.Millisecond):
	}
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// fakePlayer is a media.MediaPlayer driven by the test
type fakePlayer struct {
	mu           sync.Mutex
	surface      media.Surface
	dataSource   string
	prepares     int
	starts       int
	pauses       int
	stops        int
	releases     int
	startErr     error
	onPrepared   func()
	onCompletion func()
	onError      func(err error) bool

	// whileSwitching runs inside SetDataSource, before the new source is taken
	whileSwitching func()
}

func (f *fakePlayer) factory() PlayerFactory {
	return func(context.Context) (media.MediaPlayer, error) { return f, nil }
}

func (f *fakePlayer) SetSurface(s media.Surface) error {
	f.mu.Lock()
	f.surface = s
	f.mu.Unlock()
	return nil
}

func (f *fakePlayer) SetDataSource(path string) error {
	if f.whileSwitching != nil {
		f.whileSwitching()
	}
	f.mu.Lock()
	f.dataSource = path
	f.mu.Unlock()
	return nil
}

func (f *fakePlayer) PrepareAsync() error {
	f.mu.Lock()
	f.prepares++
	f.mu.Unlock()
	return nil
}

func (f *fakePlayer) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts++
	return nil
}

func (f *fakePlayer) Pause() error {
	f.mu.Lock()
	f.pauses++
	f.mu.Unlock()
	return nil
}

func (f *fakePlayer) Stop() error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	return nil
}

func (f *fakePlayer) IsPlaying() bool { return false }

func (f *fakePlayer) SetOnPrepared(fn func()) {
	f.mu.Lock()
	f.onPrepared = fn
	f.mu.Unlock()
}

func (f *fakePlayer) SetOnCompletion(fn func()) {
	f.mu.Lock()
	f.onCompletion = fn
	f.mu.Unlock()
}

func (f *fakePlayer) SetOnError(fn func(err error) bool) {
	f.mu.Lock()
	f.onError = fn
	f.mu.Unlock()
}

func (f *fakePlayer) Release() error {
	f.mu.Lock()
	f.releases++
	f.mu.Unlock()
	return nil
}

func (f *fakePlayer) listeners() (func(), func(), func(error) bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onPrepared, f.onCompletion, f.onError
}

func (f *fakePlayer) calls() (starts, pauses, releases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.pauses, f.releases
}

func (f *fakePlayer) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// fakeEngine is a media.Engine driven by the test
type fakeEngine struct {
	mu            sync.Mutex
	caps          media.Capabilities
	item          *media.MediaItem
	itemErr       error
	repeat        media.RepeatMode
	listener      media.EngineListener
	playWhenReady bool
	prepares      int
	plays         int
	pauses        int
	stops         int
	releases      int

	// whileSwitching runs inside SetMediaItem, before the new item is taken
	whileSwitching func()
}

func (f *fakeEngine) factory() EngineFactory {
	return func(context.Context) (media.Engine, error) { return f, nil }
}

func (f *fakeEngine) SetVideoSurface(media.Surface) error { return nil }

func (f *fakeEngine) SetMediaItem(item media.MediaItem) error {
	if f.whileSwitching != nil {
		f.whileSwitching()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.itemErr != nil {
		return f.itemErr
	}
	f.item = &item
	return nil
}

func (f *fakeEngine) Prepare() error {
	f.mu.Lock()
	f.prepares++
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Play() error {
	f.mu.Lock()
	f.plays++
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Pause() error {
	f.mu.Lock()
	f.pauses++
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) SetPlayWhenReady(play bool) {
	f.mu.Lock()
	f.playWhenReady = play
	f.mu.Unlock()
}

func (f *fakeEngine) Stop() error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) SetRepeatMode(m media.RepeatMode) error {
	f.mu.Lock()
	f.repeat = m
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Capabilities() media.Capabilities {
	return f.caps
}

func (f *fakeEngine) SetListener(l media.EngineListener) {
	f.mu.Lock()
	f.listener = l
	f.mu.Unlock()
}

func (f *fakeEngine) Release() error {
	f.mu.Lock()
	f.releases++
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) currentListener() media.EngineListener {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listener
}

func (f *fakeEngine) currentItem() *media.MediaItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.item
}
