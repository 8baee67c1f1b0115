package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/weiawesome/crowd-playback/internal/camera"
	"github.com/weiawesome/crowd-playback/internal/chunk"
	"github.com/weiawesome/crowd-playback/internal/grid"
)

var store = time.FixedZone("store", 8*3600)

// 07:52:54 sits in the 07:00 chunk, index 3 of the default window.
var clicked = time.Date(2024, 3, 15, 7, 52, 54, 0, store)

type fakeSurface struct {
	mu     sync.Mutex
	loads  []LoadRequest
	seeks  []float64
	plays  int
	pauses int
	stops  int
	closed int
}

func (f *fakeSurface) Load(req LoadRequest) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, req)
	return SubscriptionFunc(func() {
		f.mu.Lock()
		f.closed++
		f.mu.Unlock()
	})
}

func (f *fakeSurface) Seek(sec float64) {
	f.mu.Lock()
	f.seeks = append(f.seeks, sec)
	f.mu.Unlock()
}

func (f *fakeSurface) Play() {
	f.mu.Lock()
	f.plays++
	f.mu.Unlock()
}

func (f *fakeSurface) Pause() {
	f.mu.Lock()
	f.pauses++
	f.mu.Unlock()
}

func (f *fakeSurface) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakeSurface) lastLoad(t *testing.T) LoadRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.loads) == 0 {
		t.Fatal("surface never loaded")
	}
	return f.loads[len(f.loads)-1]
}

func (f *fakeSurface) seekCalls() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.seeks...)
}

func newTestNavigator(t *testing.T, cams []string, opts ...NavigatorOption) (*Navigator, *fakeSurface) {
	t.Helper()
	sel := grid.NewSelector(camera.NewStaticSource(cams))
	surface := &fakeSurface{}
	b := chunk.NewBuilder("http://localhost:15000", "", chunk.DefaultRadius)
	return NewNavigator(sel.ForDevice("store-1"), b, surface, opts...), surface
}

// startPlaying activates the clicked point and selects cam.
func startPlaying(t *testing.T, n *Navigator, cam string) {
	t.Helper()
	if _, err := n.ActivateDataPoint(context.Background(), clicked, 42); err != nil {
		t.Fatalf("ActivateDataPoint: %v", err)
	}
	if err := n.SelectCamera(cam); err != nil {
		t.Fatalf("SelectCamera(%s): %v", cam, err)
	}
}

func ready(n *Navigator, duration float64) bool {
	return n.HandleMedia(MediaEvent{Token: n.load.token, Kind: MediaReady, Duration: duration})
}

func TestSelectCameraSeeksAfterReady(t *testing.T) {
	n, surface := newTestNavigator(t, []string{"Cam1", "Cam3"})
	startPlaying(t, n, "Cam3")

	if n.State() != StatePlaying {
		t.Fatalf("state = %v, want playing", n.State())
	}
	s := n.Session()
	if s.Index() != 3 || s.SeekOffset() != 3174 {
		t.Fatalf("index/offset = %d/%v, want 3/3174", s.Index(), s.SeekOffset())
	}

	req := surface.lastLoad(t)
	wantLocator := "http://localhost:15000/api/video/stream?camera=Cam3&timestamp=2024-03-15+07%3A00%3A00"
	if req.Locator != wantLocator || req.Index != 3 {
		t.Fatalf("load = %+v, want locator %s", req, wantLocator)
	}
	if len(surface.seekCalls()) != 0 || surface.plays != 0 {
		t.Fatal("seek or play issued before media was ready")
	}

	if !ready(n, 3600) {
		t.Fatal("ready event was dropped")
	}
	if seeks := surface.seekCalls(); len(seeks) != 1 || seeks[0] != 3174 {
		t.Fatalf("seeks = %v, want [3174]", seeks)
	}
	if surface.plays != 1 {
		t.Fatalf("plays = %d, want 1", surface.plays)
	}

	snap := n.Snapshot()
	if snap.Playback.ChunkInfo != "Hour 4 of 7 - Mar 15, 2024 7:00:00 AM" {
		t.Fatalf("chunk info = %q", snap.Playback.ChunkInfo)
	}
	if snap.Playback.PositionText != "52:54" || snap.Playback.DurationText != "1:00:00" {
		t.Fatalf("time text = %s / %s", snap.Playback.PositionText, snap.Playback.DurationText)
	}
	if snap.Playback.Progress != 88 || snap.Playback.Loading || !snap.Playback.Playing {
		t.Fatalf("playback view = %+v", snap.Playback)
	}
}

func TestSeekSkippedWhenOffsetBeyondDuration(t *testing.T) {
	n, surface := newTestNavigator(t, nil)
	startPlaying(t, n, "Cam1")

	// A short recording: 3174s is past its end.
	ready(n, 600)
	if seeks := surface.seekCalls(); len(seeks) != 0 {
		t.Fatalf("seeks = %v, want none", seeks)
	}
	if n.Snapshot().Playback.Position != 0 {
		t.Fatal("position should stay at the start")
	}
}

func TestNavigationBounds(t *testing.T) {
	n, surface := newTestNavigator(t, nil)
	startPlaying(t, n, "Cam1")

	for i := 0; i < 3; i++ {
		if err := n.PreviousChunk(); err != nil {
			t.Fatal(err)
		}
	}
	if n.Session().Index() != 0 {
		t.Fatalf("index = %d, want 0", n.Session().Index())
	}
	loads := len(surface.loads)
	if err := n.PreviousChunk(); err != nil {
		t.Fatal(err)
	}
	if n.Session().Index() != 0 || len(surface.loads) != loads {
		t.Fatal("PreviousChunk at index 0 must be a no-op")
	}
	if n.Snapshot().Playback.HasPrevious {
		t.Fatal("has_previous on the first chunk")
	}

	for i := 0; i < 6; i++ {
		_ = n.NextChunk()
	}
	last := len(n.Session().Chunks()) - 1
	if n.Session().Index() != last {
		t.Fatalf("index = %d, want %d", n.Session().Index(), last)
	}
	loads = len(surface.loads)
	_ = n.NextChunk()
	if n.Session().Index() != last || len(surface.loads) != loads {
		t.Fatal("NextChunk at the last index must be a no-op")
	}
	if n.Snapshot().Playback.HasNext {
		t.Fatal("has_next on the last chunk")
	}
}

func TestNeighbourChunksStartAtZero(t *testing.T) {
	n, surface := newTestNavigator(t, nil)
	startPlaying(t, n, "Cam1")

	_ = n.NextChunk()
	ready(n, 3600)
	_ = n.PreviousChunk()
	ready(n, 3600)

	if seeks := surface.seekCalls(); len(seeks) != 0 {
		t.Fatalf("seeks = %v, only the initial load seeks", seeks)
	}
	if got := surface.lastLoad(t); got.Index != 3 {
		t.Fatalf("reloaded index = %d, want 3", got.Index)
	}
}

func TestStaleMediaEventsDropped(t *testing.T) {
	n, surface := newTestNavigator(t, nil)
	startPlaying(t, n, "Cam1")

	first := surface.lastLoad(t).Token
	_ = n.NextChunk()
	_ = n.NextChunk()
	current := surface.lastLoad(t).Token

	if current <= first {
		t.Fatalf("tokens not increasing: %d then %d", first, current)
	}
	if surface.closed != 2 {
		t.Fatalf("closed subscriptions = %d, want 2", surface.closed)
	}

	if n.HandleMedia(MediaEvent{Token: first, Kind: MediaReady, Duration: 3600}) {
		t.Fatal("stale ready applied")
	}
	if n.HandleMedia(MediaEvent{Token: first, Kind: MediaFailed, Reason: "Network error"}) {
		t.Fatal("stale failure applied")
	}
	if len(surface.seekCalls()) != 0 || surface.plays != 0 {
		t.Fatal("stale event reached the surface")
	}
	snap := n.Snapshot().Playback
	if !snap.Loading || snap.Error != nil || snap.Index != 5 {
		t.Fatalf("playback = %+v", snap)
	}

	if !n.HandleMedia(MediaEvent{Token: current, Kind: MediaReady, Duration: 3600}) {
		t.Fatal("current ready dropped")
	}
}

func TestPartialFailureIsolation(t *testing.T) {
	n, surface := newTestNavigator(t, nil)
	startPlaying(t, n, "Cam1")

	n.HandleMedia(MediaEvent{Token: n.load.token, Kind: MediaFailed, Reason: "File not found or format not supported"})

	snap := n.Snapshot()
	if snap.State != StatePlaying || snap.Playback.Error == nil || snap.Playback.Error.Index != 3 {
		t.Fatalf("snapshot after failure = %+v", snap.Playback)
	}
	if snap.Playback.Error.Error() != "Video not available for Mar 15, 2024 7:00:00 AM (File not found or format not supported)" {
		t.Fatalf("message = %q", snap.Playback.Error.Error())
	}
	if !snap.Playback.HasNext || !snap.Playback.HasPrevious {
		t.Fatal("navigation disabled by a chunk failure")
	}
	if len(snap.Playback.Chunks) != 7 {
		t.Fatal("chunk window changed by a failure")
	}

	// Every other chunk remains reachable and error free.
	for _, step := range []func() error{n.PreviousChunk, n.PreviousChunk, n.PreviousChunk} {
		if err := step(); err != nil {
			t.Fatal(err)
		}
		ready(n, 3600)
		if e := n.Snapshot().Playback.Error; e != nil {
			t.Fatalf("chunk %d shows error %v", n.Session().Index(), e)
		}
	}
	for i := 0; i < 6; i++ {
		_ = n.NextChunk()
		if n.Session().Index() == 3 {
			if n.Snapshot().Playback.Error != nil {
				t.Fatal("re-navigation should clear the error and reload")
			}
			continue
		}
		ready(n, 3600)
		if e := n.Snapshot().Playback.Error; e != nil {
			t.Fatalf("chunk %d shows error %v", n.Session().Index(), e)
		}
	}
	if n.Session().Index() != 6 {
		t.Fatalf("index = %d, want 6", n.Session().Index())
	}
	if len(surface.loads) != 1+3+6 {
		t.Fatalf("loads = %d, want 10", len(surface.loads))
	}
}

func TestDismissError(t *testing.T) {
	n, _ := newTestNavigator(t, nil)
	startPlaying(t, n, "Cam1")
	n.HandleMedia(MediaEvent{Token: n.load.token, Kind: MediaFailed})

	n.DismissError()
	if n.Snapshot().Playback.Error != nil {
		t.Fatal("dismissed error still shown")
	}
	if !n.load.failure.Dismissed {
		t.Fatal("failure not kept after dismiss")
	}
}

func TestRepeatedReadyKeepsPosition(t *testing.T) {
	n, surface := newTestNavigator(t, nil)
	startPlaying(t, n, "Cam1")
	ready(n, 3600)

	n.HandleMedia(MediaEvent{Token: n.load.token, Kind: MediaTimeUpdate, Position: 3300})
	if !ready(n, 3500) {
		t.Fatal("second ready was dropped")
	}

	p := n.Snapshot().Playback
	if p.Position != 3300 || p.Duration != 3500 || !p.Playing {
		t.Fatalf("playback after second ready = %+v", p)
	}
	if seeks := surface.seekCalls(); len(seeks) != 1 {
		t.Fatalf("seeks = %v, want only the initial seek", seeks)
	}
	if surface.plays != 1 {
		t.Fatalf("plays = %d, want 1", surface.plays)
	}

	// A shorter duration pulls the position back inside the chunk.
	ready(n, 3000)
	if p := n.Snapshot().Playback; p.Position != 3000 {
		t.Fatalf("position = %v, want 3000", p.Position)
	}
}

func TestSkipClampsWithinChunk(t *testing.T) {
	n, surface := newTestNavigator(t, nil)
	startPlaying(t, n, "Cam1")
	ready(n, 3600)

	steps := []struct {
		skip float64
		want float64
	}{
		{30, 3204},
		{1000, 3600},
		{-5000, 0},
		{-30, 0},
	}
	for _, s := range steps {
		if s.skip > 0 {
			_ = n.SkipForward(s.skip)
		} else {
			_ = n.SkipBackward(-s.skip)
		}
		if got := n.Snapshot().Playback.Position; got != s.want {
			t.Fatalf("skip %v: position = %v, want %v", s.skip, got, s.want)
		}
	}
	if n.Session().Index() != 3 {
		t.Fatal("skipping crossed a chunk boundary")
	}
	if seeks := surface.seekCalls(); len(seeks) != 5 {
		t.Fatalf("seeks = %v", seeks)
	}
}

func TestSkipWhileLoadingIsDeferred(t *testing.T) {
	n, surface := newTestNavigator(t, nil)
	startPlaying(t, n, "Cam1")
	_ = n.NextChunk()

	_ = n.SkipForward(30)
	_ = n.SkipForward(30)
	if len(surface.seekCalls()) != 0 {
		t.Fatal("seek issued before ready")
	}
	ready(n, 3600)
	if seeks := surface.seekCalls(); len(seeks) != 1 || seeks[0] != 60 {
		t.Fatalf("seeks = %v, want [60]", seeks)
	}

	// On the initial chunk the deferred skip adds to the seek offset.
	startPlaying(t, n, "Cam1")
	_ = n.SkipBackward(74)
	ready(n, 3600)
	if seeks := surface.seekCalls(); seeks[len(seeks)-1] != 3100 {
		t.Fatalf("seeks = %v, want last 3100", seeks)
	}
}

func TestTogglePlayPause(t *testing.T) {
	n, surface := newTestNavigator(t, nil)
	startPlaying(t, n, "Cam1")

	// Toggled while loading: the chunk must not autoplay.
	_ = n.TogglePlayPause()
	ready(n, 3600)
	if surface.plays != 0 || n.Snapshot().Playback.Playing {
		t.Fatal("autoplay after pause intent")
	}

	_ = n.TogglePlayPause()
	if surface.plays != 1 || !n.Snapshot().Playback.Playing {
		t.Fatal("toggle did not play")
	}
	_ = n.TogglePlayPause()
	if surface.pauses != 1 || n.Snapshot().Playback.Playing {
		t.Fatal("toggle did not pause")
	}
	if n.Session().Index() != 3 {
		t.Fatal("toggle changed the chunk")
	}
}

func TestKeyBindingsOnlyWhilePlaying(t *testing.T) {
	ctx := context.Background()
	n, surface := newTestNavigator(t, nil)

	if handled, _ := n.HandleKey(ctx, KeyArrowDown); handled {
		t.Fatal("key handled while idle")
	}
	if _, err := n.ActivateDataPoint(ctx, clicked, 42); err != nil {
		t.Fatal(err)
	}
	for _, k := range []Key{KeyArrowLeft, KeyArrowRight, KeyArrowUp, KeyArrowDown, KeySpace, KeyEscape} {
		if handled, _ := n.HandleKey(ctx, k); handled {
			t.Fatalf("%q handled on the grid", k)
		}
	}
	if len(surface.loads) != 0 || surface.pauses != 0 {
		t.Fatal("grid keys reached the surface")
	}

	_ = n.SelectCamera("Cam2")
	ready(n, 3600)

	tests := []struct {
		key   Key
		index int
		pos   float64
	}{
		{KeyArrowRight, 3, 3204},
		{KeyArrowLeft, 3, 3174},
		{KeyArrowDown, 4, 0},
		{KeyArrowUp, 3, 0},
	}
	for _, tt := range tests {
		handled, err := n.HandleKey(ctx, tt.key)
		if !handled || err != nil {
			t.Fatalf("%q: handled=%v err=%v", tt.key, handled, err)
		}
		if n.Session().Index() != tt.index || n.load.position != tt.pos {
			t.Fatalf("%q: index/pos = %d/%v, want %d/%v", tt.key, n.Session().Index(), n.load.position, tt.index, tt.pos)
		}
	}

	if handled, _ := n.HandleKey(ctx, Key("q")); handled {
		t.Fatal("unbound key handled")
	}
	if handled, _ := n.HandleKey(ctx, KeyEscape); !handled || n.State() != StateGridSelection {
		t.Fatalf("escape: state = %v", n.State())
	}
	if g := n.Grid(); !g.Timestamp.Equal(clicked) || g.Count != 42 {
		t.Fatalf("grid reopened with %v/%d", g.Timestamp, g.Count)
	}
	if surface.pauses != 1 || surface.stops != 1 {
		t.Fatalf("pauses/stops = %d/%d, want 1/1", surface.pauses, surface.stops)
	}
}

func TestSessionIsolation(t *testing.T) {
	ctx := context.Background()
	n, surface := newTestNavigator(t, nil)
	startPlaying(t, n, "Cam1")
	_ = n.NextChunk()
	_ = n.SkipForward(10)
	first := n.Session()

	if _, err := n.ReturnToGrid(ctx); err != nil {
		t.Fatal(err)
	}
	if n.Session() != nil {
		t.Fatal("session survived ReturnToGrid")
	}
	if err := n.NextChunk(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("NextChunk on grid = %v", err)
	}

	if err := n.SelectCamera("Cam5"); err != nil {
		t.Fatal(err)
	}
	second := n.Session()

	a, b := first.Chunks(), second.Chunks()
	for i := range a {
		if !a[i].StartTime.Equal(b[i].StartTime) {
			t.Fatalf("chunk %d start differs", i)
		}
		if a[i].Locator == b[i].Locator {
			t.Fatalf("chunk %d locator not rebuilt for the new camera", i)
		}
	}
	if second.Index() != 3 || second.SeekOffset() != first.SeekOffset() {
		t.Fatalf("second session index/offset = %d/%v", second.Index(), second.SeekOffset())
	}
	if n.load.pendingSkip != 0 || !n.load.hasSeek {
		t.Fatal("load state carried over between sessions")
	}
	if surface.lastLoad(t).Index != 3 {
		t.Fatal("new session did not load the reference chunk")
	}
}

func TestEmptyGrid(t *testing.T) {
	sel := grid.NewSelector(camera.NewStaticSource(nil), grid.WithDefaults(nil))
	n := NewNavigator(sel.ForDevice("x"), chunk.NewBuilder("", "", 0), &fakeSurface{})

	_, err := n.ActivateDataPoint(context.Background(), clicked, 5)
	if !errors.Is(err, grid.ErrNoCameras) {
		t.Fatalf("err = %v, want ErrNoCameras", err)
	}
	snap := n.Snapshot()
	if snap.State != StateGridSelection || snap.Grid == nil || !snap.Grid.Empty || snap.Grid.Message == "" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if err := n.SelectCamera("Cam1"); !errors.Is(err, grid.ErrUnknownCamera) {
		t.Fatalf("SelectCamera on empty grid = %v", err)
	}
}

func TestSelectCameraGuards(t *testing.T) {
	n, _ := newTestNavigator(t, []string{"Cam1"})
	if err := n.SelectCamera("Cam1"); !errors.Is(err, ErrNoGrid) {
		t.Fatalf("select while idle = %v", err)
	}
	_, _ = n.ActivateDataPoint(context.Background(), clicked, 1)
	if err := n.SelectCamera("Cam2"); !errors.Is(err, grid.ErrUnknownCamera) {
		t.Fatalf("select unknown = %v", err)
	}
}

func TestCloseReleasesSurface(t *testing.T) {
	var seen []TransitionKind
	obs := ObserverFunc(func(tr Transition) { seen = append(seen, tr.Kind) })
	n, surface := newTestNavigator(t, nil, WithObserver(obs))
	startPlaying(t, n, "Cam1")
	token := n.load.token

	n.Close()
	if n.State() != StateIdle || n.Session() != nil || n.Grid() != nil {
		t.Fatal("close left state behind")
	}
	if surface.stops != 1 || surface.closed != 1 {
		t.Fatalf("stops/closed = %d/%d", surface.stops, surface.closed)
	}
	if n.HandleMedia(MediaEvent{Token: token, Kind: MediaReady, Duration: 3600}) {
		t.Fatal("event applied after close")
	}

	want := []TransitionKind{TransitionGridOpened, TransitionSessionStarted, TransitionChunkLoading, TransitionClosed}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", seen, want)
		}
	}
}

func TestParseKey(t *testing.T) {
	tests := map[string]Key{
		"ArrowLeft": KeyArrowLeft,
		"right":     KeyArrowRight,
		" ":         KeySpace,
		"Space":     KeySpace,
		"Esc":       KeyEscape,
		"x":         Key("x"),
	}
	for in, want := range tests {
		if got := ParseKey(in); got != want {
			t.Errorf("ParseKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00"},
		{-3, "00:00"},
		{59.9, "00:59"},
		{3174, "52:54"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.in); got != tt.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
