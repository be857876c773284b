package pip

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/openmeet/pip/internal/core"
	"github.com/openmeet/pip/internal/domain"
)

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached within %v: %s", timeout, msg)
}

type fakePlatform struct {
	mu           sync.Mutex
	supported    bool
	open         bool
	requestErr   error
	requestGate  chan struct{} // when set, RequestWindow blocks on it
	requestCalls int
	closeCalls   int
	subs         map[int]func()
	nextID       int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{supported: true, subs: make(map[int]func())}
}

func (p *fakePlatform) Supported() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.supported
}

func (p *fakePlatform) RequestWindow(ctx context.Context, sink core.VideoSink) error {
	p.mu.Lock()
	p.requestCalls++
	gate := p.requestGate
	err := p.requestErr
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.open = true
	p.mu.Unlock()
	return nil
}

func (p *fakePlatform) CloseWindow(ctx context.Context) error {
	p.mu.Lock()
	p.closeCalls++
	p.open = false
	p.mu.Unlock()
	return nil
}

func (p *fakePlatform) WindowOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *fakePlatform) OnWindowClosed(fn func()) core.Unsubscribe {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *fakePlatform) fireUserClose() {
	p.mu.Lock()
	p.open = false
	fns := make([]func(), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (p *fakePlatform) subscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

type fakeSink struct {
	mu          sync.Mutex
	stream      core.MediaStream
	playing     bool
	playErr     error
	detachCalls int
}

func (s *fakeSink) SetStream(stream core.MediaStream) {
	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()
}

func (s *fakeSink) Play(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.playErr; err != nil {
		s.playErr = nil
		return err
	}
	s.playing = true
	return nil
}

func (s *fakeSink) Detach() {
	s.mu.Lock()
	s.stream = nil
	s.playing = false
	s.detachCalls++
	s.mu.Unlock()
}

func (s *fakeSink) attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

type fakeSession struct {
	mu         sync.Mutex
	title      string
	mic        bool
	camera     bool
	onCamera   func()
	onMic      func()
	onHangup   func()
	clearCalls int
}

func (m *fakeSession) SetMetadata(title string) error {
	m.mu.Lock()
	m.title = title
	m.mu.Unlock()
	return nil
}

func (m *fakeSession) OnToggleCamera(fn func())     { m.mu.Lock(); m.onCamera = fn; m.mu.Unlock() }
func (m *fakeSession) OnToggleMicrophone(fn func()) { m.mu.Lock(); m.onMic = fn; m.mu.Unlock() }
func (m *fakeSession) OnHangup(fn func())           { m.mu.Lock(); m.onHangup = fn; m.mu.Unlock() }

func (m *fakeSession) SetCameraActive(active bool) error {
	m.mu.Lock()
	m.camera = active
	m.mu.Unlock()
	return nil
}

func (m *fakeSession) SetMicrophoneActive(active bool) error {
	m.mu.Lock()
	m.mic = active
	m.mu.Unlock()
	return nil
}

func (m *fakeSession) Clear() error {
	m.mu.Lock()
	m.title = ""
	m.onCamera = nil
	m.onMic = nil
	m.onHangup = nil
	m.clearCalls++
	m.mu.Unlock()
	return nil
}

func (m *fakeSession) handlersRegistered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onCamera != nil || m.onMic != nil || m.onHangup != nil
}

func (m *fakeSession) triggerCamera() {
	m.mu.Lock()
	fn := m.onCamera
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *fakeSession) triggerMicrophone() {
	m.mu.Lock()
	fn := m.onMic
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *fakeSession) triggerHangup() {
	m.mu.Lock()
	fn := m.onHangup
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type fakeLevelTrack struct {
	mu      sync.Mutex
	handler func(float64)
	binds   int
	unbinds int
}

func (t *fakeLevelTrack) OnLevel(fn func(float64)) core.Unsubscribe {
	t.mu.Lock()
	t.handler = fn
	t.binds++
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		t.handler = nil
		t.unbinds++
		t.mu.Unlock()
	}
}

func (t *fakeLevelTrack) emit(level float64) {
	t.mu.Lock()
	fn := t.handler
	t.mu.Unlock()
	if fn != nil {
		fn(level)
	}
}

func (t *fakeLevelTrack) counts() (binds, unbinds int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.binds, t.unbinds
}

type fakeSource struct {
	mu    sync.Mutex
	frame image.Image
}

func (f *fakeSource) setFrame(frame image.Image) {
	f.mu.Lock()
	f.frame = frame
	f.mu.Unlock()
}

func (f *fakeSource) Frame() image.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}

type fakeReader struct {
	mu     sync.Mutex
	focal  *core.FocalView
	tracks map[domain.ParticipantID]core.AudioLevelTrack
	muted  map[domain.MediaType]bool
	joined bool
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		tracks: make(map[domain.ParticipantID]core.AudioLevelTrack),
		muted:  make(map[domain.MediaType]bool),
		joined: true,
	}
}

func (r *fakeReader) setFocal(view *core.FocalView) {
	r.mu.Lock()
	r.focal = view
	r.mu.Unlock()
}

func (r *fakeReader) FocalParticipant() (core.FocalView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.focal == nil {
		return core.FocalView{}, false
	}
	return *r.focal, true
}

func (r *fakeReader) LocalMuted(media domain.MediaType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.muted[media]
}

func (r *fakeReader) setMuted(media domain.MediaType, muted bool) {
	r.mu.Lock()
	r.muted[media] = muted
	r.mu.Unlock()
}

func (r *fakeReader) AudioTrack(id domain.ParticipantID) (core.AudioLevelTrack, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	track, ok := r.tracks[id]
	return track, ok
}

func (r *fakeReader) InConference() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joined
}

func (r *fakeReader) setJoined(joined bool) {
	r.mu.Lock()
	r.joined = joined
	r.mu.Unlock()
}

type fakeDispatcher struct {
	mu         sync.Mutex
	mutes      []string
	leaveCalls int
}

func (d *fakeDispatcher) MuteLocal(media domain.MediaType, muted bool) {
	d.mu.Lock()
	state := "unmute"
	if muted {
		state = "mute"
	}
	d.mutes = append(d.mutes, media.String()+":"+state)
	d.mu.Unlock()
}

func (d *fakeDispatcher) LeaveConference() {
	d.mu.Lock()
	d.leaveCalls++
	d.mu.Unlock()
}

func (d *fakeDispatcher) lastMute() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.mutes) == 0 {
		return ""
	}
	return d.mutes[len(d.mutes)-1]
}

type fakeVisibility struct {
	mu     sync.Mutex
	hidden bool
	subs   map[int]func()
	nextID int
}

func newFakeVisibility() *fakeVisibility {
	return &fakeVisibility{subs: make(map[int]func())}
}

func (v *fakeVisibility) Hidden() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hidden
}

func (v *fakeVisibility) OnChange(fn func()) core.Unsubscribe {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
	}
}

func (v *fakeVisibility) setHidden(hidden bool) {
	v.mu.Lock()
	v.hidden = hidden
	fns := make([]func(), 0, len(v.subs))
	for _, fn := range v.subs {
		fns = append(fns, fn)
	}
	v.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (v *fakeVisibility) subscriberCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

type controllerFixture struct {
	ctrl       *Controller
	platform   *fakePlatform
	sink       *fakeSink
	session    *fakeSession
	reader     *fakeReader
	dispatcher *fakeDispatcher
}

func newControllerFixture() *controllerFixture {
	platform := newFakePlatform()
	sink := &fakeSink{}
	session := &fakeSession{}
	reader := newFakeReader()
	dispatcher := &fakeDispatcher{}
	ctrl := NewController(Deps{
		Platform:   platform,
		Sink:       sink,
		Session:    session,
		Reader:     reader,
		Dispatcher: dispatcher,
	}, Options{Width: 320, Height: 180, FPS: 60})
	return &controllerFixture{
		ctrl:       ctrl,
		platform:   platform,
		sink:       sink,
		session:    session,
		reader:     reader,
		dispatcher: dispatcher,
	}
}

func testParticipant(id, name string) domain.Participant {
	return domain.Participant{ID: domain.ParticipantID(id), Name: name}
}
