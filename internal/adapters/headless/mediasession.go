package headless

import (
	"sync"

	"github.com/openmeet/pip/internal/core"
)

// MediaSession records the metadata and transport-control state the
// bridge publishes, and lets tests and the demo surface trigger the
// registered actions.
type MediaSession struct {
	mu           sync.Mutex
	title        string
	micActive    bool
	cameraActive bool
	onCamera     func()
	onMicrophone func()
	onHangup     func()
}

func NewMediaSession() *MediaSession {
	return &MediaSession{}
}

func (m *MediaSession) SetMetadata(title string) error {
	m.mu.Lock()
	m.title = title
	m.mu.Unlock()
	return nil
}

func (m *MediaSession) OnToggleCamera(fn func()) {
	m.mu.Lock()
	m.onCamera = fn
	m.mu.Unlock()
}

func (m *MediaSession) OnToggleMicrophone(fn func()) {
	m.mu.Lock()
	m.onMicrophone = fn
	m.mu.Unlock()
}

func (m *MediaSession) OnHangup(fn func()) {
	m.mu.Lock()
	m.onHangup = fn
	m.mu.Unlock()
}

func (m *MediaSession) SetCameraActive(active bool) error {
	m.mu.Lock()
	m.cameraActive = active
	m.mu.Unlock()
	return nil
}

func (m *MediaSession) SetMicrophoneActive(active bool) error {
	m.mu.Lock()
	m.micActive = active
	m.mu.Unlock()
	return nil
}

func (m *MediaSession) Clear() error {
	m.mu.Lock()
	m.title = ""
	m.onCamera = nil
	m.onMicrophone = nil
	m.onHangup = nil
	m.mu.Unlock()
	return nil
}

var _ core.MediaSession = (*MediaSession)(nil)

func (m *MediaSession) Title() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.title
}

func (m *MediaSession) MicrophoneActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.micActive
}

func (m *MediaSession) CameraActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cameraActive
}

// TriggerToggleCamera invokes the registered camera handler, if any.
func (m *MediaSession) TriggerToggleCamera() {
	m.invoke(func(m *MediaSession) func() { return m.onCamera })
}

// TriggerToggleMicrophone invokes the registered microphone handler.
func (m *MediaSession) TriggerToggleMicrophone() {
	m.invoke(func(m *MediaSession) func() { return m.onMicrophone })
}

// TriggerHangup invokes the registered hangup handler.
func (m *MediaSession) TriggerHangup() {
	m.invoke(func(m *MediaSession) func() { return m.onHangup })
}

func (m *MediaSession) invoke(pick func(*MediaSession) func()) {
	m.mu.Lock()
	fn := pick(m)
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// HandlersRegistered reports whether any action handler is currently set.
func (m *MediaSession) HandlersRegistered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onCamera != nil || m.onMicrophone != nil || m.onHangup != nil
}
