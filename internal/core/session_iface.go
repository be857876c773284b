package core

// MediaSession drives the platform's session-level transport-control
// surface (window title plus mute/camera/hangup buttons). A platform
// without such a surface implements this as no-ops; a missing capability
// is a normal condition, not an error.
type MediaSession interface {
	SetMetadata(title string) error
	OnToggleCamera(func())
	OnToggleMicrophone(func())
	OnHangup(func())
	SetCameraActive(active bool) error
	SetMicrophoneActive(active bool) error
	// Clear removes metadata and all registered action handlers.
	Clear() error
}
