package core

import "context"

// Unsubscribe cancels a subscription. Implementations must make it safe to
// call more than once.
type Unsubscribe func()

// Platform abstracts the OS-level picture-in-picture capability.
// Owned by the adapter; the session controller never assumes more than
// this surface.
type Platform interface {
	// Supported reports whether the platform exposes a PiP window entry
	// point. Pure, never blocks, never panics.
	Supported() bool
	// RequestWindow opens the floating window on the given sink. Returns
	// ErrUserGestureRequired when entry was not triggered by direct user
	// interaction.
	RequestWindow(ctx context.Context, sink VideoSink) error
	// CloseWindow closes the floating window if one is open. Best-effort.
	CloseWindow(ctx context.Context) error
	// WindowOpen reports whether a floating window is currently open.
	WindowOpen() bool
	// OnWindowClosed subscribes to the platform's "user closed the window"
	// event.
	OnWindowClosed(func()) Unsubscribe
}

// VisibilitySource reports whether the hosting surface (the tab) is hidden.
type VisibilitySource interface {
	Hidden() bool
	OnChange(func()) Unsubscribe
}
