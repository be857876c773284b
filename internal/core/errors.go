package core

import "errors"

var (
	// ErrUnsupported is returned when the platform lacks a
	// picture-in-picture capability.
	ErrUnsupported = errors.New("picture-in-picture is not supported on this platform")

	// ErrUserGestureRequired is returned by Platform.RequestWindow when the
	// platform refused entry because the call was not triggered by direct
	// user interaction. Expected for automation-triggered entry.
	ErrUserGestureRequired = errors.New("picture-in-picture requires a user gesture")

	// ErrPlaybackAborted is returned by VideoSink.Play when playback was
	// interrupted by a rapid re-entry. Expected under fast tab-switch
	// storms.
	ErrPlaybackAborted = errors.New("sink playback aborted")
)
