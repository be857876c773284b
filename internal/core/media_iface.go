package core

import (
	"context"
	"image"
)

// VideoSource exposes decoded frames of a participant's video.
// Frame returns nil until the source is decodable; callers must treat a
// nil frame as "fall back to avatar", never as an error.
type VideoSource interface {
	Frame() image.Image
}

// MediaTrack is one track of a captured stream.
type MediaTrack interface {
	Stop()
}

// VideoTrack is a MediaTrack delivering composited frames to subscribers.
type VideoTrack interface {
	MediaTrack
	FPS() int
	OnFrame(func(image.Image)) Unsubscribe
}

// MediaStream groups the tracks produced by a surface capture.
type MediaStream interface {
	Tracks() []MediaTrack
}

// VideoSink is the hidden playback element the platform window is opened
// on. Owned by the session controller; adapters implement it.
type VideoSink interface {
	SetStream(MediaStream)
	// Play starts consuming the attached stream. It may suspend and can be
	// interrupted by a rapid re-entry, in which case it returns
	// ErrPlaybackAborted.
	Play(ctx context.Context) error
	Detach()
}

// AudioLevelTrack exposes level-change events of a participant audio track.
// Levels are in [0,1].
type AudioLevelTrack interface {
	OnLevel(func(level float64)) Unsubscribe
}
