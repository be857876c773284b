package domain

// MediaType identifies the local track a mute action applies to.
type MediaType int

const (
	MediaAudio MediaType = iota
	MediaVideo
)

func (t MediaType) String() string {
	switch t {
	case MediaAudio:
		return "audio"
	case MediaVideo:
		return "video"
	default:
		return "unknown"
	}
}
