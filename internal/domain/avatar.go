package domain

// DefaultAvatarColor is used when no initials are available.
const DefaultAvatarColor = "#22242A"

// avatarPalette mirrors the stage avatar backgrounds.
var avatarPalette = []string{
	"#6A50D3",
	"#FF9B42",
	"#DF486F",
	"#73348C",
	"#B23683",
	"#F96E57",
	"#4380E2",
	"#2AA076",
	"#00A8B3",
}

// AvatarColor picks a deterministic background color for a set of initials,
// so the same participant always renders with the same avatar.
func AvatarColor(initials string) string {
	if initials == "" {
		return DefaultAvatarColor
	}
	sum := 0
	for _, r := range initials {
		sum += int(r)
	}
	return avatarPalette[sum%len(avatarPalette)]
}
