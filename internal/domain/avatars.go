package domain

// Avatars is the fixed avatar set; Player.AvatarID indexes into it.
var Avatars = [...]string{
	"🦊", "🐼", "🦁", "🐸", "🐵", "🦄", "🐲", "🦋",
	"🐙", "🦜", "🐺", "🦈", "🐯", "🦉", "🐨", "🦩",
}

const fallbackAvatar = "🎮"

// Avatar returns the emoji for id, or a fallback when id is out of range.
func Avatar(id int) string {
	if id < 0 || id >= len(Avatars) {
		return fallbackAvatar
	}
	return Avatars[id]
}

// ValidAvatar reports whether id selects an avatar.
func ValidAvatar(id int) bool {
	return id >= 0 && id < len(Avatars)
}
