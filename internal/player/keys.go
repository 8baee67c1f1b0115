package player

import "strings"

// Key is a keyboard shortcut understood by the player, named like the DOM
// KeyboardEvent.key values the UI forwards.
type Key string

const (
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
	KeyArrowUp    Key = "ArrowUp"
	KeyArrowDown  Key = "ArrowDown"
	KeySpace      Key = " "
	KeyEscape     Key = "Escape"
)

var keyAliases = map[string]Key{
	"arrowleft":  KeyArrowLeft,
	"left":       KeyArrowLeft,
	"arrowright": KeyArrowRight,
	"right":      KeyArrowRight,
	"arrowup":    KeyArrowUp,
	"up":         KeyArrowUp,
	"arrowdown":  KeyArrowDown,
	"down":       KeyArrowDown,
	" ":          KeySpace,
	"space":      KeySpace,
	"spacebar":   KeySpace,
	"escape":     KeyEscape,
	"esc":        KeyEscape,
}

// ParseKey normalizes a key name. Unknown names are returned unchanged and
// ignored by HandleKey.
func ParseKey(s string) Key {
	if s == " " {
		return KeySpace
	}
	if k, ok := keyAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k
	}
	return Key(s)
}
