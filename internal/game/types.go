package game

import "fmt"

// GameType selects the room variant: a solo board, a single shared cooperative
// board, or the timed red-versus-blue battle mode.
type GameType int

const (
	GameTypeSolo GameType = iota
	GameTypeCooperative
	GameTypeBattle
)

var gameTypeNames = map[GameType]string{
	GameTypeSolo:        "SOLO",
	GameTypeCooperative: "COOPERATIVE",
	GameTypeBattle:      "BATTLE",
}

func (t GameType) String() string {
	if name, ok := gameTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("GAME_TYPE_%d", int(t))
}

// MarshalText makes game types serialize as their wire names.
func (t GameType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseGameType resolves a wire name; unknown names default to BATTLE, the
// room type the create endpoint has always produced.
func ParseGameType(s string) GameType {
	for t, name := range gameTypeNames {
		if name == s {
			return t
		}
	}
	return GameTypeBattle
}

// Timed reports whether rooms of this type run against a fixed duration.
func (t GameType) Timed() bool {
	return t == GameTypeBattle
}
