package puzzle

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// ItemType identifies one of the eight power-up items. The numeric values are
// the item numbers clients send in use-item commands.
type ItemType int

const (
	ItemHint ItemType = iota + 1
	ItemEarthquake
	ItemMirror
	ItemFrame
	ItemShield
	ItemMagnet
	ItemRocket
	ItemFire
)

var itemNames = map[ItemType]string{
	ItemHint:       "HINT",
	ItemEarthquake: "EARTHQUAKE",
	ItemMirror:     "MIRROR",
	ItemFrame:      "FRAME",
	ItemShield:     "SHIELD",
	ItemMagnet:     "MAGNET",
	ItemRocket:     "ROCKET",
	ItemFire:       "FIRE",
}

func (t ItemType) String() string {
	if name, ok := itemNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ITEM_%d", int(t))
}

// ItemByNumber maps a client item number to its type.
func ItemByNumber(n int) (ItemType, bool) {
	t := ItemType(n)
	_, ok := itemNames[t]
	return t, ok
}

// EffectResult reports what an item effect did to the board.
type EffectResult struct {
	Item     ItemType `json:"item"`
	Revealed []int    `json:"revealed,omitempty"` // hint: the exposed pair
	Matched  []int    `json:"matched,omitempty"`  // frame, magnet
	Deleted  []int    `json:"deleted,omitempty"`  // rocket, fire
}

// An effectFunc applies one item's behavior to a board. Effects hold no state
// of their own; adding an item means adding a type and a table entry.
type effectFunc func(*Board) (EffectResult, error)

var effectTable = map[ItemType]effectFunc{
	ItemHint:       hintEffect,
	ItemEarthquake: earthquakeEffect,
	ItemMirror:     noBoardEffect(ItemMirror),
	ItemFrame:      frameEffect,
	ItemShield:     noBoardEffect(ItemShield),
	ItemMagnet:     magnetEffect,
	ItemRocket:     rocketEffect,
	ItemFire:       fireEffect,
}

// UseItem applies the item's effect to the board and consumes one matching
// inventory entry, if one is held.
func (b *Board) UseItem(t ItemType) (EffectResult, error) {
	effect, ok := effectTable[t]
	if !ok {
		return EffectResult{}, fmt.Errorf("puzzle: unknown item type %d", int(t))
	}
	res, err := effect(b)
	if err != nil {
		return EffectResult{}, err
	}
	b.consumeItem(t)
	return res, nil
}

// hintEffect reveals the first horizontally adjacent pair of unmatched pieces
// in row-major order without matching them.
func hintEffect(b *Board) (EffectResult, error) {
	res := EffectResult{Item: ItemHint}
	if left, right, ok := b.firstUnmatchedHorizontalPair(); ok {
		res.Revealed = []int{left.Index, right.Index}
	}
	return res, nil
}

// earthquakeEffect reshuffles the board, discarding every current match.
func earthquakeEffect(b *Board) (EffectResult, error) {
	b.RandomArrange()
	return EffectResult{Item: ItemEarthquake}, nil
}

// noBoardEffect covers mirror and shield, which the presentation or battle
// layer implements; the board takes no action.
func noBoardEffect(t ItemType) effectFunc {
	return func(*Board) (EffectResult, error) {
		return EffectResult{Item: t}, nil
	}
}

// frameEffect auto-matches every currently unmatched border piece in a single
// AddPieces call.
func frameEffect(b *Board) (EffectResult, error) {
	targets := b.borderIndices()
	if len(targets) == 0 {
		return EffectResult{Item: ItemFrame}, nil
	}
	res, err := b.AddPieces(targets)
	if err != nil {
		return EffectResult{}, err
	}
	return EffectResult{Item: ItemFrame, Matched: res.Added}, nil
}

// magnetEffect picks the first unmatched piece plus its unmatched correct
// neighbors and matches all of them at once.
func magnetEffect(b *Board) (EffectResult, error) {
	p, ok := b.firstUnmatched()
	if !ok {
		return EffectResult{Item: ItemMagnet}, nil
	}
	targets := []int{p.Index}
	for _, n := range p.neighbors() {
		coord := b.coords[n]
		if !b.matched[coord[0]][coord[1]] {
			targets = append(targets, n)
		}
	}
	res, err := b.AddPieces(targets)
	if err != nil {
		return EffectResult{}, err
	}
	return EffectResult{Item: ItemMagnet, Matched: res.Added}, nil
}

// rocketEffect deletes every piece of the single largest bundle.
func rocketEffect(b *Board) (EffectResult, error) {
	bu := b.largestBundle()
	if bu == nil {
		return EffectResult{Item: ItemRocket}, nil
	}
	targets := bu.Members()
	for _, idx := range targets {
		if err := b.DeletePiece(idx); err != nil {
			return EffectResult{}, err
		}
	}
	return EffectResult{Item: ItemRocket, Deleted: targets}, nil
}

// fireEffect picks one random piece of the largest bundle, deletes it together
// with its correctly adjacent bundle-mates, then re-derives the bundles.
func fireEffect(b *Board) (EffectResult, error) {
	bu := b.largestBundle()
	if bu == nil {
		return EffectResult{Item: ItemFire}, nil
	}
	members := bu.Members()
	target, err := b.PieceByIndex(members[b.Random(len(members)-1)])
	if err != nil {
		return EffectResult{}, err
	}

	targets := []int{target.Index}
	for _, n := range target.neighbors() {
		if bu.Contains(n) {
			targets = append(targets, n)
		}
	}
	for _, idx := range targets {
		if err := b.DeletePiece(idx); err != nil {
			return EffectResult{}, err
		}
	}
	b.SearchForGroupDisbandment()
	return EffectResult{Item: ItemFire, Deleted: targets}, nil
}

// DropItem is a randomly spawned power-up offered mid-game.
type DropItem struct {
	ID   string   `json:"uuid"`
	Type ItemType `json:"itemType"`
}

// dropWeights skews drops toward mild items; disruptive ones stay rare.
var dropWeights = []struct {
	item   ItemType
	weight int
}{
	{ItemHint, 20},
	{ItemMirror, 15},
	{ItemShield, 15},
	{ItemMagnet, 15},
	{ItemEarthquake, 10},
	{ItemFrame, 10},
	{ItemRocket, 8},
	{ItemFire, 7},
}

// RandomDrop creates a drop item by a weighted random draw.
func RandomDrop() DropItem {
	total := 0
	for _, w := range dropWeights {
		total += w.weight
	}
	roll := rand.IntN(total)
	for _, w := range dropWeights {
		roll -= w.weight
		if roll < 0 {
			return DropItem{ID: uuid.New().String(), Type: w.item}
		}
	}
	// Unreachable while dropWeights is non-empty.
	return DropItem{ID: uuid.New().String(), Type: ItemHint}
}
