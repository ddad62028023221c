package puzzle

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrInvalidIndex is returned when a piece index does not exist on the board.
// Callers detect it with errors.Is; the board state is unchanged when it fires.
var ErrInvalidIndex = fmt.Errorf("puzzle: piece index out of range")

// MatchResult describes the outcome of a single AddPieces call.
type MatchResult struct {
	Added      []int `json:"added"`      // indices newly flipped to matched
	Combo      bool  `json:"combo"`      // 3+ pieces joined one bundle in this call
	BundleSize int   `json:"bundleSize"` // size of the bundle the combo landed in
}

// Board owns the authoritative puzzle state: the piece grid, the matched mask,
// the index lookup, the team's item inventory and the derived bundle list.
// Board itself is not goroutine safe; the owning game serializes access.
type Board struct {
	widthCount  int
	lengthCount int
	picture     Picture

	grid    [][]*Piece // [row][col], lengthCount rows of widthCount pieces
	matched [][]bool   // kept in sync with Piece.Matched at all times
	coords  map[int][2]int
	bundles []*Bundle // creation order, the documented tie-break order
	items   []ItemType

	rng *rand.Rand
}

// NewBoard cuts the source picture into widthCount x lengthCount pieces and
// precomputes every piece's correct-neighbor indices from row/col adjacency.
// All pieces start unmatched and the bundle list is empty.
func NewBoard(pic Picture, widthCount, lengthCount int) (*Board, error) {
	if widthCount < 1 || lengthCount < 1 {
		return nil, fmt.Errorf("puzzle: board dimensions must be positive, got %dx%d", widthCount, lengthCount)
	}

	b := &Board{
		widthCount:  widthCount,
		lengthCount: lengthCount,
		picture:     pic,
		grid:        make([][]*Piece, lengthCount),
		matched:     make([][]bool, lengthCount),
		coords:      make(map[int][2]int, widthCount*lengthCount),
		rng:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(widthCount*lengthCount))),
	}

	for r := 0; r < lengthCount; r++ {
		b.grid[r] = make([]*Piece, widthCount)
		b.matched[r] = make([]bool, widthCount)
		for c := 0; c < widthCount; c++ {
			idx := r*widthCount + c
			p := &Piece{
				Index:  idx,
				Top:    NoNeighbor,
				Bottom: NoNeighbor,
				Left:   NoNeighbor,
				Right:  NoNeighbor,
			}
			if r > 0 {
				p.Top = idx - widthCount
			}
			if r < lengthCount-1 {
				p.Bottom = idx + widthCount
			}
			if c > 0 {
				p.Left = idx - 1
			}
			if c < widthCount-1 {
				p.Right = idx + 1
			}
			b.grid[r][c] = p
			b.coords[idx] = [2]int{r, c}
		}
	}

	return b, nil
}

// WidthCount returns the number of pieces per row.
func (b *Board) WidthCount() int { return b.widthCount }

// LengthCount returns the number of rows.
func (b *Board) LengthCount() int { return b.lengthCount }

// PieceCount returns the total number of pieces on the board.
func (b *Board) PieceCount() int { return b.widthCount * b.lengthCount }

// PieceByIndex returns the piece with the given source-image index.
func (b *Board) PieceByIndex(idx int) (*Piece, error) {
	coord, ok := b.coords[idx]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndex, idx)
	}
	return b.grid[coord[0]][coord[1]], nil
}

// IsMatched reports the matched mask at the given grid position.
func (b *Board) IsMatched(row, col int) bool {
	return b.matched[row][col]
}

// MatchedCount returns how many pieces are currently matched.
func (b *Board) MatchedCount() int {
	n := 0
	for r := range b.matched {
		for c := range b.matched[r] {
			if b.matched[r][c] {
				n++
			}
		}
	}
	return n
}

// AddPieces marks every referenced piece matched and folds the changed pieces
// into the bundle set. Marking an already-matched piece is a no-op. Every index
// is validated up front; on ErrInvalidIndex no state changes at all.
//
// A combo is reported when the call newly matched 3 or more pieces and all of
// them landed in one bundle.
func (b *Board) AddPieces(indices []int) (MatchResult, error) {
	for _, idx := range indices {
		if _, ok := b.coords[idx]; !ok {
			return MatchResult{}, fmt.Errorf("%w: %d", ErrInvalidIndex, idx)
		}
	}

	var res MatchResult
	for _, idx := range indices {
		coord := b.coords[idx]
		p := b.grid[coord[0]][coord[1]]
		if p.Matched {
			continue
		}
		p.Matched = true
		b.matched[coord[0]][coord[1]] = true
		b.mergeIntoBundles(p)
		res.Added = append(res.Added, idx)
	}

	if len(res.Added) >= 3 {
		if bu := b.bundleOf(res.Added[0]); bu != nil && bu.containsAll(res.Added) {
			res.Combo = true
			res.BundleSize = bu.Size()
		}
	}

	return res, nil
}

// DeletePiece reverses a piece to unmatched and removes it from its bundle.
// If the removal disconnects the remaining members, the bundle is split into
// its connected components in member order (group disbandment). Deleting an
// unmatched piece is a no-op.
func (b *Board) DeletePiece(idx int) error {
	coord, ok := b.coords[idx]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, idx)
	}

	p := b.grid[coord[0]][coord[1]]
	if !p.Matched {
		return nil
	}
	p.Matched = false
	b.matched[coord[0]][coord[1]] = false

	for pos, bu := range b.bundles {
		if bu.Contains(idx) {
			bu.remove(idx)
			b.splitBundleAt(pos)
			return nil
		}
	}
	return nil
}

// RandomArrange resets the board to all-unmatched and discards every bundle.
// Piece identities and neighbor relationships are untouched; this is the
// earthquake disruption, not a reinitialization.
func (b *Board) RandomArrange() {
	for r := range b.grid {
		for c := range b.grid[r] {
			b.grid[r][c].Matched = false
			b.matched[r][c] = false
		}
	}
	b.bundles = nil
}

// Random returns a uniform integer in [0, bound] inclusive.
func (b *Board) Random(bound int) int {
	if bound <= 0 {
		return 0
	}
	return b.rng.IntN(bound + 1)
}

// AddItem appends an item to the board's inventory.
func (b *Board) AddItem(t ItemType) {
	b.items = append(b.items, t)
}

// Items returns a copy of the board's item inventory.
func (b *Board) Items() []ItemType {
	out := make([]ItemType, len(b.items))
	copy(out, b.items)
	return out
}

// consumeItem drops the first inventory entry of the given type, if any.
func (b *Board) consumeItem(t ItemType) {
	for i, it := range b.items {
		if it == t {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return
		}
	}
}

// firstUnmatchedHorizontalPair scans row-major for the first pair of
// horizontally adjacent unmatched pieces. Used by the hint item.
func (b *Board) firstUnmatchedHorizontalPair() (*Piece, *Piece, bool) {
	for r := 0; r < b.lengthCount; r++ {
		for c := 0; c < b.widthCount-1; c++ {
			if !b.matched[r][c] && !b.matched[r][c+1] {
				return b.grid[r][c], b.grid[r][c+1], true
			}
		}
	}
	return nil, nil, false
}

// firstUnmatched scans row-major for the first unmatched piece.
func (b *Board) firstUnmatched() (*Piece, bool) {
	for r := 0; r < b.lengthCount; r++ {
		for c := 0; c < b.widthCount; c++ {
			if !b.matched[r][c] {
				return b.grid[r][c], true
			}
		}
	}
	return nil, false
}

// borderIndices returns the indices of every unmatched piece on the four
// edges of the grid, ordered left edge, top edge, right edge, bottom edge.
func (b *Board) borderIndices() []int {
	var out []int
	for r := 0; r < b.lengthCount; r++ {
		if !b.matched[r][0] {
			out = append(out, b.grid[r][0].Index)
		}
	}
	for c := 0; c < b.widthCount; c++ {
		if !b.matched[0][c] {
			out = append(out, b.grid[0][c].Index)
		}
	}
	for r := 0; r < b.lengthCount; r++ {
		if !b.matched[r][b.widthCount-1] {
			out = append(out, b.grid[r][b.widthCount-1].Index)
		}
	}
	for c := 0; c < b.widthCount; c++ {
		if !b.matched[b.lengthCount-1][c] {
			out = append(out, b.grid[b.lengthCount-1][c].Index)
		}
	}
	return out
}

// BoardSnapshot is a consistent copy of board state for broadcast.
type BoardSnapshot struct {
	WidthCount  int        `json:"widthCount"`
	LengthCount int        `json:"lengthCount"`
	Matched     [][]bool   `json:"matched"`
	Bundles     [][]int    `json:"bundles"`
	Items       []ItemType `json:"itemList"`
}

// Snapshot returns a deep copy of the observable board state.
func (b *Board) Snapshot() BoardSnapshot {
	matched := make([][]bool, b.lengthCount)
	for r := range b.matched {
		matched[r] = make([]bool, b.widthCount)
		copy(matched[r], b.matched[r])
	}
	bundles := make([][]int, len(b.bundles))
	for i, bu := range b.bundles {
		bundles[i] = bu.Members()
	}
	return BoardSnapshot{
		WidthCount:  b.widthCount,
		LengthCount: b.lengthCount,
		Matched:     matched,
		Bundles:     bundles,
		Items:       b.Items(),
	}
}
