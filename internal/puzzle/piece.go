package puzzle

// NoNeighbor marks a side of a piece that lies on the board edge.
const NoNeighbor = -1

// Piece is a single cell of the puzzle grid. Index is the piece's position in
// row-major order on the source image. The four correct-neighbor indices are
// fixed at board construction; only Matched changes afterwards.
type Piece struct {
	Index   int  `json:"index"`
	Top     int  `json:"correctTopIndex"`
	Bottom  int  `json:"correctBottomIndex"`
	Left    int  `json:"correctLeftIndex"`
	Right   int  `json:"correctRightIndex"`
	Matched bool `json:"matched"`
}

// neighbors returns the piece's correct-neighbor indices, skipping board edges.
func (p *Piece) neighbors() []int {
	out := make([]int, 0, 4)
	for _, idx := range [4]int{p.Top, p.Bottom, p.Left, p.Right} {
		if idx != NoNeighbor {
			out = append(out, idx)
		}
	}
	return out
}

// isCorrectNeighbor reports whether other sits at one of p's four correct sides.
func (p *Piece) isCorrectNeighbor(other int) bool {
	return other != NoNeighbor &&
		(p.Top == other || p.Bottom == other || p.Left == other || p.Right == other)
}

// Picture is the shared source image a board is cut from.
type Picture struct {
	Width   int    `json:"width"`
	Length  int    `json:"length"`
	Encoded string `json:"encodedString"`
}
