package puzzle

// Bundle is a maximal set of matched pieces connected through correct-neighbor
// adjacency. Membership keeps insertion order so that every iteration over a
// bundle, and the creation order of the bundle list itself, is deterministic.
type Bundle struct {
	members map[int]struct{}
	order   []int
}

func newBundle(indices ...int) *Bundle {
	bu := &Bundle{members: make(map[int]struct{}, len(indices))}
	for _, idx := range indices {
		bu.add(idx)
	}
	return bu
}

func (bu *Bundle) add(idx int) {
	if _, ok := bu.members[idx]; ok {
		return
	}
	bu.members[idx] = struct{}{}
	bu.order = append(bu.order, idx)
}

func (bu *Bundle) remove(idx int) {
	if _, ok := bu.members[idx]; !ok {
		return
	}
	delete(bu.members, idx)
	for i, v := range bu.order {
		if v == idx {
			bu.order = append(bu.order[:i], bu.order[i+1:]...)
			break
		}
	}
}

// Contains reports whether the piece index belongs to this bundle.
func (bu *Bundle) Contains(idx int) bool {
	_, ok := bu.members[idx]
	return ok
}

func (bu *Bundle) containsAll(indices []int) bool {
	for _, idx := range indices {
		if !bu.Contains(idx) {
			return false
		}
	}
	return true
}

// Size returns the number of pieces in the bundle.
func (bu *Bundle) Size() int { return len(bu.order) }

// Members returns the piece indices in insertion order.
func (bu *Bundle) Members() []int {
	out := make([]int, len(bu.order))
	copy(out, bu.order)
	return out
}

// Bundles returns the current bundle membership, outermost slice in bundle
// creation order.
func (b *Board) Bundles() [][]int {
	out := make([][]int, len(b.bundles))
	for i, bu := range b.bundles {
		out[i] = bu.Members()
	}
	return out
}

// BundleCount returns the number of bundles.
func (b *Board) BundleCount() int { return len(b.bundles) }

// largestBundle picks the bundle with the most pieces. Ties break toward the
// earliest-created bundle, which makes the pick deterministic.
func (b *Board) largestBundle() *Bundle {
	var best *Bundle
	for _, bu := range b.bundles {
		if best == nil || bu.Size() > best.Size() {
			best = bu
		}
	}
	return best
}

// bundleOf returns the bundle holding idx, or nil.
func (b *Board) bundleOf(idx int) *Bundle {
	for _, bu := range b.bundles {
		if bu.Contains(idx) {
			return bu
		}
	}
	return nil
}

// mergeIntoBundles folds a freshly matched piece into the bundle set. Any
// bundles reachable through the piece's matched correct neighbors collapse
// into the earliest-created one; with no matched neighbor the piece starts a
// bundle of its own. Cost is proportional to the pieces touched, not to the
// board size.
func (b *Board) mergeIntoBundles(p *Piece) {
	var touching []int // positions in b.bundles, ascending
	for pos, bu := range b.bundles {
		for _, n := range p.neighbors() {
			coord := b.coords[n]
			if b.matched[coord[0]][coord[1]] && bu.Contains(n) {
				touching = append(touching, pos)
				break
			}
		}
	}

	if len(touching) == 0 {
		b.bundles = append(b.bundles, newBundle(p.Index))
		return
	}

	target := b.bundles[touching[0]]
	target.add(p.Index)
	for i := len(touching) - 1; i >= 1; i-- {
		pos := touching[i]
		for _, idx := range b.bundles[pos].order {
			target.add(idx)
		}
		b.bundles = append(b.bundles[:pos], b.bundles[pos+1:]...)
	}
}

// splitBundleAt re-derives the connected components of the bundle at the given
// position after a member was removed. A bundle left empty disappears; a
// disconnected bundle is replaced in place by its components in member order.
func (b *Board) splitBundleAt(pos int) {
	bu := b.bundles[pos]
	if bu.Size() == 0 {
		b.bundles = append(b.bundles[:pos], b.bundles[pos+1:]...)
		return
	}

	components := b.connectedComponents(bu.order, bu)
	if len(components) == 1 {
		return
	}

	rest := append([]*Bundle{}, b.bundles[pos+1:]...)
	b.bundles = append(b.bundles[:pos], components...)
	b.bundles = append(b.bundles, rest...)
}

// SearchForGroupDisbandment rebuilds the whole bundle list from the matched
// mask, scanning row-major. Call after bulk deletions to restore the bundle
// invariants before the next read.
func (b *Board) SearchForGroupDisbandment() {
	var matchedOrder []int
	for r := 0; r < b.lengthCount; r++ {
		for c := 0; c < b.widthCount; c++ {
			if b.matched[r][c] {
				matchedOrder = append(matchedOrder, b.grid[r][c].Index)
			}
		}
	}
	b.bundles = b.connectedComponents(matchedOrder, nil)
}

// connectedComponents groups the given matched piece indices by correct-neighbor
// connectivity. Seeds are taken in the order given; when scope is non-nil the
// traversal stays inside that bundle's membership.
func (b *Board) connectedComponents(seeds []int, scope *Bundle) []*Bundle {
	visited := make(map[int]bool, len(seeds))
	var components []*Bundle

	inScope := func(idx int) bool {
		if scope != nil {
			return scope.Contains(idx)
		}
		coord, ok := b.coords[idx]
		return ok && b.matched[coord[0]][coord[1]]
	}

	for _, seed := range seeds {
		if visited[seed] {
			continue
		}
		comp := newBundle()
		queue := []int{seed}
		visited[seed] = true
		for len(queue) > 0 {
			idx := queue[0]
			queue = queue[1:]
			comp.add(idx)
			coord := b.coords[idx]
			for _, n := range b.grid[coord[0]][coord[1]].neighbors() {
				if visited[n] || !inScope(n) {
					continue
				}
				nc := b.coords[n]
				if !b.matched[nc[0]][nc[1]] {
					continue
				}
				visited[n] = true
				queue = append(queue, n)
			}
		}
		components = append(components, comp)
	}
	return components
}
