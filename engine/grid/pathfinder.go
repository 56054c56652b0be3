package grid

import "math"

// Unreachable is the cost reported for points the search never settled.
const Unreachable = math.MaxInt

// Blocker reports whether a cell is occupied and may not be entered.
type Blocker func(p Point) bool

// DistanceMap holds minimum step costs from one origin.
type DistanceMap struct {
	Origin Point

	costs map[Point]int
	prev  map[Point]Point
	order []Point
}

// Get returns the cost to reach p, or Unreachable.
func (d *DistanceMap) Get(p Point) int {
	if c, ok := d.costs[p]; ok {
		return c
	}
	return Unreachable
}

// Costs returns a copy of the cost table.
func (d *DistanceMap) Costs() map[Point]int {
	out := make(map[Point]int, len(d.costs))
	for p, c := range d.costs {
		out[p] = c
	}
	return out
}

// Within returns every settled point other than the origin whose cost is at
// most max, in settle order.
func (d *DistanceMap) Within(max int) []Point {
	var out []Point
	for _, p := range d.order {
		if c := d.costs[p]; c > 0 && c <= max {
			out = append(out, p)
		}
	}
	return out
}

// Path reconstructs the route to p, excluding the origin. Returns nil when p
// was not reached.
func (d *DistanceMap) Path(p Point) []Point {
	cost, ok := d.costs[p]
	if !ok {
		return nil
	}
	path := make([]Point, cost)
	for i := cost - 1; i >= 0; i-- {
		path[i] = p
		p = d.prev[p]
	}
	return path
}

// Path is a resolved route. Points excludes the start and ends at the goal,
// so len(Points) == Distance.
type Path struct {
	Distance int
	Points   []Point
}

// DistanceMap runs Dijkstra from origin over Destination edges. Blocked
// cells are never entered. A positive maxDistance bounds the search to the
// box origin ± maxDistance on every axis.
func (m *Map) DistanceMap(origin Point, maxDistance int, blocked Blocker) *DistanceMap {
	dm := &DistanceMap{
		Origin: origin,
		costs:  map[Point]int{origin: 0},
		prev:   map[Point]Point{},
	}
	settled := map[Point]bool{}

	h := minHeap{}
	var seq int
	h.push(heapEntry{p: origin, dist: 0, seq: seq})

	for len(h) > 0 {
		e := h.pop()
		if settled[e.p] || e.dist > dm.costs[e.p] {
			continue
		}
		settled[e.p] = true
		dm.order = append(dm.order, e.p)

		for _, dir := range Directions {
			next, ok := m.Destination(e.p, dir)
			if !ok || settled[next] {
				continue
			}
			if maxDistance > 0 && !inBox(origin, next, maxDistance) {
				continue
			}
			if blocked != nil && blocked(next) {
				continue
			}
			nd := e.dist + 1
			if cur, seen := dm.costs[next]; seen && nd >= cur {
				continue
			}
			dm.costs[next] = nd
			dm.prev[next] = e.p
			seq++
			h.push(heapEntry{p: next, dist: nd, seq: seq})
		}
	}
	return dm
}

// PathTo returns the shortest route from `from` to `to` under the same
// bounded search as DistanceMap, or nil if `to` is unreachable.
func (m *Map) PathTo(from, to Point, maxDistance int, blocked Blocker) *Path {
	dm := m.DistanceMap(from, maxDistance, blocked)
	points := dm.Path(to)
	if points == nil {
		return nil
	}
	return &Path{Distance: len(points), Points: points}
}

func inBox(origin, p Point, r int) bool {
	return abs(p.X-origin.X) <= r && abs(p.Y-origin.Y) <= r && abs(p.Z-origin.Z) <= r
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// --- min-heap ordered by (dist, seq) ---

type heapEntry struct {
	p    Point
	dist int
	seq  int
}

type minHeap []heapEntry

func (h minHeap) less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].seq < h[j].seq
}

func (h *minHeap) push(e heapEntry) {
	*h = append(*h, e)
	i := len(*h) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		(*h)[i], (*h)[parent] = (*h)[parent], (*h)[i]
		i = parent
	}
}

func (h *minHeap) pop() heapEntry {
	old := *h
	top := old[0]
	n := len(old) - 1
	old[0] = old[n]
	*h = old[:n]
	i := 0
	for {
		l, r := 2*i+1, 2*i+2
		smallest := i
		if l < n && h.less(l, smallest) {
			smallest = l
		}
		if r < n && h.less(r, smallest) {
			smallest = r
		}
		if smallest == i {
			break
		}
		(*h)[i], (*h)[smallest] = (*h)[smallest], (*h)[i]
		i = smallest
	}
	return top
}
