// Road network: intersections joined by road segments, with a precomputed
// closest-node lookup for every parcel and A* route search.
package world

import (
	"container/heap"
)

// RoadNode is a road intersection or dead end.
type RoadNode struct {
	ID     int        `json:"id"`
	Parcel *Parcel    `json:"-"`
	Links  []RoadLink `json:"-"`
}

// RoadLink is a road segment to an adjacent node.
type RoadLink struct {
	To     *RoadNode
	Length float64
}

// RoadNetwork is the coarse graph residents route over.
type RoadNetwork struct {
	Nodes []*RoadNode

	byParcel map[*Parcel]*RoadNode
	closest  []*RoadNode // parcel index → nearest node by grid crawl
}

// NewRoadNetwork creates an empty network.
func NewRoadNetwork() *RoadNetwork {
	return &RoadNetwork{byParcel: make(map[*Parcel]*RoadNode)}
}

// NodeAt returns the node on a parcel, creating it if needed.
func (n *RoadNetwork) NodeAt(p *Parcel) *RoadNode {
	if node, ok := n.byParcel[p]; ok {
		return node
	}
	node := &RoadNode{ID: len(n.Nodes), Parcel: p}
	n.Nodes = append(n.Nodes, node)
	n.byParcel[p] = node
	return node
}

// Connect joins two nodes in both directions.
func (n *RoadNetwork) Connect(a, b *RoadNode) {
	if a == b {
		return
	}
	for _, l := range a.Links {
		if l.To == b {
			return
		}
	}
	length := a.Parcel.DistanceTo(b.Parcel)
	a.Links = append(a.Links, RoadLink{To: b, Length: length})
	b.Links = append(b.Links, RoadLink{To: a, Length: length})
}

// ClosestNode returns the road node nearest to a parcel, or nil when the
// network is empty or the lookup has not been built.
func (n *RoadNetwork) ClosestNode(p *Parcel) *RoadNode {
	if n.closest == nil || p == nil {
		return nil
	}
	return n.closest[p.index]
}

// IndexClosestNodes crawls outward from every node in breadth-first order so
// each parcel is labelled with the first node whose crawl reaches it.
func (m *Map) IndexClosestNodes() {
	n := m.Roads
	n.closest = make([]*RoadNode, len(m.parcels))
	if len(n.Nodes) == 0 {
		return
	}

	queue := make([]*Parcel, 0, len(m.parcels))
	for _, node := range n.Nodes {
		n.closest[node.Parcel.index] = node
		queue = append(queue, node.Parcel)
	}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		owner := n.closest[p.index]
		for _, d := range crawlOffsets {
			next := m.Get(p.Coord.X+d.X, p.Coord.Y+d.Y)
			if next == nil || n.closest[next.index] != nil {
				continue
			}
			n.closest[next.index] = owner
			queue = append(queue, next)
		}
	}
}

var crawlOffsets = [...]Coord{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

type routeNode struct {
	node   *RoadNode
	g      float64
	f      float64
	index  int
	parent *routeNode
}

type routeQueue []*routeNode

func (q routeQueue) Len() int           { return len(q) }
func (q routeQueue) Less(i, j int) bool { return q[i].f < q[j].f }

func (q routeQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *routeQueue) Push(x any) {
	item := x.(*routeNode)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *routeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// Route finds the shortest road route between two nodes. The result lists
// the node parcels from start to goal inclusive, or nil if the nodes are not
// connected.
func (n *RoadNetwork) Route(start, goal *RoadNode) []*Parcel {
	if start == nil || goal == nil {
		return nil
	}

	open := &routeQueue{}
	heap.Init(open)
	heap.Push(open, &routeNode{node: start, f: start.Parcel.DistanceTo(goal.Parcel)})
	gScore := map[int]float64{start.ID: 0}
	closed := make(map[int]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*routeNode)
		if _, seen := closed[current.node.ID]; seen {
			continue
		}
		closed[current.node.ID] = struct{}{}
		if current.node == goal {
			return reconstructRoute(current)
		}

		for _, link := range current.node.Links {
			if _, seen := closed[link.To.ID]; seen {
				continue
			}
			tentative := current.g + link.Length
			if prev, ok := gScore[link.To.ID]; ok && tentative >= prev {
				continue
			}
			gScore[link.To.ID] = tentative
			heap.Push(open, &routeNode{
				node:   link.To,
				g:      tentative,
				f:      tentative + link.To.Parcel.DistanceTo(goal.Parcel),
				parent: current,
			})
		}
	}
	return nil
}

func reconstructRoute(end *routeNode) []*Parcel {
	var route []*Parcel
	for n := end; n != nil; n = n.parent {
		route = append(route, n.node.Parcel)
	}
	for i, j := 0, len(route)-1; i < j; i, j = i+1, j-1 {
		route[i], route[j] = route[j], route[i]
	}
	return route
}
