// Package epicycle computes the kinematics of chained rotating vectors.
//
// A Tree is an immutable arena of oscillator nodes. ComputePositions turns a
// tree and a time value into endpoints for rendering plus one scalar signal
// sample. All functions are pure; callers own any caching across ticks.
package epicycle

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrInvalidNode = errors.New("epicycle: invalid node")
	ErrDuplicateID = errors.New("epicycle: duplicate node id")
	ErrCycle       = errors.New("epicycle: parent relation contains a cycle")
)

// Direction is the rotational sense of a node.
type Direction int

const (
	// DirectionAuto takes the sense from the sign of RotationSpeed.
	DirectionAuto Direction = iota
	DirectionCounterClockwise
	DirectionClockwise
)

func (d Direction) String() string {
	switch d {
	case DirectionAuto:
		return "auto"
	case DirectionCounterClockwise:
		return "counterclockwise"
	case DirectionClockwise:
		return "clockwise"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// NodeSpec describes one oscillator as supplied by an editor.
type NodeSpec struct {
	ID            string
	ParentID      string
	Amplitude     float64
	InitialPhase  float64
	RotationSpeed float64
	Direction     Direction
	Order         int
	Active        bool

	Envelope *Envelope
	Sweep    *Sweep
	LFO      *LFO
}

// Validate fails fast on malformed numeric fields.
func (s *NodeSpec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidNode)
	}
	if !isFinite(s.Amplitude) || s.Amplitude < 0 {
		return fmt.Errorf("%w: node %q amplitude must be >= 0: %v", ErrInvalidNode, s.ID, s.Amplitude)
	}
	if !isFinite(s.InitialPhase) {
		return fmt.Errorf("%w: node %q initial phase must be finite", ErrInvalidNode, s.ID)
	}
	if !isFinite(s.RotationSpeed) {
		return fmt.Errorf("%w: node %q rotation speed must be finite", ErrInvalidNode, s.ID)
	}
	switch s.Direction {
	case DirectionAuto, DirectionCounterClockwise, DirectionClockwise:
	default:
		return fmt.Errorf("%w: node %q unknown direction %d", ErrInvalidNode, s.ID, int(s.Direction))
	}
	if s.Envelope != nil && s.Envelope.Enabled {
		if err := s.Envelope.Validate(); err != nil {
			return fmt.Errorf("%w: node %q: %v", ErrInvalidNode, s.ID, err)
		}
	}
	if s.Sweep != nil && s.Sweep.Enabled {
		if err := s.Sweep.Validate(); err != nil {
			return fmt.Errorf("%w: node %q: %v", ErrInvalidNode, s.ID, err)
		}
	}
	if s.LFO != nil && s.LFO.Enabled {
		if err := s.LFO.Validate(); err != nil {
			return fmt.Errorf("%w: node %q: %v", ErrInvalidNode, s.ID, err)
		}
	}
	return nil
}

// SignedFrequency folds RotationSpeed and Direction into one signed value.
// An explicit direction wins over the sign of RotationSpeed.
func (s *NodeSpec) SignedFrequency() float64 {
	switch s.Direction {
	case DirectionCounterClockwise:
		return math.Abs(s.RotationSpeed)
	case DirectionClockwise:
		return -math.Abs(s.RotationSpeed)
	default:
		return s.RotationSpeed
	}
}

// Node is the arena form of a NodeSpec. Modulators are copied so a Tree never
// aliases caller-owned configuration.
type Node struct {
	ID           string
	Amplitude    float64
	InitialPhase float64
	Frequency    float64
	Order        int
	Active       bool

	Envelope *Envelope
	Sweep    *Sweep
	LFO      *LFO
}

// Direction derives the rotational sense from the sign of Frequency.
func (n *Node) Direction() Direction {
	if n.Frequency < 0 {
		return DirectionClockwise
	}
	return DirectionCounterClockwise
}

func (n *Node) sign() float64 {
	if n.Frequency < 0 {
		return -1
	}
	return 1
}

// WarningKind classifies a non-fatal structural issue.
type WarningKind int

const (
	WarnDanglingParent WarningKind = iota
	WarnParentNotComputed
)

func (k WarningKind) String() string {
	switch k {
	case WarnDanglingParent:
		return "dangling-parent"
	case WarnParentNotComputed:
		return "parent-not-computed"
	default:
		return fmt.Sprintf("WarningKind(%d)", int(k))
	}
}

// Warning reports a recoverable issue; the affected node is rooted at the origin.
type Warning struct {
	Kind     WarningKind
	NodeID   string
	ParentID string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: node %q parent %q (rooted at origin)", w.Kind, w.NodeID, w.ParentID)
}

// Tree is an immutable forest of oscillators stored as an arena.
type Tree struct {
	nodes    []Node
	parent   []int
	order    []int
	index    map[string]int
	warnings []Warning
}

// NewTree validates specs and builds the arena. Parent ids that reference no
// node are recorded as warnings; cycles and duplicate ids are errors.
func NewTree(specs []NodeSpec) (*Tree, error) {
	t := &Tree{
		nodes:  make([]Node, len(specs)),
		parent: make([]int, len(specs)),
		order:  make([]int, len(specs)),
		index:  make(map[string]int, len(specs)),
	}
	for i := range specs {
		s := &specs[i]
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := t.index[s.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, s.ID)
		}
		t.index[s.ID] = i
		t.nodes[i] = Node{
			ID:           s.ID,
			Amplitude:    s.Amplitude,
			InitialPhase: s.InitialPhase,
			Frequency:    s.SignedFrequency(),
			Order:        s.Order,
			Active:       s.Active,
			Envelope:     cloneEnabled(s.Envelope),
			Sweep:        cloneEnabled(s.Sweep),
			LFO:          cloneEnabled(s.LFO),
		}
	}

	for i := range specs {
		pid := specs[i].ParentID
		t.parent[i] = -1
		if pid == "" {
			continue
		}
		p, ok := t.index[pid]
		if !ok {
			t.warnings = append(t.warnings, Warning{Kind: WarnDanglingParent, NodeID: specs[i].ID, ParentID: pid})
			continue
		}
		t.parent[i] = p
	}

	if err := t.checkAcyclic(); err != nil {
		return nil, err
	}

	for i := range t.order {
		t.order[i] = i
	}
	sort.SliceStable(t.order, func(a, b int) bool {
		return t.nodes[t.order[a]].Order < t.nodes[t.order[b]].Order
	})
	return t, nil
}

type enabler interface {
	Envelope | Sweep | LFO
}

func cloneEnabled[T enabler](src *T) *T {
	if src == nil {
		return nil
	}
	enabled := false
	switch v := any(src).(type) {
	case *Envelope:
		enabled = v.Enabled
	case *Sweep:
		enabled = v.Enabled
	case *LFO:
		enabled = v.Enabled
	}
	if !enabled {
		return nil
	}
	c := *src
	return &c
}

func (t *Tree) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]uint8, len(t.nodes))
	for start := range t.nodes {
		if state[start] == done {
			continue
		}
		var path []int
		i := start
		for i >= 0 && state[i] == unvisited {
			state[i] = visiting
			path = append(path, i)
			i = t.parent[i]
		}
		if i >= 0 && state[i] == visiting {
			return fmt.Errorf("%w: at node %q", ErrCycle, t.nodes[i].ID)
		}
		for _, j := range path {
			state[j] = done
		}
	}
	return nil
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node stored at handle h.
func (t *Tree) Node(h int) Node { return t.nodes[h] }

// Parent returns the parent handle of h, or -1 for roots and dangling references.
func (t *Tree) Parent(h int) int { return t.parent[h] }

// Handle resolves a node id.
func (t *Tree) Handle(id string) (int, bool) {
	h, ok := t.index[id]
	return h, ok
}

// Traversal returns node handles in evaluation order.
func (t *Tree) Traversal() []int {
	return append([]int(nil), t.order...)
}

// Warnings returns construction-time warnings.
func (t *Tree) Warnings() []Warning {
	return append([]Warning(nil), t.warnings...)
}

// Specs converts the tree back to editor form, in traversal order.
func (t *Tree) Specs() []NodeSpec {
	out := make([]NodeSpec, 0, len(t.nodes))
	for _, h := range t.order {
		n := t.nodes[h]
		s := NodeSpec{
			ID:            n.ID,
			Amplitude:     n.Amplitude,
			InitialPhase:  n.InitialPhase,
			RotationSpeed: n.Frequency,
			Order:         n.Order,
			Active:        n.Active,
			Envelope:      cloneEnabled(n.Envelope),
			Sweep:         cloneEnabled(n.Sweep),
			LFO:           cloneEnabled(n.LFO),
		}
		if p := t.parent[h]; p >= 0 {
			s.ParentID = t.nodes[p].ID
		}
		out = append(out, s)
	}
	return out
}
