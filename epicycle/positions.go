package epicycle

import (
	"fmt"
	"math"
)

// Point is a 2D coordinate in world units.
type Point struct {
	X, Y float64
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Projection selects how node angles are folded into the scalar signal.
type Projection int

const (
	// ProjectionIndividual sums A·sin(angle) of every node.
	ProjectionIndividual Projection = iota
	// ProjectionCumulative adds each parent's projected angle before taking the sine.
	ProjectionCumulative
)

func (p Projection) String() string {
	switch p {
	case ProjectionIndividual:
		return "individual"
	case ProjectionCumulative:
		return "cumulative"
	default:
		return fmt.Sprintf("Projection(%d)", int(p))
	}
}

// Position is the evaluated state of one node at a point in time.
type Position struct {
	Handle             int
	ID                 string
	Start              Point
	End                Point
	Angle              float64
	EffectiveAmplitude float64
	EffectiveFrequency float64
	Active             bool
}

// Frame is the result of evaluating a tree at one time value.
type Frame struct {
	Time      float64
	Positions []Position
	Signal    float64
	Warnings  []Warning

	byID map[string]int
}

// Lookup returns the position for a node id.
func (f Frame) Lookup(id string) (Position, bool) {
	if f.byID == nil {
		return Position{}, false
	}
	i, ok := f.byID[id]
	if !ok {
		return Position{}, false
	}
	return f.Positions[i], true
}

// Tip returns the end point of the last evaluated node.
func (f Frame) Tip() Point {
	if len(f.Positions) == 0 {
		return Point{}
	}
	return f.Positions[len(f.Positions)-1].End
}

// ComputePositions evaluates the tree at time t with ProjectionIndividual.
func ComputePositions(tree *Tree, t float64) Frame {
	return ComputePositionsWith(tree, t, ProjectionIndividual)
}

// ComputePositionsWith evaluates the tree at time t. Nodes are visited in
// Order; a node whose parent has not been evaluated yet starts at the origin
// and produces a warning.
func ComputePositionsWith(tree *Tree, t float64, proj Projection) Frame {
	f := Frame{Time: t}
	if tree == nil || tree.Len() == 0 {
		return f
	}
	f.Positions = make([]Position, 0, tree.Len())
	f.byID = make(map[string]int, tree.Len())
	f.Warnings = tree.Warnings()

	computed := make([]int, tree.Len())
	for i := range computed {
		computed[i] = -1
	}
	cumulative := make([]float64, tree.Len())

	for _, h := range tree.order {
		n := &tree.nodes[h]
		start := Point{}
		parentAngle := 0.0
		if p := tree.parent[h]; p >= 0 {
			if idx := computed[p]; idx >= 0 {
				start = f.Positions[idx].End
				parentAngle = cumulative[p]
			} else {
				f.Warnings = append(f.Warnings, Warning{Kind: WarnParentNotComputed, NodeID: n.ID, ParentID: tree.nodes[p].ID})
			}
		}

		pos := evaluateNode(n, t)
		pos.Handle = h
		pos.ID = n.ID
		pos.Start = start
		pos.End = start
		if pos.Active {
			pos.End = start.Add(Point{
				X: pos.EffectiveAmplitude * math.Cos(pos.Angle),
				Y: pos.EffectiveAmplitude * math.Sin(pos.Angle),
			})
		}

		switch proj {
		case ProjectionCumulative:
			cumulative[h] = parentAngle + pos.Angle
			if pos.Active {
				f.Signal += pos.EffectiveAmplitude * math.Sin(cumulative[h])
			}
		default:
			cumulative[h] = pos.Angle
			if pos.Active {
				f.Signal += pos.EffectiveAmplitude * math.Sin(pos.Angle)
			}
		}

		computed[h] = len(f.Positions)
		f.byID[n.ID] = len(f.Positions)
		f.Positions = append(f.Positions, pos)
	}
	return f
}

// evaluateNode applies envelope, sweep and LFO to one node at time t.
func evaluateNode(n *Node, t float64) Position {
	pos := Position{Active: n.Active}
	if !n.Active {
		pos.Angle = n.InitialPhase
		return pos
	}

	lfoValue := 0.0
	lfoTarget := TargetAmplitude
	if n.LFO != nil {
		lfoValue = n.LFO.Value(t)
		lfoTarget = n.LFO.Target
	}

	amp := n.Amplitude
	if n.Envelope != nil {
		amp *= n.Envelope.Value(t)
	}
	if n.LFO != nil && lfoTarget == TargetAmplitude {
		amp *= 1 + lfoValue
	}

	phase := n.InitialPhase
	if n.LFO != nil && lfoTarget == TargetPhase {
		phase += lfoValue * math.Pi
	}

	freqScale := 1.0
	if n.LFO != nil && lfoTarget == TargetFrequency {
		freqScale = 1 + lfoValue
	}

	sign := n.sign()
	var freq, cycles float64
	if n.Sweep != nil {
		freq = sign * n.Sweep.Frequency(t) * freqScale
		cycles = n.Sweep.Cycles(t)
	} else {
		freq = n.Frequency * freqScale
		cycles = math.Abs(n.Frequency) * t
	}

	pos.EffectiveAmplitude = amp
	pos.EffectiveFrequency = freq
	if freq == 0 && (n.Sweep == nil || cycles == 0) {
		pos.Angle = phase
		return pos
	}
	pos.Angle = phase + sign*freqScale*2*math.Pi*cycles
	return pos
}
