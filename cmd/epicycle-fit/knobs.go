package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-epicycle/epicycle"
)

type knobDef struct {
	Name string
	Node int
	Kind string
	Min  float64
	Max  float64
}

type candidate struct {
	Vals []float64
}

var validGroups = []string{"amplitude", "phase", "speed"}

// parseOptimizeGroups parses a comma-separated string of group names.
// Valid groups: amplitude, phase, speed.
func parseOptimizeGroups(raw string) (map[string]bool, error) {
	groups := make(map[string]bool)
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		ok := false
		for _, g := range validGroups {
			ok = ok || g == s
		}
		if !ok {
			return nil, fmt.Errorf("unknown optimize group %q (valid: %s)", s, strings.Join(validGroups, ", "))
		}
		groups[s] = true
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("no optimize groups specified")
	}
	return groups, nil
}

// initCandidate creates one knob per node and active group. Speed knobs
// search within ±spread of the starting frequency.
func initCandidate(nodes []epicycle.NodeSpec, groups map[string]bool, spread float64) ([]knobDef, candidate) {
	defs := make([]knobDef, 0, 3*len(nodes))
	vals := make([]float64, 0, 3*len(nodes))
	for i, n := range nodes {
		if !n.Active {
			continue
		}
		if groups["amplitude"] {
			hi := math.Max(2*n.Amplitude, 1)
			defs = append(defs, knobDef{Name: n.ID + ".amplitude", Node: i, Kind: "amplitude", Min: 0, Max: hi})
			vals = append(vals, n.Amplitude)
		}
		if groups["phase"] {
			defs = append(defs, knobDef{Name: n.ID + ".phase", Node: i, Kind: "phase", Min: 0, Max: 2 * math.Pi})
			vals = append(vals, math.Mod(math.Mod(n.InitialPhase, 2*math.Pi)+2*math.Pi, 2*math.Pi))
		}
		if groups["speed"] {
			f := n.RotationSpeed
			lo, hi := f*(1-spread), f*(1+spread)
			if lo > hi {
				lo, hi = hi, lo
			}
			defs = append(defs, knobDef{Name: n.ID + ".speed", Node: i, Kind: "speed", Min: lo, Max: hi})
			vals = append(vals, f)
		}
	}
	for i := range vals {
		vals[i] = clamp(vals[i], defs[i].Min, defs[i].Max)
	}
	return defs, candidate{Vals: vals}
}

// applyCandidate returns a copy of base with the knob values written in.
func applyCandidate(base []epicycle.NodeSpec, defs []knobDef, c candidate) []epicycle.NodeSpec {
	nodes := make([]epicycle.NodeSpec, len(base))
	copy(nodes, base)
	for i, def := range defs {
		v := c.Vals[i]
		n := &nodes[def.Node]
		switch def.Kind {
		case "amplitude":
			n.Amplitude = math.Max(v, 0)
		case "phase":
			n.InitialPhase = v
		case "speed":
			n.RotationSpeed = v
		}
	}
	return nodes
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = clamp(pos[i], 0, 1)
		}
		vals[i] = defs[i].Min + x*(defs[i].Max-defs[i].Min)
	}
	return candidate{Vals: vals}
}
