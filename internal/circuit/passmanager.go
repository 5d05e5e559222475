package circuit

import (
	"errors"
	"fmt"
	"sort"
)

// Target describes the constraints of a backend that a PassManager adapts
// circuits to.
type Target struct {
	Name        string
	NumQubits   int
	BasisGates  []string
	CouplingMap [][2]int
	// QubitErrors is an optional per-qubit error score (lower is better)
	// used to rank layouts.
	QubitErrors map[int]float64
}

// PassManager adapts a virtual circuit to a backend.
type PassManager interface {
	Run(c *Circuit) (*Circuit, error)
}

var (
	ErrUnsupportedGate = errors.New("unsupported gate")
	ErrNoLayout        = errors.New("no layout found")
)

// maxLayoutSteps bounds the chain search on large coupling maps.
const maxLayoutSteps = 200000

type presetPassManager struct {
	target Target
	level  int
	basis  map[string]struct{}
	adj    map[int][]int
	// directed holds the coupling map edges as given, for gates whose
	// hardware implementation has a native direction.
	directed map[[2]int]struct{}
}

// GeneratePresetPassManager returns a PassManager for target at the given
// optimization level (0-3). Level 0 places the circuit on the trivial
// layout; higher levels search the coupling map for a chain of qubits,
// preferring low-error qubits when error data is available.
func GeneratePresetPassManager(target Target, optimizationLevel int) (PassManager, error) {
	if optimizationLevel < 0 || optimizationLevel > 3 {
		return nil, fmt.Errorf("optimization level must be between 0 and 3, got %d", optimizationLevel)
	}
	if target.NumQubits <= 0 {
		return nil, fmt.Errorf("target %q reports no qubits", target.Name)
	}

	pm := &presetPassManager{
		target: target,
		level:  optimizationLevel,
		basis:    make(map[string]struct{}, len(target.BasisGates)),
		adj:      make(map[int][]int),
		directed: make(map[[2]int]struct{}, len(target.CouplingMap)),
	}
	for _, g := range target.BasisGates {
		pm.basis[g] = struct{}{}
	}
	seen := map[[2]int]struct{}{}
	for _, e := range target.CouplingMap {
		a, b := e[0], e[1]
		if a == b {
			continue
		}
		pm.directed[e] = struct{}{}
		if a > b {
			a, b = b, a
		}
		if _, ok := seen[[2]int{a, b}]; ok {
			continue
		}
		seen[[2]int{a, b}] = struct{}{}
		pm.adj[a] = append(pm.adj[a], b)
		pm.adj[b] = append(pm.adj[b], a)
	}
	for q := range pm.adj {
		pm.sortByError(pm.adj[q])
	}

	return pm, nil
}

func (pm *presetPassManager) Run(c *Circuit) (*Circuit, error) {
	if c == nil {
		return nil, errors.New("nil circuit")
	}
	if c.Layout != nil {
		return nil, errors.New("circuit already has a layout")
	}
	if c.NumQubits > pm.target.NumQubits {
		return nil, fmt.Errorf("%w: circuit needs %d qubits, %s has %d", ErrNoLayout, c.NumQubits, pm.target.Name, pm.target.NumQubits)
	}
	for _, name := range c.GateNames() {
		if !pm.supports(name) {
			return nil, fmt.Errorf("%w: %s is not in the basis of %s", ErrUnsupportedGate, name, pm.target.Name)
		}
	}

	var chain []int
	if pm.level == 0 {
		chain = pm.trivialChain(c.NumQubits)
	} else {
		chain = pm.searchChain(c.NumQubits)
	}
	if chain == nil {
		return nil, fmt.Errorf("%w: no connected chain of %d qubits on %s", ErrNoLayout, c.NumQubits, pm.target.Name)
	}

	out := &Circuit{
		NumQubits: pm.target.NumQubits,
		Params:    c.Params,
		Gates:     make([]Gate, 0, len(c.Gates)),
		Layout:    &Layout{Physical: chain},
	}
	for _, g := range c.Gates {
		qubits := make([]int, len(g.Qubits))
		for i, q := range g.Qubits {
			qubits[i] = chain[q]
		}
		if len(qubits) == 2 && !pm.coupled(qubits[0], qubits[1]) {
			return nil, fmt.Errorf("%w: %s on (%d, %d) is not supported by the coupling map", ErrNoLayout, g.Name, qubits[0], qubits[1])
		}
		out.Gates = append(out.Gates, pm.translate(Gate{Name: g.Name, Qubits: qubits, Param: g.Param, Angle: g.Angle})...)
	}

	return out, nil
}

func (pm *presetPassManager) coupled(a, b int) bool {
	for _, n := range pm.adj[a] {
		if n == b {
			return true
		}
	}
	return false
}

func (pm *presetPassManager) trivialChain(n int) []int {
	chain := make([]int, n)
	for i := range chain {
		chain[i] = i
		if i > 0 && !pm.coupled(i-1, i) {
			return nil
		}
	}
	return chain
}

// searchChain looks for a simple path of n qubits by depth-first search
// from each start qubit in error order.
func (pm *presetPassManager) searchChain(n int) []int {
	if n == 1 {
		starts := pm.qubitsByError()
		return []int{starts[0]}
	}

	steps := 0
	visited := make(map[int]bool, n)
	path := make([]int, 0, n)

	var walk func(q int) bool
	walk = func(q int) bool {
		steps++
		if steps > maxLayoutSteps {
			return false
		}
		visited[q] = true
		path = append(path, q)
		if len(path) == n {
			return true
		}
		for _, next := range pm.adj[q] {
			if visited[next] {
				continue
			}
			if walk(next) {
				return true
			}
		}
		visited[q] = false
		path = path[:len(path)-1]
		return false
	}

	for _, start := range pm.qubitsByError() {
		if len(pm.adj[start]) == 0 {
			continue
		}
		if walk(start) {
			return append([]int(nil), path...)
		}
		if steps > maxLayoutSteps {
			break
		}
	}
	return nil
}

func (pm *presetPassManager) qubitsByError() []int {
	qs := make([]int, pm.target.NumQubits)
	for i := range qs {
		qs[i] = i
	}
	pm.sortByError(qs)
	return qs
}

func (pm *presetPassManager) sortByError(qs []int) {
	errs := pm.target.QubitErrors
	sort.SliceStable(qs, func(i, j int) bool {
		if errs != nil {
			ei, iok := errs[qs[i]]
			ej, jok := errs[qs[j]]
			if iok && jok && ei != ej {
				return ei < ej
			}
			if iok != jok {
				return iok
			}
		}
		return qs[i] < qs[j]
	})
}
