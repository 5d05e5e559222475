package circuit

import (
	"fmt"
	"strconv"
	"strings"
)

// Parameter is a free symbol in a circuit. Its value is bound at
// execution time from the caller's feature vector.
type Parameter struct {
	Name string
}

// Gate is a single instruction. Rotation gates either reference a
// Parameter or, when Param is nil, carry a fixed Angle. Fixed gates (sx,
// x, cz, ecr) use neither.
type Gate struct {
	Name   string
	Qubits []int
	Param  *Parameter
	Angle  float64
}

// Layout maps virtual qubit i to physical qubit Physical[i].
type Layout struct {
	Physical []int
}

// Circuit is a parameterized circuit over NumQubits qubits. After a
// PassManager run, NumQubits is the physical width of the target and
// Layout records where the virtual qubits were placed.
type Circuit struct {
	NumQubits int
	Params    []Parameter
	Gates     []Gate
	Layout    *Layout
}

// TotalParams returns the number of free parameters of the ansatz built
// by BuildAnsatz for the given width and depth.
func TotalParams(numQubits, layers int) int {
	return 2 * numQubits * layers
}

// NewParameters returns n parameters named θ0..θ(n-1).
func NewParameters(n int) []Parameter {
	params := make([]Parameter, n)
	for i := range params {
		params[i] = Parameter{Name: "θ" + strconv.Itoa(i)}
	}
	return params
}

// BuildAnsatz builds a hardware-efficient ansatz. Each layer applies
// rz(θa)·sx·rz(θb) to every qubit followed by a linear cz chain, so the
// number of layers is len(params) / (2*numQubits).
func BuildAnsatz(numQubits int, params []Parameter) (*Circuit, error) {
	if numQubits <= 0 {
		return nil, fmt.Errorf("ansatz needs at least one qubit, got %d", numQubits)
	}
	perLayer := 2 * numQubits
	if len(params) == 0 || len(params)%perLayer != 0 {
		return nil, fmt.Errorf("ansatz over %d qubits needs a positive multiple of %d parameters, got %d", numQubits, perLayer, len(params))
	}
	layers := len(params) / perLayer

	c := &Circuit{
		NumQubits: numQubits,
		Params:    append([]Parameter(nil), params...),
	}

	p := 0
	for l := 0; l < layers; l++ {
		for q := 0; q < numQubits; q++ {
			c.Gates = append(c.Gates,
				Gate{Name: "rz", Qubits: []int{q}, Param: &c.Params[p]},
				Gate{Name: "sx", Qubits: []int{q}},
				Gate{Name: "rz", Qubits: []int{q}, Param: &c.Params[p+1]},
			)
			p += 2
		}
		for q := 0; q+1 < numQubits; q++ {
			c.Gates = append(c.Gates, Gate{Name: "cz", Qubits: []int{q, q + 1}})
		}
	}

	return c, nil
}

// GateNames returns the distinct gate names used by the circuit.
func (c *Circuit) GateNames() []string {
	seen := map[string]struct{}{}
	var names []string
	for _, g := range c.Gates {
		if _, ok := seen[g.Name]; ok {
			continue
		}
		seen[g.Name] = struct{}{}
		names = append(names, g.Name)
	}
	return names
}

// QASM3 renders the circuit as OpenQASM 3. Parameters are declared as
// float inputs so the runtime binds them per pub. Qubits are addressed
// through the physical register ($n) once a layout has been applied.
func (c *Circuit) QASM3() string {
	var b strings.Builder
	b.WriteString("OPENQASM 3.0;\n")
	b.WriteString("include \"stdgates.inc\";\n")
	for _, p := range c.Params {
		fmt.Fprintf(&b, "input float[64] %s;\n", p.Name)
	}

	qubit := func(i int) string { return fmt.Sprintf("q[%d]", i) }
	if c.Layout != nil {
		qubit = func(i int) string { return "$" + strconv.Itoa(i) }
	} else {
		fmt.Fprintf(&b, "qubit[%d] q;\n", c.NumQubits)
	}

	for _, g := range c.Gates {
		args := make([]string, len(g.Qubits))
		for i, q := range g.Qubits {
			args[i] = qubit(q)
		}
		if g.Param != nil {
			fmt.Fprintf(&b, "%s(%s) %s;\n", g.Name, g.Param.Name, strings.Join(args, ", "))
			continue
		}
		if rotationGates[g.Name] {
			fmt.Fprintf(&b, "%s(%s) %s;\n", g.Name, strconv.FormatFloat(g.Angle, 'g', -1, 64), strings.Join(args, ", "))
			continue
		}
		fmt.Fprintf(&b, "%s %s;\n", g.Name, strings.Join(args, ", "))
	}

	return b.String()
}
