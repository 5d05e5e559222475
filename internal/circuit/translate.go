package circuit

import "math"

var rotationGates = map[string]bool{"rz": true, "rx": true, "ry": true}

// ecrBasis is what a cz needs when the target only offers ecr.
var ecrBasis = []string{"ecr", "rz", "sx", "x"}

func (pm *presetPassManager) has(gates ...string) bool {
	for _, g := range gates {
		if _, ok := pm.basis[g]; !ok {
			return false
		}
	}
	return true
}

// supports reports whether gate can be emitted on the target, directly or
// through translate.
func (pm *presetPassManager) supports(gate string) bool {
	if pm.has(gate) {
		return true
	}
	return gate == "cz" && pm.has(ecrBasis...)
}

// translate rewrites a physically placed gate into the target basis.
func (pm *presetPassManager) translate(g Gate) []Gate {
	if g.Name != "cz" || pm.has("cz") {
		return []Gate{g}
	}
	a, b := g.Qubits[0], g.Qubits[1]
	// cz is symmetric, so follow whichever direction the device offers.
	if _, ok := pm.directed[[2]int{a, b}]; !ok {
		if _, ok := pm.directed[[2]int{b, a}]; ok {
			a, b = b, a
		}
	}
	return czViaECR(a, b)
}

// czViaECR expresses cz(c, t) with ecr(c, t) up to global phase:
// cz = rz_c(π/2)·rz_t(π/2)·H_t·ecr·x_c·H_t, with H = rz(π/2)·sx·rz(π/2)
// and the trailing rotations on t merged.
func czViaECR(c, t int) []Gate {
	rz := func(q int, angle float64) Gate { return Gate{Name: "rz", Qubits: []int{q}, Angle: angle} }
	sx := func(q int) Gate { return Gate{Name: "sx", Qubits: []int{q}} }

	return []Gate{
		rz(t, math.Pi/2),
		sx(t),
		rz(t, math.Pi/2),
		{Name: "x", Qubits: []int{c}},
		{Name: "ecr", Qubits: []int{c, t}},
		rz(t, math.Pi/2),
		sx(t),
		rz(t, math.Pi),
		rz(c, math.Pi/2),
	}
}
