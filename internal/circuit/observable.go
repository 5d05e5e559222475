package circuit

import (
	"fmt"
	"strings"
)

// PauliTerm is one weighted Pauli string. Characters are little-endian:
// the rightmost character acts on qubit 0.
type PauliTerm struct {
	Pauli string
	Coeff float64
}

// Observable is a sum of Pauli terms over a fixed number of qubits.
type Observable struct {
	Terms []PauliTerm
}

// AllZ returns the tensor product of Z on every one of numQubits qubits.
func AllZ(numQubits int) Observable {
	return Observable{Terms: []PauliTerm{{Pauli: strings.Repeat("Z", numQubits), Coeff: 1}}}
}

// NumQubits reports the width of the observable, or 0 when empty.
func (o Observable) NumQubits() int {
	if len(o.Terms) == 0 {
		return 0
	}
	return len(o.Terms[0].Pauli)
}

// ApplyLayout re-expresses the observable on numPhysical physical qubits
// using the layout produced by a PassManager. Physical qubits outside the
// layout carry the identity.
func (o Observable) ApplyLayout(l *Layout, numPhysical int) (Observable, error) {
	if l == nil {
		return o, nil
	}
	width := o.NumQubits()
	if width != len(l.Physical) {
		return Observable{}, fmt.Errorf("observable over %d qubits does not match layout of %d qubits", width, len(l.Physical))
	}

	out := Observable{Terms: make([]PauliTerm, 0, len(o.Terms))}
	for _, t := range o.Terms {
		if len(t.Pauli) != width {
			return Observable{}, fmt.Errorf("pauli term %q has width %d, expected %d", t.Pauli, len(t.Pauli), width)
		}
		mapped := []byte(strings.Repeat("I", numPhysical))
		for virt, phys := range l.Physical {
			if phys < 0 || phys >= numPhysical {
				return Observable{}, fmt.Errorf("layout maps qubit %d to %d outside %d physical qubits", virt, phys, numPhysical)
			}
			mapped[numPhysical-1-phys] = t.Pauli[width-1-virt]
		}
		out.Terms = append(out.Terms, PauliTerm{Pauli: string(mapped), Coeff: t.Coeff})
	}
	return out, nil
}

// Map returns the observable in the runtime's wire shape: Pauli string to
// coefficient.
func (o Observable) Map() map[string]float64 {
	m := make(map[string]float64, len(o.Terms))
	for _, t := range o.Terms {
		m[t.Pauli] += t.Coeff
	}
	return m
}
