package circuit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalParams(t *testing.T) {
	assert.Equal(t, 108, TotalParams(18, 3))
	assert.Equal(t, 2, TotalParams(1, 1))
	assert.Equal(t, 0, TotalParams(4, 0))
}

func TestBuildAnsatz(t *testing.T) {
	params := NewParameters(TotalParams(18, 3))
	c, err := BuildAnsatz(18, params)
	require.NoError(t, err)

	assert.Equal(t, 18, c.NumQubits)
	assert.Len(t, c.Params, 108)
	// 3 layers of (3 single-qubit gates * 18 + 17 cz)
	assert.Len(t, c.Gates, 3*(3*18+17))
	assert.ElementsMatch(t, []string{"rz", "sx", "cz"}, c.GateNames())
	assert.Nil(t, c.Layout)

	assert.Equal(t, "θ0", c.Gates[0].Param.Name)
	assert.Equal(t, "θ1", c.Gates[2].Param.Name)
}

func TestBuildAnsatzRejectsBadParameterCount(t *testing.T) {
	tests := []struct {
		name      string
		numQubits int
		params    int
	}{
		{name: "no params", numQubits: 3, params: 0},
		{name: "partial layer", numQubits: 3, params: 7},
		{name: "no qubits", numQubits: 0, params: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildAnsatz(tt.numQubits, NewParameters(tt.params))
			require.Error(t, err)
		})
	}
}

func TestQASM3Virtual(t *testing.T) {
	c, err := BuildAnsatz(2, NewParameters(4))
	require.NoError(t, err)

	out := c.QASM3()
	assert.True(t, strings.HasPrefix(out, "OPENQASM 3.0;\n"))
	assert.Contains(t, out, "input float[64] θ0;\n")
	assert.Contains(t, out, "input float[64] θ3;\n")
	assert.Contains(t, out, "qubit[2] q;\n")
	assert.Contains(t, out, "rz(θ0) q[0];\n")
	assert.Contains(t, out, "sx q[1];\n")
	assert.Contains(t, out, "cz q[0], q[1];\n")
}

func TestAllZ(t *testing.T) {
	o := AllZ(4)
	require.Len(t, o.Terms, 1)
	assert.Equal(t, "ZZZZ", o.Terms[0].Pauli)
	assert.Equal(t, 1.0, o.Terms[0].Coeff)
	assert.Equal(t, 4, o.NumQubits())
	assert.Equal(t, map[string]float64{"ZZZZ": 1}, o.Map())
}

func TestApplyLayout(t *testing.T) {
	o := Observable{Terms: []PauliTerm{{Pauli: "XYZ", Coeff: 0.5}}}

	mapped, err := o.ApplyLayout(&Layout{Physical: []int{4, 2, 0}}, 5)
	require.NoError(t, err)
	require.Len(t, mapped.Terms, 1)
	assert.Equal(t, "ZIYIX", mapped.Terms[0].Pauli)
	assert.Equal(t, 0.5, mapped.Terms[0].Coeff)

	allZ, err := AllZ(3).ApplyLayout(&Layout{Physical: []int{2, 3, 4}}, 6)
	require.NoError(t, err)
	assert.Equal(t, "IZZZII", allZ.Terms[0].Pauli)
}

func TestApplyLayoutErrors(t *testing.T) {
	_, err := AllZ(3).ApplyLayout(&Layout{Physical: []int{0, 1}}, 5)
	assert.Error(t, err)

	_, err = AllZ(2).ApplyLayout(&Layout{Physical: []int{0, 7}}, 5)
	assert.Error(t, err)

	same, err := AllZ(2).ApplyLayout(nil, 5)
	require.NoError(t, err)
	assert.Equal(t, "ZZ", same.Terms[0].Pauli)
}
