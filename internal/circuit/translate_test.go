package circuit

import (
	"math"
	"math/cmplx"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eagleLikeTarget(n int) Target {
	t := Target{
		Name:       "fake_eagle",
		NumQubits:  n,
		BasisGates: []string{"ecr", "id", "rz", "sx", "x"},
	}
	// One native direction per pair, alternating along the line.
	for i := 0; i+1 < n; i++ {
		if i%2 == 0 {
			t.CouplingMap = append(t.CouplingMap, [2]int{i, i + 1})
		} else {
			t.CouplingMap = append(t.CouplingMap, [2]int{i + 1, i})
		}
	}
	return t
}

func TestPresetPassManagerECRTarget(t *testing.T) {
	target := eagleLikeTarget(127)
	ansatz, err := BuildAnsatz(18, NewParameters(TotalParams(18, 3)))
	require.NoError(t, err)

	pm, err := GeneratePresetPassManager(target, 1)
	require.NoError(t, err)
	out, err := pm.Run(ansatz)
	require.NoError(t, err)

	directed := map[[2]int]bool{}
	for _, e := range target.CouplingMap {
		directed[e] = true
	}

	ecrCount := 0
	for _, g := range out.Gates {
		assert.Contains(t, target.BasisGates, g.Name)
		if g.Name == "ecr" {
			ecrCount++
			assert.True(t, directed[[2]int{g.Qubits[0], g.Qubits[1]}], "ecr on %v against native direction", g.Qubits)
		}
	}
	assert.Equal(t, 3*17, ecrCount)

	qasm := out.QASM3()
	assert.NotContains(t, qasm, "cz ")
	assert.Contains(t, qasm, "ecr $")
	assert.True(t, strings.Contains(qasm, "rz(1.5707963267948966) $"))
}

type matrix [4][4]complex128

func mul(a, b matrix) matrix {
	var out matrix
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 4; k++ {
				out[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return out
}

// lift places a single-qubit operator on qubit q of a two-qubit register,
// with basis index bit q holding qubit q.
func lift(u [2][2]complex128, q int) matrix {
	var out matrix
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			other := 1 - q
			if (i>>other)&1 != (j>>other)&1 {
				continue
			}
			out[i][j] = u[(i>>q)&1][(j>>q)&1]
		}
	}
	return out
}

func gateMatrix(t *testing.T, g Gate) matrix {
	t.Helper()
	switch g.Name {
	case "rz":
		return lift([2][2]complex128{
			{cmplx.Exp(complex(0, -g.Angle/2)), 0},
			{0, cmplx.Exp(complex(0, g.Angle/2))},
		}, g.Qubits[0])
	case "sx":
		return lift([2][2]complex128{
			{complex(0.5, 0.5), complex(0.5, -0.5)},
			{complex(0.5, -0.5), complex(0.5, 0.5)},
		}, g.Qubits[0])
	case "x":
		return lift([2][2]complex128{{0, 1}, {1, 0}}, g.Qubits[0])
	case "ecr":
		require.Equal(t, []int{0, 1}, g.Qubits)
		s := complex(1/math.Sqrt2, 0)
		i := complex(0, 1/math.Sqrt2)
		return matrix{
			{0, s, 0, i},
			{s, 0, -i, 0},
			{0, i, 0, s},
			{-i, 0, s, 0},
		}
	}
	t.Fatalf("no matrix for %s", g.Name)
	return matrix{}
}

func TestCZViaECRIsCZ(t *testing.T) {
	u := matrix{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
	for _, g := range czViaECR(0, 1) {
		u = mul(gateMatrix(t, g), u)
	}

	cz := matrix{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, -1}}
	phase := u[0][0]
	require.InDelta(t, 1, cmplx.Abs(phase), 1e-9)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			assert.InDelta(t, 0, cmplx.Abs(u[i][j]-phase*cz[i][j]), 1e-9, "entry %d,%d", i, j)
		}
	}
}

func TestTranslateFollowsNativeDirection(t *testing.T) {
	pm, err := GeneratePresetPassManager(Target{
		Name:        "fake_pair",
		NumQubits:   2,
		BasisGates:  []string{"ecr", "rz", "sx", "x"},
		CouplingMap: [][2]int{{1, 0}},
	}, 1)
	require.NoError(t, err)

	gates := pm.(*presetPassManager).translate(Gate{Name: "cz", Qubits: []int{0, 1}})
	for _, g := range gates {
		if g.Name == "ecr" {
			assert.Equal(t, []int{1, 0}, g.Qubits)
		}
	}

	kept := pm.(*presetPassManager).translate(Gate{Name: "sx", Qubits: []int{0}})
	assert.Equal(t, []Gate{{Name: "sx", Qubits: []int{0}}}, kept)
}
