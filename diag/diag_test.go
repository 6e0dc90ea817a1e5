package diag

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func ar1Series(n int, rho float64, rng *rand.Rand) []float64 {
	x := make([]float64, n)
	for i := 1; i < n; i++ {
		x[i] = rho*x[i-1] + rng.NormFloat64()
	}

	return x
}

func TestACF(t *testing.T) {
	// lag 0 is always 1
	x := []float64{1, 2, 3, 4, 5, 4, 3, 2, 1, 2}
	acf := ACF(x, 3)
	require.NotNil(t, acf)
	assert.InDelta(t, 1.0, acf[0], 1e-12)
	assert.Equal(t, 4, len(acf))

	// constant series has no autocorrelation
	assert.Nil(t, ACF([]float64{2, 2, 2}, 1))

	// maxLag clamps at n-1
	assert.Equal(t, 3, len(ACF([]float64{1, 2, 1}, 10)))
}

func TestACF_StrongAR1(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := ar1Series(400, 0.8, rng)

	acf := ACF(x, 5)
	require.NotNil(t, acf)
	assert.Greater(t, acf[1], 0.6)
	assert.Greater(t, acf[1], acf[2])
}

func TestPACF(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	x := ar1Series(400, 0.7, rng)

	pacf := PACF(x, 5)
	require.NotNil(t, pacf)
	// for AR(1), the partial autocorrelation cuts off after lag 1
	assert.Greater(t, pacf[1], 0.5)
	assert.Less(t, math.Abs(pacf[3]), 0.2)
}

func TestLjungBox(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	x := ar1Series(200, 0.8, rng)
	lb := LjungBox(x, 5, 0)
	require.NotNil(t, lb)
	assert.True(t, lb.Reject(0.05))
	assert.Equal(t, 5, lb.DOF)

	white := make([]float64, 200)
	for i := range white {
		white[i] = rng.NormFloat64()
	}
	lb = LjungBox(white, 5, 0)
	require.NotNil(t, lb)
	assert.False(t, lb.Reject(0.05))

	assert.Nil(t, LjungBox([]float64{1}, 1, 0))
	assert.Nil(t, LjungBox([]float64{1, 1, 1}, 1, 0))
}

func TestDurbinWatson(t *testing.T) {
	// alternating residuals: negative serial correlation, DW near 4
	alt := []float64{1, -1, 1, -1, 1, -1, 1, -1}
	assert.Greater(t, DurbinWatson(alt), 3.0)

	// smooth trend: positive serial correlation, DW near 0
	smooth := []float64{1, 1.1, 1.2, 1.3, 1.4, 1.5}
	assert.Less(t, DurbinWatson(smooth), 1.0)

	assert.True(t, math.IsNaN(DurbinWatson([]float64{1})))
	assert.True(t, math.IsNaN(DurbinWatson([]float64{0, 0})))
}

func TestBreuschPagan(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := 300

	x := mat.NewDense(n, 2, nil)
	resid := make([]float64, n)
	for i := 0; i < n; i++ {
		z := float64(i) / float64(n)
		x.Set(i, 0, 1)
		x.Set(i, 1, z)
		// variance grows with z
		resid[i] = rng.NormFloat64() * (0.2 + 3*z)
	}

	bp := BreuschPagan(resid, x)
	require.NotNil(t, bp)
	assert.Equal(t, 1, bp.DOF)
	assert.True(t, bp.Reject(0.05))

	// homoscedastic residuals should not reject
	for i := 0; i < n; i++ {
		resid[i] = rng.NormFloat64()
	}
	bp = BreuschPagan(resid, x)
	require.NotNil(t, bp)
	assert.False(t, bp.Reject(0.05))
}

func TestJarqueBera(t *testing.T) {
	rng := rand.New(rand.NewSource(9))

	normal := make([]float64, 500)
	for i := range normal {
		normal[i] = rng.NormFloat64()
	}
	jb := JarqueBera(normal)
	require.NotNil(t, jb)
	assert.False(t, jb.Reject(0.05))

	// exponential residuals are right-skewed
	skewed := make([]float64, 500)
	for i := range skewed {
		skewed[i] = rng.ExpFloat64()
	}
	jb = JarqueBera(skewed)
	require.NotNil(t, jb)
	assert.True(t, jb.Reject(0.05))
	assert.Greater(t, jb.Skewness, 0.5)

	assert.Nil(t, JarqueBera([]float64{1, 2}))
}

func TestGroupAutocorr(t *testing.T) {
	rng := rand.New(rand.NewSource(13))

	groups := []Grouped{
		{Name: "MOUNTAIN:IRRIGATED", Resid: ar1Series(100, 0.8, rng)},
		{Name: "PACIFIC:IRRIGATED", Resid: []float64{0.5}},
		{Name: "PACIFIC:NON-IRRIGATED", Resid: ar1Series(100, 0.0, rng)},
	}

	results := GroupAutocorr(groups, 5)
	require.Equal(t, 3, len(results))

	assert.False(t, results[0].Skipped)
	assert.Greater(t, results[0].Rho1, 0.5)

	// single observation: skipped, not fatal
	assert.True(t, results[1].Skipped)
	assert.Nil(t, results[1].ACF)

	reject, offenders := AnyReject(results, 0.05)
	assert.True(t, reject)
	assert.Equal(t, []string{"MOUNTAIN:IRRIGATED"}, offenders)
}

// Each group's estimate comes from its own residuals only: reordering one
// group cannot move another group's lag-1 coefficient.
func TestGroupAutocorr_Independent(t *testing.T) {
	rng := rand.New(rand.NewSource(17))

	a := ar1Series(60, 0.7, rng)
	b := ar1Series(60, 0.3, rng)

	before := GroupAutocorr([]Grouped{{Name: "a", Resid: a}, {Name: "b", Resid: b}}, 5)

	// permute the year order of group a
	aPerm := make([]float64, len(a))
	copy(aPerm, a)
	rng.Shuffle(len(aPerm), func(i, j int) { aPerm[i], aPerm[j] = aPerm[j], aPerm[i] })

	after := GroupAutocorr([]Grouped{{Name: "a", Resid: aPerm}, {Name: "b", Resid: b}}, 5)

	assert.NotEqual(t, before[0].Rho1, after[0].Rho1)
	assert.Equal(t, before[1].Rho1, after[1].Rho1)
	assert.Equal(t, before[1].LjungBox.Statistic, after[1].LjungBox.Statistic)
}
