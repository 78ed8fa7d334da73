package fixed

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestScale(t *testing.T) {
	s := Scale()
	require.Equal(t, "1000000000000000000", s.Dec())
}

func TestAddSub(t *testing.T) {
	a := FromUint64(7)
	b := FromUint64(5)

	sum, err := Add(a, b)
	require.NoError(t, err)
	require.Equal(t, uint64(12), sum.Uint64())

	diff, err := Sub(a, b)
	require.NoError(t, err)
	require.Equal(t, uint64(2), diff.Uint64())

	_, err = Sub(b, a)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestAddOverflow(t *testing.T) {
	var max uint256.Int
	max.SetAllOne()
	_, err := Add(max, FromUint64(1))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestMulScaledFloors(t *testing.T) {
	// 0.5 * 0.3 = 0.15 exactly.
	half, err := MulDiv(Scale(), FromUint64(1), FromUint64(2))
	require.NoError(t, err)
	tenth3, err := MulDiv(Scale(), FromUint64(3), FromUint64(10))
	require.NoError(t, err)

	got, err := MulScaled(half, tenth3)
	require.NoError(t, err)
	want, err := MulDiv(Scale(), FromUint64(15), FromUint64(100))
	require.NoError(t, err)
	require.True(t, got.Eq(&want))

	// 1/3 floors: 3 * floor(SCALE/3) < SCALE.
	third, err := MulDiv(Scale(), FromUint64(1), FromUint64(3))
	require.NoError(t, err)
	tripled, err := Mul(third, FromUint64(3))
	require.NoError(t, err)
	scale := Scale()
	require.True(t, tripled.Lt(&scale))
}

func TestMulDivLargeIntermediate(t *testing.T) {
	// SCALE * SCALE overflows 64 bits but not the 512-bit intermediate.
	got, err := MulDiv(Scale(), Scale(), Scale())
	require.NoError(t, err)
	want := Scale()
	require.True(t, got.Eq(&want))

	_, err = MulDiv(Scale(), Scale(), Zero())
	require.ErrorIs(t, err, ErrOverflow)
}

func TestRatio(t *testing.T) {
	r, err := Ratio(3, 4)
	require.NoError(t, err)
	want, err := MulDiv(Scale(), FromUint64(75), FromUint64(100))
	require.NoError(t, err)
	require.True(t, r.Eq(&want))

	_, err = Ratio(1, 0)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestParse(t *testing.T) {
	n, err := Parse("1000000000000000000")
	require.NoError(t, err)
	scale := Scale()
	require.True(t, n.Eq(&scale))

	_, err = Parse("not-a-number")
	require.Error(t, err)
}

func TestClamp(t *testing.T) {
	over, err := Add(Scale(), FromUint64(1))
	require.NoError(t, err)
	clamped := Clamp(over, Scale())
	scale := Scale()
	require.True(t, clamped.Eq(&scale))

	under := FromUint64(5)
	kept := Clamp(under, Scale())
	require.True(t, kept.Eq(&under))
}
