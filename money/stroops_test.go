package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToXLM(t *testing.T) {
	assert.Equal(t, "0.0000000", ToXLM(0))
	assert.Equal(t, "0.0000001", ToXLM(1))
	assert.Equal(t, "1.0000000", ToXLM(10_000_000))
	assert.Equal(t, "2.5000000", ToXLM(25_000_000))
	assert.Equal(t, "123.4567890", ToXLM(1_234_567_890))
	assert.Equal(t, "-1.5000000", ToXLM(-15_000_000))
}

func TestToStroops(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"1", 10_000_000},
		{"2.5", 25_000_000},
		{"0.0000001", 1},
		{".5", 5_000_000},
		{"10.00", 100_000_000},
		{" 3.14 ", 31_400_000},
		// sub-stroop precision is floored, never rounded up
		{"0.00000019", 1},
		{"1.99999999", 19_999_999},
	}
	for _, c := range cases {
		got, err := ToStroops(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestToStroopsRejectsJunk(t *testing.T) {
	// "1.-5" and "1.+5" would parse digit-by-digit through ParseInt, which
	// tolerates a leading sign inside the fraction
	for _, in := range []string{"", "abc", "-1", "-0.5", "1.2.3", "1,5", "1e7", "0.12a", "1.-5", "1.+5", "+1.+5", "1. 5"} {
		_, err := ToStroops(in)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, stroops := range []int64{0, 1, 7, 9_999_999, 10_000_000, 25_000_000, 123_456_789_012} {
		s := ToXLM(stroops)
		back, err := ToStroops(s)
		require.NoError(t, err)
		assert.Equal(t, stroops, back, s)
	}
}

func TestSplitStroops(t *testing.T) {
	provider, platform := SplitStroops(100_000_000)
	assert.Equal(t, int64(95_000_000), provider)
	assert.Equal(t, int64(5_000_000), platform)
	assert.Equal(t, int64(100_000_000), provider+platform)

	// shares always recompose the payment exactly
	for _, payment := range []int64{1, 99, 10_000_000, 33_333_333} {
		p, f := SplitStroops(payment)
		assert.Equal(t, payment, p+f)
	}
}

func TestFeeSplitDisplay(t *testing.T) {
	provider, platform := FeeSplit(100_000_000)
	assert.Equal(t, "9.5000", provider)
	assert.Equal(t, "0.5000", platform)
}

// A job priced at 2.5 XLM/hour for 4 hours costs 100,000,000 stroops and
// pays the provider 9.5 XLM after the 5% platform cut.
func TestHourlyJobScenario(t *testing.T) {
	rate, err := ToStroops("2.5")
	require.NoError(t, err)

	payment := rate * 4
	assert.Equal(t, int64(100_000_000), payment)
	assert.Equal(t, "10.0000000", ToXLM(payment))

	provider, platform := SplitStroops(payment)
	assert.Equal(t, "9.5000000", ToXLM(provider))
	assert.Equal(t, "0.5000000", ToXLM(platform))
}
