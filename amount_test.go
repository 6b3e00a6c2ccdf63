package nftagg

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int32
		want     string
		wantErr  bool
	}{
		{name: "whole ether", amount: "1", decimals: 18, want: "1000000000000000000"},
		{name: "fractional", amount: "1.5", decimals: 18, want: "1500000000000000000"},
		{name: "usdc six decimals", amount: "2500.25", decimals: 6, want: "2500250000"},
		{name: "excess precision truncates", amount: "0.0000001", decimals: 6, want: "0"},
		{name: "zero", amount: "0", decimals: 18, want: "0"},
		{name: "negative rejected", amount: "-1", decimals: 18, wantErr: true},
		{name: "garbage rejected", amount: "one", decimals: 18, wantErr: true},
		{name: "decimals out of range", amount: "1", decimals: 19, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUnits(tt.amount, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidParams)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFormatUnits(t *testing.T) {
	units, err := ParseUnits("1.5", 18)
	require.NoError(t, err)
	assert.Equal(t, "1.5", FormatUnits(units, 18))
}

func TestBpsFloors(t *testing.T) {
	// 1% of 1 ETH
	assert.Equal(t, "10000000000000000", Bps(big.NewInt(1e18), 100).String())
	// 250 bps of 1001 wei floors the remainder
	assert.Equal(t, "25", Bps(big.NewInt(1001), 250).String())
	assert.Equal(t, "0", Bps(big.NewInt(1), 1).String())
}

func TestPartialAmount(t *testing.T) {
	total := big.NewInt(1000)
	assert.Equal(t, "200", PartialAmount(total, big.NewInt(2), big.NewInt(10)).String())
	assert.Equal(t, "333", PartialAmount(total, big.NewInt(1), big.NewInt(3)).String())
	assert.Equal(t, "0", PartialAmount(total, big.NewInt(1), nil).String())
	assert.Equal(t, "0", PartialAmount(total, big.NewInt(1), new(big.Int)).String())
}

// Sequential partial fills of the full quantity must pay out no more than one
// whole fill, and the shortfall is only floor-division dust.
func TestPartialAmountLinearity(t *testing.T) {
	total := big.NewInt(999999999)
	den := big.NewInt(7)
	sum := new(big.Int)
	for i := 0; i < 7; i++ {
		sum.Add(sum, PartialAmount(total, big.NewInt(1), den))
	}
	assert.True(t, sum.Cmp(total) <= 0)
	dust := new(big.Int).Sub(total, sum)
	assert.True(t, dust.Cmp(den) < 0, "dust %s exceeds denominator", dust)
}

func TestInterpolateAmount(t *testing.T) {
	start, end := big.NewInt(1000), big.NewInt(400)
	const t0, t1 = int64(100), int64(700)

	assert.Equal(t, "1000", InterpolateAmount(start, end, t0, t1, t0).String())
	assert.Equal(t, "400", InterpolateAmount(start, end, t0, t1, t1).String())
	// clamped outside the window
	assert.Equal(t, "1000", InterpolateAmount(start, end, t0, t1, t0-50).String())
	assert.Equal(t, "400", InterpolateAmount(start, end, t0, t1, t1+50).String())
	// halfway
	assert.Equal(t, "700", InterpolateAmount(start, end, t0, t1, 400).String())

	// monotonic descent
	prev := InterpolateAmount(start, end, t0, t1, t0)
	for at := t0 + 1; at <= t1; at += 7 {
		cur := InterpolateAmount(start, end, t0, t1, at)
		assert.True(t, cur.Cmp(prev) <= 0, "price rose at t=%d", at)
		prev = cur
	}

	// degenerate window returns the start price
	assert.Equal(t, "1000", InterpolateAmount(start, end, 500, 500, 600).String())
}

func TestRandomSalt(t *testing.T) {
	a, b := RandomSalt(), RandomSalt()
	assert.NotEqual(t, a.String(), b.String())
	assert.True(t, a.BitLen() <= 128)
}

func TestOrderInfoFees(t *testing.T) {
	info := &OrderInfo{
		Price: big.NewInt(1000),
		Fees: []FeeItem{
			{Amount: big.NewInt(25)},
			{Amount: big.NewInt(10)},
		},
	}
	assert.Equal(t, "35", info.TotalFees().String())
	assert.Equal(t, "965", info.NetPrice().String())

	// zero-fee orders introduce no rounding artifacts
	bare := &OrderInfo{Price: big.NewInt(1000)}
	assert.Equal(t, "0", bare.TotalFees().String())
	assert.Equal(t, "1000", bare.NetPrice().String())
}
