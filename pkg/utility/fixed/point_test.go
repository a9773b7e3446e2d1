package fixed

import (
	"testing"
)

func TestFixedPoint_Arithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   func() Point
		want string
	}{
		{"Add", func() Point { return FromFloat64(1.1).Add(FromFloat64(2.2)) }, "3.3"},
		{"Sub", func() Point { return FromFloat64(5.5).Sub(FromFloat64(2.2)) }, "3.3"},
		{"Mul", func() Point { return FromFloat64(1.5).Mul(Two) }, "3.0"},
		{"Div", func() Point { return FromInt(9, 0).Div(Two) }, "4.5"},
		{"MulInt", func() Point { return FromFloat64(0.01).MulInt(100) }, "1.00"},
		{"DivInt64", func() Point { return One.DivInt64(4) }, "0.25"},
		{"Neg", func() Point { return FromFloat64(1.5).Neg() }, "-1.5"},
		{"Abs", func() Point { return FromFloat64(-1.5).Abs() }, "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op().String(); got != tt.want {
				t.Errorf("%s = %s; want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestFixedPoint_RoundHalfUp(t *testing.T) {
	tests := []struct {
		value string
		scale int
		want  string
	}{
		{"1.10005", 4, "1.1001"},
		{"1.10004", 4, "1.1000"},
		{"1.10015", 4, "1.1002"},
		{"150.005", 2, "150.01"},
		{"-1.10005", 4, "-1.1001"},
		{"0.5", 0, "1"},
		{"2.5", 0, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			p, err := FromString(tt.value)
			if err != nil {
				t.Fatalf("FromString(%s): %v", tt.value, err)
			}
			if got := p.RoundHalfUp(tt.scale).String(); got != tt.want {
				t.Errorf("RoundHalfUp(%s, %d) = %s; want %s", tt.value, tt.scale, got, tt.want)
			}
		})
	}
}

func TestFixedPoint_Comparisons(t *testing.T) {
	tests := []struct {
		name   string
		result bool
		want   bool
	}{
		{"Zero.IsZero()", Zero.IsZero(), true},
		{"One.IsZero()", One.IsZero(), false},
		{"One > Zero", One.Gt(Zero), true},
		{"Neg.IsNegative()", One.Neg().IsNegative(), true},
		{"Hundred.Gte(Fifty)", Hundred.Gte(Fifty), true},
		{"PointFive < One", PointFive.Lt(One), true},
		{"Two.Gte(Two)", Two.Gte(Two), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result; got != tt.want {
				t.Errorf("%s = %v; want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestFixedPoint_MinMax(t *testing.T) {
	a := FromFloat64(1.1)
	b := FromFloat64(2.2)

	if got := a.Min(b); !got.Eq(a) {
		t.Errorf("Min = %s; want %s", got, a)
	}
	if got := a.Max(b); !got.Eq(b) {
		t.Errorf("Max = %s; want %s", got, b)
	}
}

func TestFixedPoint_TextRoundTrip(t *testing.T) {
	p := FromFloat64(1.2345)

	data, err := p.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	var out Point
	if err := out.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if !out.Eq(p) {
		t.Errorf("round trip = %s; want %s", out, p)
	}
}
