package grid

import (
	"encoding/json"
	"math"
	"testing"
)

func TestNormalizeNumeric(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want float64
	}{
		{"nil", nil, 0},
		{"empty", "", 0},
		{"spaces", "   ", 0},
		{"plain", "1000", 1000},
		{"separators", "1,000", 1000},
		{"padded", "  2,500.50 ", 2500.5},
		{"negative", "-3", -3},
		{"garbage", "abc", 0},
		{"float", 12.5, 12.5},
		{"int", 7, 7},
		{"int64", int64(42), 42},
		{"json number", json.Number("1,234"), 1234},
		{"nan", math.NaN(), 0},
		{"inf string", "Inf", 0},
		{"bool", true, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeNumeric(tc.in); got != tc.want {
				t.Fatalf("NormalizeNumeric(%#v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"trim", "  lunch  ", "lunch"},
		{"collapse", "a   b\t\tc", "a b c"},
		{"float", 1.5, "1.5"},
		{"int", 3, "3"},
		{"json number", json.Number("10"), "10"},
		{"bool", false, "false"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeText(tc.in); got != tc.want {
				t.Fatalf("NormalizeText(%#v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	values := []any{nil, "", " 1,000 ", "x  y ", 3.25, -0.0, "abc", json.Number("7"), int64(9), "1e3"}
	for _, v := range values {
		n := NormalizeNumeric(v)
		if again := NormalizeNumeric(n); again != n {
			t.Fatalf("numeric normalize not idempotent for %#v: %v then %v", v, n, again)
		}
		s := NormalizeText(v)
		if again := NormalizeText(s); again != s {
			t.Fatalf("text normalize not idempotent for %#v: %q then %q", v, s, again)
		}
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank(nil, KindNumeric) || !IsBlank("", KindNumeric) || !IsBlank("0", KindNumeric) {
		t.Fatalf("IsBlank numeric should treat nil, empty and zero as blank")
	}
	if IsBlank("5", KindNumeric) {
		t.Fatalf("IsBlank(5) = true, want false")
	}
	if !IsBlank("   ", KindText) {
		t.Fatalf("IsBlank(spaces) = false, want true")
	}
	if IsBlank("x", KindText) {
		t.Fatalf("IsBlank(x) = true, want false")
	}
}

func TestPresent(t *testing.T) {
	cases := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{"", false},
		{"   ", false},
		{"0", true},
		{0, true},
		{"x", true},
	}
	for _, tc := range cases {
		if got := Present(tc.v); got != tc.want {
			t.Fatalf("Present(%#v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}
