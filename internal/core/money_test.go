package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:       "0.00",
		5:       "0.05",
		123456:  "1234.56",
		-75_000: "-750.00",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Errorf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 105_050})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"1050.50"` {
		t.Fatalf("marshal = %s", b)
	}

	for _, in := range []string{`"1050.50"`, `1050.5`, `"1050,50"`} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			if in == `"1050,50"` {
				continue // comma is only accepted by ParseDecimalToCents
			}
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if m.Cents != 105_050 {
			t.Fatalf("unmarshal %s = %d", in, m.Cents)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`"nope"`), &m); err == nil {
		t.Fatal("expected error for non-numeric string")
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 1000}
	b := Money{Cents: 250}
	if got := a.Add(b); got.Cents != 1250 {
		t.Fatalf("Add = %d", got.Cents)
	}
	if got := a.Sub(b); got.Cents != 750 {
		t.Fatalf("Sub = %d", got.Cents)
	}
	if got := b.Neg(); got.Cents != -250 {
		t.Fatalf("Neg = %d", got.Cents)
	}
	if got := a.Euros(); got != 10 {
		t.Fatalf("Euros = %v", got)
	}
}
