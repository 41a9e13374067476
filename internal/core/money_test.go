package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "dot separator", input: "12.34", want: 1234},
		{name: "comma separator", input: "12,34", want: 1234},
		{name: "integer", input: "50", want: 5000},
		{name: "zero allowed", input: "0", want: 0},
		{name: "single fraction digit", input: "7.5", want: 750},
		{name: "rounds half up", input: "12.346", want: 1235},
		{name: "rounds down", input: "12.344", want: 1234},
		{name: "leading dot", input: ".99", want: 99},
		{name: "negative rejected", input: "-5", wantErr: true},
		{name: "plus sign rejected", input: "+5", wantErr: true},
		{name: "letters rejected", input: "12a", wantErr: true},
		{name: "two separators rejected", input: "1.2.3", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDecimalToCents(%q) expected error, got %d", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecimalToCents(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1234, "12.34"},
		{-1234, "-12.34"},
		{100000, "1000.00"},
	}
	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	total := Money{Cents: 10000}
	paid := Money{Cents: 3500}

	if got := total.Sub(paid).Cents; got != 6500 {
		t.Errorf("Sub = %d, want 6500", got)
	}
	if got := paid.Add(Money{Cents: 6500}).Cents; got != total.Cents {
		t.Errorf("Add = %d, want %d", got, total.Cents)
	}
}
