package model

import "testing"

func TestPriceLabel(t *testing.T) {
	tests := []struct {
		price float64
		want  string
	}{
		{450, "450"},
		{499.5, "499.5"},
		{0.25, "0.25"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := (Listing{Price: tt.price}).PriceLabel(); got != tt.want {
			t.Fatalf("got=%v want=%v", got, tt.want)
		}
	}
}
