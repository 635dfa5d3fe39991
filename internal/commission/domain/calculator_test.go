package domain

import "testing"

func TestCalculatePerCover(t *testing.T) {
	cases := []struct {
		name      string
		rateValue float64
		diners    int
		want      int64
	}{
		{name: "four covers at two dollars", rateValue: 200, diners: 4, want: 800},
		{name: "single cover", rateValue: 350, diners: 1, want: 350},
		{name: "fractional rate rounds half away", rateValue: 2.5, diners: 3, want: 8},
		{name: "zero covers", rateValue: 200, diners: 0, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Calculate(ModelPerCover, tc.rateValue, tc.diners, 0)
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestCalculatePercentOfSpend(t *testing.T) {
	cases := []struct {
		name      string
		rateValue float64
		feeAmount int64
		want      int64
	}{
		// $140.00 at 8% is exactly $11.20.
		{name: "140 dollars at eight percent", rateValue: 0.08, feeAmount: 14000, want: 1120},
		{name: "rounds half away from zero", rateValue: 0.05, feeAmount: 1250, want: 63},
		{name: "small fee rounds down", rateValue: 0.01, feeAmount: 49, want: 0},
		{name: "zero fee", rateValue: 0.08, feeAmount: 0, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Calculate(ModelPercentOfSpend, tc.rateValue, 2, tc.feeAmount)
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestCalculateUnknownModel(t *testing.T) {
	if got := Calculate(Model("FLAT"), 100, 4, 1000); got != 0 {
		t.Fatalf("expected 0 for unknown model, got %d", got)
	}
}
