package domain

import "testing"

func TestComputeKPIsCountsOnlyRealizedRevenue(t *testing.T) {
	facts := []BookingFact{
		{Status: "CONFIRMED", Diners: 2, Prime: true, FeeAmount: 10000, PlatformFee: 1000},
		{Status: "CONFIRMED", Diners: 4, Prime: false, FeeAmount: 5000, PlatformFee: 500},
		{Status: "CANCELLED", Diners: 2, Prime: false, FeeAmount: 0},
		{Status: "NO_SHOW", Diners: 6, Prime: true, FeeAmount: 20000, PlatformFee: 2000},
	}

	report := ComputeKPIs(facts)

	if report.TotalBookings != 4 {
		t.Fatalf("expected 4 bookings, got %d", report.TotalBookings)
	}
	if report.TotalRevenue != 15000 {
		t.Fatalf("expected revenue 15000, got %d", report.TotalRevenue)
	}
	if report.TotalDiners != 6 {
		t.Fatalf("expected 6 diners, got %d", report.TotalDiners)
	}
	if report.PlatformFees != 1500 {
		t.Fatalf("expected platform fees 1500, got %d", report.PlatformFees)
	}
	if report.StatusBreakdown["CONFIRMED"] != 2 {
		t.Fatalf("expected 2 confirmed, got %d", report.StatusBreakdown["CONFIRMED"])
	}
	if report.StatusBreakdown["CANCELLED"] != 1 {
		t.Fatalf("expected 1 cancelled, got %d", report.StatusBreakdown["CANCELLED"])
	}
	if report.StatusBreakdown["NO_SHOW"] != 1 {
		t.Fatalf("expected 1 no-show, got %d", report.StatusBreakdown["NO_SHOW"])
	}

	// One prime booking out of two realized.
	if report.PrimeConversionRate != 0.5 {
		t.Fatalf("expected prime conversion 0.5, got %f", report.PrimeConversionRate)
	}
	if report.AvgPrimeSpend != 10000 {
		t.Fatalf("expected avg prime spend 10000, got %f", report.AvgPrimeSpend)
	}
}

func TestComputeKPIsCompletedExcludedFromRevenue(t *testing.T) {
	report := ComputeKPIs([]BookingFact{
		{Status: "COMPLETED", Diners: 3, Prime: true, FeeAmount: 7500, PlatformFee: 750},
	})

	if report.TotalRevenue != 0 {
		t.Fatalf("expected revenue 0, got %d", report.TotalRevenue)
	}
	if report.TotalDiners != 0 {
		t.Fatalf("expected 0 diners, got %d", report.TotalDiners)
	}
	if report.PrimeConversionRate != 0 {
		t.Fatalf("expected prime conversion 0, got %f", report.PrimeConversionRate)
	}
	if report.StatusBreakdown["COMPLETED"] != 1 {
		t.Fatalf("expected 1 completed in breakdown, got %d", report.StatusBreakdown["COMPLETED"])
	}
}

func TestComputeKPIsZeroDenominators(t *testing.T) {
	report := ComputeKPIs([]BookingFact{
		{Status: "CANCELLED", Diners: 2, Prime: true, FeeAmount: 5000},
	})

	if report.PrimeConversionRate != 0 {
		t.Fatalf("expected prime conversion 0 with no realized bookings, got %f", report.PrimeConversionRate)
	}
	if report.AvgPrimeSpend != 0 {
		t.Fatalf("expected avg prime spend 0 with no prime bookings, got %f", report.AvgPrimeSpend)
	}

	empty := ComputeKPIs(nil)
	if empty.TotalBookings != 0 || empty.TotalRevenue != 0 {
		t.Fatalf("expected empty report, got %+v", empty)
	}
}

func TestMergeDailyStatsMatchesComputeKPIs(t *testing.T) {
	stats := []DailyStat{
		{
			Date:             "2024-03-01",
			ConfirmedCount:   2,
			CancelledCount:   1,
			RealizedBookings: 2,
			RealizedCovers:   6,
			PrimeBookings:    1,
			PrimeRevenue:     10000,
			NonPrimeRevenue:  5000,
			PlatformFees:     1500,
		},
		{
			Date:             "2024-03-02",
			ConfirmedCount:   1,
			NoShowCount:      1,
			CompletedCount:   1,
			RealizedBookings: 1,
			RealizedCovers:   3,
			PrimeBookings:    1,
			PrimeRevenue:     7500,
			PlatformFees:     750,
		},
	}

	report := MergeDailyStats(stats)

	if report.TotalBookings != 6 {
		t.Fatalf("expected 6 bookings, got %d", report.TotalBookings)
	}
	if report.TotalRevenue != 22500 {
		t.Fatalf("expected revenue 22500, got %d", report.TotalRevenue)
	}
	if report.TotalDiners != 9 {
		t.Fatalf("expected 9 covers, got %d", report.TotalDiners)
	}

	// Two prime out of three realized.
	want := float64(2) / float64(3)
	if report.PrimeConversionRate != want {
		t.Fatalf("expected prime conversion %f, got %f", want, report.PrimeConversionRate)
	}
	if report.AvgPrimeSpend != 8750 {
		t.Fatalf("expected avg prime spend 8750, got %f", report.AvgPrimeSpend)
	}
}
