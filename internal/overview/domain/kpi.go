package domain

// BookingFact is the slice of a booking the aggregator needs. Amounts
// are minor units.
type BookingFact struct {
	Status      string
	Diners      int
	Prime       bool
	FeeAmount   int64
	PlatformFee int64
}

// Report is the overview KPI bundle. Revenue and covers count only
// CONFIRMED bookings; completion, cancellation and no-show all move a
// booking out of the confirmed aggregates, leaving its breakdown entry.
// Prime conversion is prime-confirmed over all-confirmed.
type Report struct {
	TotalBookings   int64            `json:"total_bookings"`
	StatusBreakdown map[string]int64 `json:"status_breakdown"`

	TotalDiners     int64 `json:"total_diners"`
	PrimeRevenue    int64 `json:"prime_revenue"`
	NonPrimeRevenue int64 `json:"non_prime_revenue"`
	TotalRevenue    int64 `json:"total_revenue"`
	PlatformFees    int64 `json:"platform_fees"`

	PrimeConversionRate float64 `json:"prime_conversion_rate"`
	AvgPrimeSpend       float64 `json:"avg_prime_spend"`
}

func realized(status string) bool {
	return status == "CONFIRMED"
}

// ComputeKPIs folds booking facts into a Report.
func ComputeKPIs(facts []BookingFact) Report {
	report := Report{StatusBreakdown: make(map[string]int64)}

	var realizedBookings, primeBookings int64
	for _, fact := range facts {
		report.TotalBookings++
		report.StatusBreakdown[fact.Status]++

		if !realized(fact.Status) {
			continue
		}
		realizedBookings++
		report.TotalDiners += int64(fact.Diners)
		report.PlatformFees += fact.PlatformFee
		if fact.Prime {
			primeBookings++
			report.PrimeRevenue += fact.FeeAmount
		} else {
			report.NonPrimeRevenue += fact.FeeAmount
		}
	}

	report.TotalRevenue = report.PrimeRevenue + report.NonPrimeRevenue
	if realizedBookings > 0 {
		report.PrimeConversionRate = float64(primeBookings) / float64(realizedBookings)
	}
	if primeBookings > 0 {
		report.AvgPrimeSpend = float64(report.PrimeRevenue) / float64(primeBookings)
	}
	return report
}

// MergeDailyStats folds snapshot rows into a Report. Equivalent to
// ComputeKPIs over the underlying bookings.
func MergeDailyStats(stats []DailyStat) Report {
	report := Report{StatusBreakdown: make(map[string]int64)}

	var realizedBookings, primeBookings int64
	for _, stat := range stats {
		report.StatusBreakdown["PENDING"] += stat.PendingCount
		report.StatusBreakdown["CONFIRMED"] += stat.ConfirmedCount
		report.StatusBreakdown["CANCELLED"] += stat.CancelledCount
		report.StatusBreakdown["NO_SHOW"] += stat.NoShowCount
		report.StatusBreakdown["COMPLETED"] += stat.CompletedCount
		report.TotalBookings += stat.PendingCount + stat.ConfirmedCount +
			stat.CancelledCount + stat.NoShowCount + stat.CompletedCount

		realizedBookings += stat.RealizedBookings
		primeBookings += stat.PrimeBookings
		report.TotalDiners += stat.RealizedCovers
		report.PrimeRevenue += stat.PrimeRevenue
		report.NonPrimeRevenue += stat.NonPrimeRevenue
		report.PlatformFees += stat.PlatformFees
	}

	report.TotalRevenue = report.PrimeRevenue + report.NonPrimeRevenue
	if realizedBookings > 0 {
		report.PrimeConversionRate = float64(primeBookings) / float64(realizedBookings)
	}
	if primeBookings > 0 {
		report.AvgPrimeSpend = float64(report.PrimeRevenue) / float64(primeBookings)
	}
	return report
}
