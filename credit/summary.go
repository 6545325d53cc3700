package credit

// Summarize computes the per-party rollup from a record set. It is the
// reference aggregation the SQL summaries must agree with: absent statuses
// contribute zero, and the distinct-buyer count covers every record passed in.
func Summarize(records []Record) Summary {
	var sum Summary
	buyers := map[string]bool{}

	for _, rec := range records {
		sum.TotalCredits++
		buyers[rec.BuyerID] = true
		switch rec.Status {
		case StatusPending:
			sum.PendingAmount += rec.Amount
		case StatusActive:
			sum.ActiveAmount += rec.Amount
		case StatusOverdue:
			sum.OverdueAmount += rec.Amount
			sum.OverdueCount++
		case StatusPaid:
			sum.PaidAmount += rec.Amount
		}
	}
	sum.UniqueBuyers = len(buyers)
	return sum
}
