package pricing

// LineItem is one labeled entry of the auditable quote breakdown.
type LineItem struct {
	Label  string `json:"label"`
	Amount Money  `json:"-"`
	Cents  int64  `json:"amount_cents"`
}

func newLineItem(label string, amount Money) LineItem {
	return LineItem{Label: label, Amount: amount, Cents: amount.Cents()}
}

// Quote is the immutable result of one price computation. TBDEstimate is a
// structurally separate bucket (tasting/dining figures): it never feeds
// Total or DepositAmount. A changed request produces a new Quote, never an
// in-place edit.
type Quote struct {
	RateTableVersion     int32      `json:"rate_table_version"`
	TourServicesSubtotal Money      `json:"-"`
	TBDEstimate          Money      `json:"-"`
	TaxAmount            Money      `json:"-"`
	Total                Money      `json:"-"`
	DepositAmount        Money      `json:"-"`
	Breakdown            []LineItem `json:"breakdown"`
}

// wire/storage representation in cents, kept alongside the Money fields so
// the quote marshals losslessly into the versions ledger
type QuoteCents struct {
	RateTableVersion     int32      `json:"rate_table_version"`
	TourServicesSubtotal int64      `json:"tour_services_subtotal_cents"`
	TBDEstimate          int64      `json:"tbd_estimate_cents"`
	TaxAmount            int64      `json:"tax_amount_cents"`
	Total                int64      `json:"total_cents"`
	DepositAmount        int64      `json:"deposit_amount_cents"`
	Breakdown            []LineItem `json:"breakdown"`
}

func (q Quote) ToCents() QuoteCents {
	return QuoteCents{
		RateTableVersion:     q.RateTableVersion,
		TourServicesSubtotal: q.TourServicesSubtotal.Cents(),
		TBDEstimate:          q.TBDEstimate.Cents(),
		TaxAmount:            q.TaxAmount.Cents(),
		Total:                q.Total.Cents(),
		DepositAmount:        q.DepositAmount.Cents(),
		Breakdown:            q.Breakdown,
	}
}

func (qc QuoteCents) ToQuote() Quote {
	return Quote{
		RateTableVersion:     qc.RateTableVersion,
		TourServicesSubtotal: Cents(qc.TourServicesSubtotal),
		TBDEstimate:          Cents(qc.TBDEstimate),
		TaxAmount:            Cents(qc.TaxAmount),
		Total:                Cents(qc.Total),
		DepositAmount:        Cents(qc.DepositAmount),
		Breakdown:            qc.Breakdown,
	}
}
