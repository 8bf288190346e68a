package reconcile

// Default engine parameters.
const (
	DefaultTrailingWindowDays = 180
	DefaultCreditWindowDays   = 180
	DefaultCreditMonthDays    = 30
	DefaultEODLookbackMonths  = 12
)

// Options tunes the windows used by the engine. Zero fields fall back to
// the defaults.
type Options struct {
	// TrailingWindowDays is the per-account window for the average EOD balance.
	TrailingWindowDays int
	// CreditWindowDays bounds the credits averaged into the monthly credit rate.
	CreditWindowDays int
	// CreditMonthDays scales the average credit to a monthly figure.
	CreditMonthDays int
	// EODLookbackMonths is the length of every EOD series.
	EODLookbackMonths int
}

// DefaultOptions returns the standard reconciliation parameters.
func DefaultOptions() Options {
	return Options{
		TrailingWindowDays: DefaultTrailingWindowDays,
		CreditWindowDays:   DefaultCreditWindowDays,
		CreditMonthDays:    DefaultCreditMonthDays,
		EODLookbackMonths:  DefaultEODLookbackMonths,
	}
}

func (o Options) normalized() Options {
	if o.TrailingWindowDays <= 0 {
		o.TrailingWindowDays = DefaultTrailingWindowDays
	}
	if o.CreditWindowDays <= 0 {
		o.CreditWindowDays = DefaultCreditWindowDays
	}
	if o.CreditMonthDays <= 0 {
		o.CreditMonthDays = DefaultCreditMonthDays
	}
	if o.EODLookbackMonths <= 0 {
		o.EODLookbackMonths = DefaultEODLookbackMonths
	}
	return o
}
