// Package history holds the historical daily actuals used for regression
// growth estimation.
package history

import (
	"fmt"
	"time"

	"github.com/iwvelando/daily-breakdown/pkg/constants"
)

// Observation is one day of historical actuals.
type Observation struct {
	Date  time.Time
	Value float64
}

// Series is a chronologically ordered run of observations.
type Series []Observation

// Values returns the observation values in order.
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, o := range s {
		values[i] = o.Value
	}
	return values
}

// Tail returns the most recent n observations, or the whole series if it is
// shorter than n.
func (s Series) Tail(n int) Series {
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// Validate checks that the series is chronologically ordered and contiguous
// by day. Duplicates and gaps are reported, never repaired.
func (s Series) Validate() error {
	for i := 1; i < len(s); i++ {
		prev := s[i-1].Date
		cur := s[i].Date
		switch {
		case cur.Equal(prev):
			return fmt.Errorf("duplicate date %s in historical series", cur.Format(constants.DateLayout))
		case cur.Before(prev):
			return fmt.Errorf("historical series is not chronological: %s follows %s",
				cur.Format(constants.DateLayout), prev.Format(constants.DateLayout))
		case !sameDay(prev.AddDate(0, 0, 1), cur):
			return fmt.Errorf("missing dates in historical series between %s and %s",
				prev.Format(constants.DateLayout), cur.Format(constants.DateLayout))
		}
	}
	return nil
}

// Append returns a new series with obs added after s. The receiver is not
// modified.
func (s Series) Append(obs ...Observation) Series {
	out := make(Series, 0, len(s)+len(obs))
	out = append(out, s...)
	return append(out, obs...)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
