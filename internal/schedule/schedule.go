// ABOUTME: Adaptive crawl scheduling driven by each poll's outcome
// ABOUTME: Pure functions over podcast schedule fields; callers persist the result

package schedule

import (
	"math"
	"slices"
	"time"

	"github.com/harper/podroll/internal/models"
)

// HistorySize is how many recent publication dates Next looks at.
const HistorySize = 10

// Policy bounds the poll intervals a podcast can be given.
type Policy struct {
	// Min and Max clamp every computed interval.
	Min time.Duration
	Max time.Duration
	// Base is the first interval of a podcast with no usable history and the first
	// step of failure backoff.
	Base time.Duration
	// Jitter spreads failure backoff by a fraction of the interval in both directions.
	Jitter float64
	// FailureThreshold consecutive fetch failures exclude a podcast from batches.
	FailureThreshold int
	// NotModifiedGrowth multiplies the interval each time a feed is unchanged.
	NotModifiedGrowth float64
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		Min:               time.Hour,
		Max:               7 * 24 * time.Hour,
		Base:              time.Hour,
		Jitter:            0.2,
		FailureThreshold:  10,
		NotModifiedGrowth: 1.5,
	}
}

// Rand returns a value in [0, 1). A nil Rand disables jitter.
type Rand func() float64

// Next records outcome on p and computes its next poll. history holds recent
// publication dates in any order.
func (pol Policy) Next(p *models.Podcast, outcome models.ParserError, history []time.Time, now time.Time, rnd Rand) {
	now = now.UTC()
	if p.CanonicalID != nil {
		// Merged is terminal.
		outcome = models.ParserErrorDuplicate
	}
	previous := p.ParserError
	p.PolledAt = &now
	p.ParserError = outcome

	switch {
	case outcome == models.ParserErrorDuplicate:
		p.State = models.StateMerged
		p.Active = false
		p.NextPollAt = nil
		return

	case outcome == models.ParserErrorNone:
		p.State = models.StateActive
		p.Active = true
		p.FailureCount = 0
		p.ParsedAt = &now
		p.PollInterval = pol.clamp(pol.fromHistory(history))

	case outcome == models.ParserErrorNotModified:
		p.State = models.StateActive
		p.Active = true
		p.FailureCount = 0
		interval := p.PollInterval
		if interval <= 0 {
			interval = pol.Base
		}
		p.PollInterval = pol.clamp(time.Duration(float64(interval) * pol.NotModifiedGrowth))

	case outcome.FetchFailure():
		p.State = models.StateErrorBackoff
		p.FailureCount++
		p.Active = p.FailureCount < pol.FailureThreshold
		p.PollInterval = pol.jitter(pol.backoff(p.FailureCount), rnd)

	case outcome.Unrecoverable():
		p.State = models.StateErrorBackoff
		p.FailureCount++
		if previous.Unrecoverable() {
			// Content stays broken until someone polls it by hand.
			p.Active = false
			p.NextPollAt = nil
			return
		}
		if p.PollInterval <= 0 {
			p.PollInterval = pol.Base
		}
		p.PollInterval = pol.clamp(p.PollInterval)
	}

	next := now.Add(p.PollInterval)
	p.NextPollAt = &next
}

// fromHistory returns the median gap between consecutive publication dates, or Base
// when there are fewer than two.
func (pol Policy) fromHistory(history []time.Time) time.Duration {
	if len(history) < 2 {
		return pol.Base
	}
	dates := slices.Clone(history)
	slices.SortFunc(dates, func(a, b time.Time) int { return b.Compare(a) })

	gaps := make([]time.Duration, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, dates[i-1].Sub(dates[i]))
	}
	slices.Sort(gaps)

	mid := len(gaps) / 2
	if len(gaps)%2 == 1 {
		return gaps[mid]
	}
	return (gaps[mid-1] + gaps[mid]) / 2
}

// backoff returns Base·2^(n−1), capped at Max.
func (pol Policy) backoff(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	d := float64(pol.Base) * math.Pow(2, float64(failures-1))
	if d >= float64(pol.Max) {
		return pol.Max
	}
	return time.Duration(d)
}

func (pol Policy) jitter(d time.Duration, rnd Rand) time.Duration {
	if rnd == nil || pol.Jitter <= 0 {
		return d
	}
	factor := 1 + pol.Jitter*(2*rnd()-1)
	d = time.Duration(float64(d) * factor)
	if d > pol.Max {
		return pol.Max
	}
	if d <= 0 {
		return pol.Min
	}
	return d
}

func (pol Policy) clamp(d time.Duration) time.Duration {
	if d < pol.Min {
		return pol.Min
	}
	if d > pol.Max {
		return pol.Max
	}
	return d
}
