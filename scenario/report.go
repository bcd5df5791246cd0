package scenario

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/zero-day-ai/chaos/metrics"
)

// Result is the scored outcome of one scenario run.
type Result struct {
	// Scenario is the variant name; Parent names the baseline it derives
	// from, empty for baselines themselves.
	Scenario string
	Parent   string
	Baseline bool

	Seed *int64

	// TurnCount is the number of configured turns; Turns holds the ones
	// that actually ran.
	TurnCount int
	Turns     []TurnResult

	// Err is the error that aborted the run, nil when every turn completed.
	Err error

	Passed   bool
	Failures []string

	Duration time.Duration

	store *metrics.Store
}

// Store exposes the run's call and fault records for assertions and
// reporting.
func (r *Result) Store() *metrics.Store {
	return r.store
}

// FaultsInjected is shorthand for the store's fault count.
func (r *Result) FaultsInjected() int {
	return r.store.FaultsInjected()
}

// Report aggregates the results of a scenario batch.
type Report struct {
	Results []*Result
}

// Passed reports whether every scenario in the batch passed.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Failed returns the scenarios that did not pass.
func (r *Report) Failed() []*Result {
	var out []*Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// String renders the batch scorecard.
func (r *Report) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "SCENARIO\tSTATUS\tTURNS\tCALLS\tFAILED\tFAULTS\tAVG LATENCY\tAVG TTFT\tDURATION")
	for _, res := range r.Results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		store := res.Store()
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
			res.Scenario,
			status,
			len(res.Turns), res.TurnCount,
			store.TotalCalls(),
			store.FailedCalls(),
			store.FaultsInjected(),
			store.AvgLatency().Round(time.Millisecond),
			store.AvgTTFT().Round(time.Millisecond),
			res.Duration.Round(time.Millisecond),
		)
	}
	w.Flush()

	for _, res := range r.Results {
		if res.Passed {
			continue
		}
		fmt.Fprintf(&b, "\n%s failed:\n", res.Scenario)
		if res.Err != nil {
			fmt.Fprintf(&b, "  run error: %v\n", res.Err)
		}
		for _, f := range res.Failures {
			fmt.Fprintf(&b, "  %s\n", f)
		}
	}
	return b.String()
}
