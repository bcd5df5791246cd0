package scenario

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zero-day-ai/chaos/llm"
)

// Assertion scores a completed run. Check returns nil when the run
// satisfies the assertion. AllowsError marks assertions that expect the run
// to fail, so a run error does not by itself fail the scenario.
type Assertion struct {
	Name        string
	AllowsError bool
	Check       func(r *Result) error
}

// CompletesWithin asserts the whole run finished inside d.
func CompletesWithin(d time.Duration) Assertion {
	return Assertion{
		Name: fmt.Sprintf("completes_within(%s)", d),
		Check: func(r *Result) error {
			if r.Duration > d {
				return fmt.Errorf("run took %s, limit %s", r.Duration, d)
			}
			return nil
		},
	}
}

// MaxLLMCalls asserts the run made at most n provider calls.
func MaxLLMCalls(n int) Assertion {
	return Assertion{
		Name: fmt.Sprintf("max_llm_calls(%d)", n),
		Check: func(r *Result) error {
			if got := r.Store().TotalCalls(); got > n {
				return fmt.Errorf("made %d llm calls, limit %d", got, n)
			}
			return nil
		},
	}
}

// MinLLMCalls asserts the run made at least n provider calls.
func MinLLMCalls(n int) Assertion {
	return Assertion{
		Name: fmt.Sprintf("min_llm_calls(%d)", n),
		Check: func(r *Result) error {
			if got := r.Store().TotalCalls(); got < n {
				return fmt.Errorf("made %d llm calls, need at least %d", got, n)
			}
			return nil
		},
	}
}

// MaxFailedCalls asserts at most n provider calls failed.
func MaxFailedCalls(n int) Assertion {
	return Assertion{
		Name: fmt.Sprintf("max_failed_calls(%d)", n),
		Check: func(r *Result) error {
			if got := r.Store().FailedCalls(); got > n {
				return fmt.Errorf("%d calls failed, limit %d", got, n)
			}
			return nil
		},
	}
}

// MinFaultsInjected asserts at least n faults actually fired. A chaos
// variant whose faults never fire is testing nothing.
func MinFaultsInjected(n int) Assertion {
	return Assertion{
		Name: fmt.Sprintf("min_faults_injected(%d)", n),
		Check: func(r *Result) error {
			if got := r.Store().FaultsInjected(); got < n {
				return fmt.Errorf("%d faults injected, need at least %d", got, n)
			}
			return nil
		},
	}
}

// AllTurnsComplete asserts every configured turn ran and succeeded.
func AllTurnsComplete() Assertion {
	return Assertion{
		Name: "all_turns_complete",
		Check: func(r *Result) error {
			if len(r.Turns) < r.TurnCount {
				return fmt.Errorf("only %d of %d turns ran", len(r.Turns), r.TurnCount)
			}
			for _, tr := range r.Turns {
				if !tr.Success {
					return fmt.Errorf("turn %d failed: %v", tr.Turn, tr.Err)
				}
			}
			return nil
		},
	}
}

// ExpectError asserts the run failed with a provider error carrying one of
// the given codes. With no codes, any run error satisfies it. The run's
// error does not count against the scenario when this assertion is present.
func ExpectError(codes ...string) Assertion {
	name := "expect_error"
	if len(codes) > 0 {
		name = fmt.Sprintf("expect_error(%s)", strings.Join(codes, ","))
	}
	return Assertion{
		Name:        name,
		AllowsError: true,
		Check: func(r *Result) error {
			if r.Err == nil {
				return errors.New("run succeeded, expected an error")
			}
			if len(codes) == 0 {
				return nil
			}
			var perr *llm.ProviderError
			if !errors.As(r.Err, &perr) {
				return fmt.Errorf("run error %v is not a provider error", r.Err)
			}
			for _, code := range codes {
				if perr.Code == code {
					return nil
				}
			}
			return fmt.Errorf("error code %s not among expected %v", perr.Code, codes)
		},
	}
}

// ResponseContains is a per-turn check that the response includes substr.
func ResponseContains(substr string) TurnCheck {
	return TurnCheck{
		Name: fmt.Sprintf("response_contains(%q)", substr),
		Check: func(tr TurnResult) error {
			if !strings.Contains(tr.Response, substr) {
				return fmt.Errorf("response %q does not contain %q", tr.Response, substr)
			}
			return nil
		},
	}
}

// TurnCompletes is a per-turn check that the turn succeeded.
func TurnCompletes() TurnCheck {
	return TurnCheck{
		Name: "turn_completes",
		Check: func(tr TurnResult) error {
			if !tr.Success {
				return fmt.Errorf("turn failed: %v", tr.Err)
			}
			return nil
		},
	}
}
