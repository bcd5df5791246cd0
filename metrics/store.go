package metrics

import (
	"sync"
	"time"

	"github.com/zero-day-ai/chaos/llm"
)

// CallRecord captures one outbound provider call.
type CallRecord struct {
	// ID is the harness-assigned call identifier.
	ID string

	Provider string
	Model    string

	// Call is the global 1-based call index; Turn the scenario turn (0
	// outside any turn).
	Call int
	Turn int

	Start   time.Time
	Latency time.Duration

	Success bool
	Err     string

	Usage llm.TokenUsage

	// Streamed marks streaming calls; TTFT and Chunks are only meaningful
	// when it is set.
	Streamed bool
	TTFT     time.Duration
	Chunks   int
}

// FaultRecord captures one injected fault.
type FaultRecord struct {
	Label    string
	Kind     string
	Call     int
	Turn     int
	Provider string
	Time     time.Time
}

// Store accumulates call and fault records for one run. All methods are safe
// for concurrent use.
type Store struct {
	mu     sync.Mutex
	calls  []CallRecord
	faults []FaultRecord
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// RecordCall appends a completed call record.
func (s *Store) RecordCall(rec CallRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, rec)
}

// RecordFault appends an injected fault record.
func (s *Store) RecordFault(rec FaultRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, rec)
}

// Calls returns a copy of all call records in completion order.
func (s *Store) Calls() []CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallRecord, len(s.calls))
	copy(out, s.calls)
	return out
}

// Faults returns a copy of all fault records in injection order.
func (s *Store) Faults() []FaultRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FaultRecord, len(s.faults))
	copy(out, s.faults)
	return out
}

// TotalCalls returns the number of completed calls.
func (s *Store) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// FailedCalls returns the number of calls that ended in an error.
func (s *Store) FailedCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if !c.Success {
			n++
		}
	}
	return n
}

// FaultsInjected returns the number of faults that fired.
func (s *Store) FaultsInjected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.faults)
}

// SuccessRate returns the fraction of calls that succeeded, or 1.0 when no
// calls were made.
func (s *Store) SuccessRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return 1.0
	}
	ok := 0
	for _, c := range s.calls {
		if c.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(s.calls))
}

// AvgLatency returns the mean latency across all calls.
func (s *Store) AvgLatency() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return 0
	}
	var total time.Duration
	for _, c := range s.calls {
		total += c.Latency
	}
	return total / time.Duration(len(s.calls))
}

// AvgTTFT returns the mean time to first token across streamed calls that
// reported one.
func (s *Store) AvgTTFT() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	n := 0
	for _, c := range s.calls {
		if c.Streamed && c.TTFT > 0 {
			total += c.TTFT
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / time.Duration(n)
}

// TotalUsage sums token usage across all calls.
func (s *Store) TotalUsage() llm.TokenUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total llm.TokenUsage
	for _, c := range s.calls {
		total = total.Add(c.Usage)
	}
	return total
}
