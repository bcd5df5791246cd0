package fuzz

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/zero-day-ai/chaos/fault"
	"github.com/zero-day-ai/chaos/scenario"
)

// Generate derives n fuzz variants from a baseline, drawing every fault from
// the space with a single seeded source. Families are sampled by weight and
// each drawn fault gets trigger parameters from its family's configured
// ranges. Variants are named "<baseline>-fuzz-000" onward and tagged "fuzz".
func Generate(baseline *scenario.Scenario, n int, seed int64, space Space) ([]*scenario.Scenario, error) {
	if !baseline.IsBaseline() {
		return nil, fmt.Errorf("fuzz: %s is not a baseline", baseline.Name)
	}
	if n < 1 {
		return nil, fmt.Errorf("fuzz: variant count must be >= 1, got %d", n)
	}
	if err := space.Validate(); err != nil {
		return nil, fmt.Errorf("fuzz: %w", err)
	}

	rng := rand.New(rand.NewSource(seed))
	turns := len(baseline.Turns)

	out := make([]*scenario.Scenario, 0, n)
	for i := 0; i < n; i++ {
		count := space.MinFaults
		if space.MaxFaults > space.MinFaults {
			count += rng.Intn(space.MaxFaults - space.MinFaults + 1)
		}

		opts := make([]scenario.VariantOption, 0, count+1)
		for j := 0; j < count; j++ {
			b := drawFault(rng, space)
			if turn := rng.Intn(turns + 1); turn > 0 {
				opts = append(opts, scenario.At(turn, b))
			} else {
				opts = append(opts, scenario.WithFaults(b))
			}
		}
		opts = append(opts, scenario.WithTags("fuzz"))

		v, err := baseline.Variant(fmt.Sprintf("%s-fuzz-%03d", baseline.Name, i), opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// drawFault picks an enabled family by weight, then a fault within it.
func drawFault(rng *rand.Rand, space Space) *fault.Builder {
	type dim struct {
		name   string
		weight float64
	}
	var dims []dim
	var total float64
	add := func(name string, enabled bool, weight float64) {
		if !enabled {
			return
		}
		if weight == 0 {
			weight = 1
		}
		dims = append(dims, dim{name, weight})
		total += weight
	}
	add("llm", space.LLM.Enabled, space.LLM.Weight)
	add("stream", space.Stream.Enabled, space.Stream.Weight)
	add("tool", space.Tool.Enabled, space.Tool.Weight)
	add("context", space.Context.Enabled, space.Context.Weight)

	x := rng.Float64() * total
	name := dims[len(dims)-1].name
	for _, d := range dims {
		if x < d.weight {
			name = d.name
			break
		}
		x -= d.weight
	}

	switch name {
	case "llm":
		return drawLLM(rng, space.LLM)
	case "stream":
		return drawStream(rng, space.Stream)
	case "tool":
		return drawTool(rng, space.Tool)
	default:
		return drawContext(rng, space.Context)
	}
}

// drawGate applies a randomized probability gate drawn from the family's
// configured range. A zero max leaves the trigger as built.
func drawGate(rng *rand.Rand, b *fault.Builder, min, max float64) *fault.Builder {
	if max <= 0 {
		return b
	}
	return b.WithProbability(min + rng.Float64()*(max-min))
}

func drawLLM(rng *rand.Rand, cfg LLMConfig) *fault.Builder {
	var b *fault.Builder
	errs := orDefault(cfg.Errors, llmErrors)
	switch errs[rng.Intn(len(errs))] {
	case "rate_limit":
		b = fault.LLMRateLimit()
	case "timeout":
		b = fault.LLMTimeout()
	case "server_error":
		b = fault.LLMServerError()
	case "auth_error":
		b = fault.LLMAuthError()
	default:
		b = fault.LLMContextLength()
	}
	if cfg.MaxOnCall > 0 {
		// An exact call index is deterministic; the probability gate would
		// be ignored on that path, so only one of the two applies.
		return b.OnCall(1 + rng.Intn(cfg.MaxOnCall))
	}
	return drawGate(rng, b, cfg.MinProbability, cfg.MaxProbability)
}

func drawStream(rng *rand.Rand, cfg StreamConfig) *fault.Builder {
	maxChunks := cfg.MaxAfterChunks
	if maxChunks == 0 {
		maxChunks = 10
	}
	maxDelay := cfg.MaxDelayMS
	if maxDelay == 0 {
		maxDelay = 1000
	}

	var b *fault.Builder
	variants := orDefault(cfg.Variants, streamVariants)
	switch variants[rng.Intn(len(variants))] {
	case "cut":
		b = fault.StreamCut(rng.Intn(maxChunks + 1))
	case "hang":
		hangFor := time.Duration(1+rng.Intn(maxDelay)) * time.Millisecond
		b = fault.StreamHang(rng.Intn(maxChunks+1), hangFor)
	case "slow_ttft":
		b = fault.SlowTTFT(time.Duration(1+rng.Intn(maxDelay)) * time.Millisecond)
	default:
		b = fault.SlowChunks(time.Duration(1+rng.Intn(maxDelay)) * time.Millisecond)
	}
	return drawGate(rng, b, cfg.MinProbability, cfg.MaxProbability)
}

func drawTool(rng *rand.Rand, cfg ToolConfig) *fault.Builder {
	var b *fault.Builder
	modes := orDefault(cfg.Modes, toolModes)
	switch modes[rng.Intn(len(modes))] {
	case "error":
		b = fault.ToolError("injected tool failure")
	case "empty":
		b = fault.ToolEmpty()
	default:
		b = fault.ToolTimeout(time.Duration(1+rng.Intn(30)) * time.Second)
	}
	if len(cfg.Tools) > 0 {
		b = b.ForTool(cfg.Tools[rng.Intn(len(cfg.Tools))])
	}
	return drawGate(rng, b, cfg.MinProbability, cfg.MaxProbability)
}

func drawContext(rng *rand.Rand, cfg ContextConfig) *fault.Builder {
	maxKeep := cfg.MaxKeep
	if maxKeep == 0 {
		maxKeep = 4
	}

	var b *fault.Builder
	modes := orDefault(cfg.Modes, contextModes)
	switch modes[rng.Intn(len(modes))] {
	case "drop_system":
		b = fault.ContextDropSystem()
	case "truncate":
		b = fault.ContextTruncate(1 + rng.Intn(maxKeep))
	default:
		b = fault.ContextDropOldest(1 + rng.Intn(maxKeep))
	}
	return drawGate(rng, b, cfg.MinProbability, cfg.MaxProbability)
}
