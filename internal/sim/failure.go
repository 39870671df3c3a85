package sim

// Rand is the random source behind layout, failure and recovery draws.
// *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// FailureInjector decides the single failure and single recovery allowed
// per tick.
type FailureInjector struct {
	rng      Rand
	pFail    float64
	pRecover float64
}

func NewFailureInjector(rng Rand, pFail, pRecover float64) *FailureInjector {
	return &FailureInjector{rng: rng, pFail: pFail, pRecover: pRecover}
}

// PickFailure returns the router to fail this tick, if any.
func (f *FailureInjector) PickFailure(candidates []int) (int, bool) {
	return f.pick(candidates, f.pFail)
}

// PickRecovery returns the router to recover this tick, if any.
func (f *FailureInjector) PickRecovery(candidates []int) (int, bool) {
	return f.pick(candidates, f.pRecover)
}

// pick draws nothing when there are no candidates, so an empty candidate set
// leaves the random sequence untouched.
func (f *FailureInjector) pick(candidates []int, p float64) (int, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	if f.rng.Float64() >= p {
		return 0, false
	}
	return candidates[f.rng.Intn(len(candidates))], true
}
