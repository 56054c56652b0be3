// Package atb implements the accumulator-based turn scheduler.
package atb

import "errors"

// MaxATB is the accumulator threshold at which an entity acts.
const MaxATB = 100

var (
	ErrNoEntities = errors.New("atb: no entities to schedule")
	ErrStalled    = errors.New("atb: no entity has positive initiative")
)

// Combatant is anything with a turn-order accumulator.
type Combatant interface {
	Initiative() int
	ATB() float64
	SetATB(v float64)
	ATBSeed() float64
}

// Scheduler tracks the active combatant.
type Scheduler[T Combatant] struct {
	active T
	set    bool
}

// Active returns the current active combatant.
func (s *Scheduler[T]) Active() (T, bool) {
	return s.active, s.set
}

// SetActive forces the active combatant.
func (s *Scheduler[T]) SetActive(c T) {
	s.active = c
	s.set = true
}

// TickUntilActive advances every accumulator by its initiative until some
// reach MaxATB, then makes the highest one active. Equal accumulators go to
// the earliest in the slice.
func (s *Scheduler[T]) TickUntilActive(entities []T) (T, error) {
	next, err := tick(entities)
	if err != nil {
		var zero T
		return zero, err
	}
	s.SetActive(next)
	return next, nil
}

func tick[T Combatant](entities []T) (T, error) {
	var zero T
	if len(entities) == 0 {
		return zero, ErrNoEntities
	}
	if best, ok := highest(entities); ok {
		return best, nil
	}
	total := 0
	for _, e := range entities {
		if i := e.Initiative(); i > 0 {
			total += i
		}
	}
	if total == 0 {
		return zero, ErrStalled
	}
	for {
		for _, e := range entities {
			if i := e.Initiative(); i > 0 {
				e.SetATB(e.ATB() + float64(i))
			}
		}
		if best, ok := highest(entities); ok {
			return best, nil
		}
	}
}

func highest[T Combatant](entities []T) (T, bool) {
	var best T
	found := false
	for _, e := range entities {
		if e.ATB() < MaxATB {
			continue
		}
		if !found || e.ATB() > best.ATB() {
			best = e
			found = true
		}
	}
	return best, found
}

// shadow is a detached copy used for forecasting.
type shadow[T Combatant] struct {
	src        T
	atb        float64
	seed       float64
	initiative int
}

func (s *shadow[T]) Initiative() int  { return s.initiative }
func (s *shadow[T]) ATB() float64     { return s.atb }
func (s *shadow[T]) SetATB(v float64) { s.atb = v }
func (s *shadow[T]) ATBSeed() float64 { return s.seed }

// Timeline forecasts the next length+1 turns without touching the real
// accumulators. Each pick resets its shadow to the seed value.
func Timeline[T Combatant](entities []T, length int) ([]T, error) {
	shadows := make([]*shadow[T], len(entities))
	for i, e := range entities {
		shadows[i] = &shadow[T]{src: e, atb: e.ATB(), seed: e.ATBSeed(), initiative: e.Initiative()}
	}
	out := make([]T, 0, length+1)
	for i := 0; i <= length; i++ {
		next, err := tick(shadows)
		if err != nil {
			return nil, err
		}
		out = append(out, next.src)
		next.atb = next.seed
	}
	return out, nil
}
