package optimizer

import (
	"fmt"
	"math"

	"github.com/deepnoodle-ai/anvil/object"
)

// longSentinel flags a span value that is too complex to track (relative or
// non-integer): the bytecode is forced to its long form and never revisited.
const longSentinel = math.MaxInt64

type spanState int

const (
	stateInactive spanState = iota
	stateActive
	stateOnQueue
)

// term is one sym-sym distance placeholder within a span's absolute
// expression: the signed byte distance loc2-loc1 in the current and
// tentative layouts.
type term struct {
	subst  int
	loc    object.Location
	loc2   object.Location
	owner  *span
	curVal int64
	newVal int64
}

// span records the dependency of one bytecode's length on a layout-derived
// value. id > 0 spans expand only when the value crosses their thresholds;
// id <= 0 spans recompute on any change (replication counts).
type span struct {
	bc     *object.Bytecode
	depval object.Value
	terms  []term

	curVal int64
	newVal int64

	negThres int64
	posThres int64

	id    int
	state spanState

	// Spans that transitively forced this span. Used only for cycle
	// detection between id <= 0 spans in step 1e.
	backtrace []*span

	// Index of the first offset setter following this span's bytecode.
	osIndex int
}

// createTerms destructures the dependent value's absolute expression into
// sym-sym distance terms. For id <= 0 spans a self-cycle pre-check rejects
// configurations where the span's own bytecode lies inside a measured
// distance, since its growth would feed back into its own value.
func (s *span) createTerms() error {
	if !s.depval.HasAbs() {
		return nil
	}
	var err error
	s.depval.SubstDist(func(slot int, loc1, loc2 object.Location) {
		dist, ok := object.CalcDist(loc1, loc2)
		if !ok {
			err = fmt.Errorf("internal error: could not calculate bytecode distance")
			return
		}
		for len(s.terms) <= slot {
			s.terms = append(s.terms, term{})
		}
		s.terms[slot] = term{subst: slot, loc: loc1, loc2: loc2, owner: s, newVal: dist.Int()}
	})
	if err != nil {
		return err
	}
	if s.id <= 0 {
		bi := s.bc.Index()
		for i := range s.terms {
			i1 := s.terms[i].loc.BC.Index()
			i2 := s.terms[i].loc2.BC.Index()
			if (bi > i1-1 && bi <= i2-1) || (bi > i2-1 && bi <= i1-1) {
				return object.ErrCircularReference
			}
		}
	}
	return nil
}

// recalcNormal recomputes the span value from the current term values and
// reports whether the bytecode needs re-expansion: any change for id <= 0
// spans, a threshold crossing for id > 0 spans. Values that cannot be
// reduced to an integer take the long-sentinel path and deactivate the span.
func (s *span) recalcNormal() bool {
	s.newVal = 0

	if s.depval.HasAbs() {
		abs := s.depval.Abs().Clone()
		vals := make(map[int]int64, len(s.terms))
		for i := range s.terms {
			vals[s.terms[i].subst] = s.terms[i].newVal
		}
		abs.Substitute(vals)
		abs.Simplify()
		if v, ok := abs.AsInt(); ok {
			s.newVal = v
		} else {
			s.newVal = longSentinel
		}
	}

	if s.depval.IsRelative() {
		s.newVal = longSentinel
	}

	if s.newVal == longSentinel {
		s.state = stateInactive
	}

	if s.id <= 0 {
		return s.newVal != s.curVal
	}
	return s.newVal < s.negThres || s.newVal > s.posThres
}

// offsetSetter tracks one alignment/origin bytecode: its current and
// tentative start values and the threshold offset at which its absorption
// capacity saturates.
type offsetSetter struct {
	bc     *object.Bytecode
	curVal int64
	newVal int64
	thres  int64
}
