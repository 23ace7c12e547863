// Package optimizer decides the final encoded length of every
// length-variable bytecode in an object. It runs a Robertson-style fixpoint:
// starting from the all-short layout it builds spans for short-to-long
// transition dependencies, then walks the dependency ripples when a long
// form is needed, handling alignment/origin absorption and replication
// counts, and detecting circular references.
//
// Basic algorithm outline:
//
//  1. Initialization:
//     a. Number bytecodes sequentially and calculate offsets assuming
//     minimum length, collecting dependent spans and offset setters.
//     b. Pre-tree expansion: expand spans that are certainly long
//     (cross-section values, or distances already past threshold).
//     c. Recalculate all offsets from the expanded lengths.
//     d. Re-evaluate spans against live offsets; queue threshold crossers.
//     e. Build the interval tree and check replication spans for cycles.
//  2. Main loop: pop spans from the queues, expand their bytecodes, ripple
//     length changes across dependent spans and offset setters.
//  3. Final pass over bytecodes to generate final offsets.
package optimizer

import (
	"errors"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/anvil/diag"
	"github.com/deepnoodle-ai/anvil/internal/interval"
	"github.com/deepnoodle-ai/anvil/object"
)

// Option configures an optimization run.
type Option func(*optimizer)

// WithLogger sets the logger used for per-run statistics and tracing. The
// default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *optimizer) {
		o.log = logger
	}
}

// termRef identifies one term of one span; the interval tree stores these
// rather than pointers into term slices.
type termRef struct {
	span *span
	slot int
}

type optimizer struct {
	obj  *object.Object
	sink *diag.Sink
	log  zerolog.Logger

	spans         []*span
	qa, qb        []*span
	itree         *interval.Tree[termRef]
	offsetSetters []offsetSetter

	// Bytecodes carrying an id <= 0 span; an offset-setting bytecode must
	// never be one of them.
	lowSpanBCs map[*object.Bytecode]bool

	numSpans      int
	numTerms      int
	numItree      int
	numSetters    int
	numExpansions int
	numInitialQB  int
}

// Optimize resolves every length-variable bytecode in the object, assigning
// final indexes, offsets and tail lengths. Errors are reported to the sink;
// when the sink holds errors afterwards the object is consistent but not
// emitable.
func Optimize(obj *object.Object, sink *diag.Sink, opts ...Option) {
	o := &optimizer{
		obj:        obj,
		sink:       sink,
		log:        zerolog.Nop(),
		itree:      interval.New[termRef](),
		lowSpanBCs: make(map[*object.Bytecode]bool),
		// Trailing placeholder for spans to point to; it is filled in
		// if/when an offset setter is actually encountered.
		offsetSetters: []offsetSetter{{}},
	}
	for _, opt := range opts {
		opt(o)
	}
	if id, err := uuid.NewV4(); err == nil {
		o.log = o.log.With().Str("run_id", id.String()).Logger()
	}

	// Step 1a
	if o.step1a() {
		return
	}
	o.log.Debug().
		Int("spans", o.numSpans).
		Int("offset_setters", len(o.offsetSetters)-1).
		Msg("initial layout complete")

	// Step 1b
	if o.step1b() {
		return
	}
	o.log.Debug().Int("spans", len(o.spans)).Msg("pre-tree expansion complete")

	// Step 1c
	if o.updateOffsets() {
		return
	}

	// Step 1d
	if o.step1d() {
		o.log.Debug().Msg("no spans crossed thresholds; layout stable")
		return
	}
	o.log.Debug().Int("initial_qb", o.numInitialQB).Msg("post-refresh re-evaluation complete")

	// Step 1e
	if o.step1e() {
		return
	}
	o.log.Debug().
		Int("terms", o.numTerms).
		Int("itree", o.numItree).
		Int("active_setters", o.numSetters).
		Msg("interval tree built")

	// Step 2
	if o.step2() {
		return
	}
	o.log.Debug().Int("expansions", o.numExpansions).Msg("fixpoint reached")

	// Step 3
	o.updateOffsets()
}

func (o *optimizer) addSpan(bc *object.Bytecode, id int, val object.Value, negThres, posThres int64) {
	o.spans = append(o.spans, &span{
		bc:       bc,
		id:       id,
		depval:   val.Clone(),
		negThres: negThres,
		posThres: posThres,
		state:    stateActive,
		osIndex:  len(o.offsetSetters) - 1,
	})
	o.numSpans++
	if id <= 0 {
		o.lowSpanBCs[bc] = true
	}
}

func (o *optimizer) addOffsetSetter(bc *object.Bytecode) bool {
	if o.lowSpanBCs[bc] {
		o.sink.Errorf(bc.Line(), "internal error: offset-setting bytecode has a replication-dependent length")
		return false
	}
	os := &o.offsetSetters[len(o.offsetSetters)-1]
	os.bc = bc
	os.thres = bc.NextOffset()
	o.offsetSetters = append(o.offsetSetters, offsetSetter{})
	return true
}

// step1a numbers bytecodes sequentially, assigns minimum-length offsets and
// collects spans and offset setters. Replication counts that depend on the
// layout are assumed zero; alignment and origin advance the offset as
// normal.
func (o *optimizer) step1a() bool {
	sawError := false
	bcIndex := 0
	for _, sect := range o.obj.Sections() {
		offset := int64(0)
		for _, bc := range sect.Bytecodes() {
			bc.SetIndex(bcIndex)
			bcIndex++
			bc.SetOffset(offset)
			if err := bc.CalcLen(o.addSpan); err != nil {
				o.sink.Errorf(bc.Line(), "%s", err)
				sawError = true
				continue
			}
			if bc.Classify() == object.OffsetSetting {
				if !o.addOffsetSetter(bc) {
					sawError = true
					continue
				}
			}
			offset = bc.NextOffset()
		}
	}
	return sawError
}

// step1b iterates every span once before the interval tree exists, expanding
// spans that are certainly long: cross-section or otherwise complex values,
// and distances already past threshold under the minimum layout. Spans whose
// bytecodes swallow all thresholds are deleted outright, keeping the tree
// small.
func (o *optimizer) step1b() bool {
	sawError := false
	kept := o.spans[:0]
	for _, s := range o.spans {
		termsOK := true
		if err := s.createTerms(); err != nil {
			o.sink.Errorf(s.bc.Line(), "%s", err)
			sawError = true
			termsOK = false
		}
		o.numTerms += len(s.terms)

		if termsOK && s.recalcNormal() {
			negThres, posThres, keep, err := s.bc.Expand(s.id, s.curVal, s.newVal)
			switch {
			case err != nil:
				o.sink.Errorf(s.bc.Line(), "%s", err)
				sawError = true
			case keep:
				s.negThres = negThres
				s.posThres = posThres
				if s.state == stateInactive {
					// A long-sentinel value whose bytecode claims further
					// dependence cannot make progress; abort immediately.
					o.sink.Errorf(s.bc.Line(), "%s", object.ErrComplexSecondaryExpansion)
					o.spans = append(kept, s)
					return true
				}
			default:
				// No longer dependent; the span is done for good.
				continue
			}
		}
		s.curVal = s.newVal
		kept = append(kept, s)
	}
	o.spans = kept
	return sawError
}

// updateOffsets re-derives every bytecode offset from its predecessor
// (steps 1c and 3). Offset-setting bytecodes re-expand as part of the walk.
func (o *optimizer) updateOffsets() bool {
	for _, sect := range o.obj.Sections() {
		if bc, err := sect.UpdateOffsets(); err != nil {
			o.sink.Errorf(bc.Line(), "%s", err)
			return true
		}
	}
	return false
}

// step1d refreshes every term's distance from live locations and queues
// spans that now cross their thresholds. Returns true when nothing was
// queued, in which case the main loop is unnecessary.
func (o *optimizer) step1d() bool {
	for _, s := range o.spans {
		for i := range s.terms {
			t := &s.terms[i]
			dist, ok := object.CalcDist(t.loc, t.loc2)
			if !ok {
				// Terms are same-container by construction.
				panic("optimizer: could not calculate bytecode distance")
			}
			t.curVal = t.newVal
			t.newVal = dist.Int()
		}
		if s.recalcNormal() {
			o.qb = append(o.qb, s)
			s.state = stateOnQueue
			o.numInitialQB++
		}
	}
	return len(o.qb) == 0
}

// step1e snapshots the offset setters, builds the interval tree from every
// surviving term, and checks replication spans for circular references via
// backtrace propagation.
func (o *optimizer) step1e() bool {
	for i := range o.offsetSetters {
		os := &o.offsetSetters[i]
		if os.bc == nil {
			continue
		}
		os.thres = os.bc.NextOffset()
		os.newVal = os.bc.Offset()
		os.curVal = os.newVal
		o.numSetters++
	}

	for _, s := range o.spans {
		for i := range s.terms {
			o.itreeAdd(s, i)
		}
	}

	sawError := false
	for _, s := range o.spans {
		if s.id > 0 {
			continue
		}
		cycle := false
		o.itree.Enumerate(int64(s.bc.Index()), int64(s.bc.Index()), func(ref termRef) {
			dep := ref.span
			if cycle || dep.id > 0 {
				return
			}
			for _, b := range s.backtrace {
				if b == dep {
					cycle = true
					return
				}
			}
			appendBacktrace(dep, s)
		})
		if cycle {
			o.sink.Errorf(s.bc.Line(), "%s", object.ErrCircularReference)
			sawError = true
		}
	}
	return sawError
}

// itreeAdd inserts one term into the interval tree over the bytecode index
// range its distance crosses. Terms between two locations on the same
// bytecode are discarded; their distance can never change.
func (o *optimizer) itreeAdd(s *span, slot int) {
	t := &s.terms[slot]
	i1 := t.loc.BC.Index()
	i2 := t.loc2.BC.Index()
	var low, high int64
	switch {
	case i1 < i2:
		low, high = int64(i1)+1, int64(i2)
	case i1 > i2:
		low, high = int64(i2)+1, int64(i1)
	default:
		return
	}
	o.itree.Insert(low, high, termRef{span: s, slot: slot})
	o.numItree++
}

// appendBacktrace adds s and s's complete backtrace to dep's backtrace,
// deduplicating on insertion so long chains cannot blow the lists up.
func appendBacktrace(dep *span, s *span) {
	add := func(x *span) {
		for _, b := range dep.backtrace {
			if b == x {
				return
			}
		}
		dep.backtrace = append(dep.backtrace, x)
	}
	for _, b := range s.backtrace {
		add(b)
	}
	add(s)
}

// step2 is the main fixed-point loop. QA holds replication (id <= 0) spans
// and is drained first so replication can absorb increases before other
// bytecodes are considered for expansion. Returns true on abort.
func (o *optimizer) step2() bool {
	sawError := false
	for len(o.qa) > 0 || len(o.qb) > 0 {
		var s *span
		if len(o.qa) > 0 {
			s, o.qa = o.qa[0], o.qa[1:]
		} else {
			s, o.qb = o.qb[0], o.qb[1:]
		}

		if s.state == stateInactive {
			continue
		}
		s.state = stateActive

		// An offset setter may have absorbed earlier growth since this span
		// was queued; make sure it still crosses its thresholds.
		if !s.recalcNormal() {
			continue
		}

		o.numExpansions++
		origLen := s.bc.TotalLen()

		negThres, posThres, keep, err := s.bc.Expand(s.id, s.curVal, s.newVal)
		if err != nil {
			o.sink.Errorf(s.bc.Line(), "%s", err)
			if errors.Is(err, object.ErrOffsetRegression) {
				return true
			}
			sawError = true
			continue
		}
		if keep {
			s.negThres = negThres
			s.posThres = posThres
			for i := range s.terms {
				s.terms[i].curVal = s.terms[i].newVal
			}
			s.curVal = s.newVal
		} else {
			s.state = stateInactive
		}

		lenDiff := s.bc.TotalLen() - origLen
		if lenDiff == 0 {
			continue
		}

		// Ripple across every span whose distance crosses the expanded
		// bytecode.
		o.enumerateExpand(s.bc.Index(), lenDiff)

		// Ripple across the offset setters that follow the expanded
		// bytecode, stopping when one fully absorbs the growth or the
		// section ends.
		offsetDiff := lenDiff
		for i := s.osIndex; i < len(o.offsetSetters); i++ {
			os := &o.offsetSetters[i]
			if os.bc == nil || os.bc.Container() != s.bc.Container() || offsetDiff == 0 {
				break
			}
			oldNext := os.curVal + os.bc.TotalLen()

			if offsetDiff < 0 && -offsetDiff > os.newVal {
				o.sink.Errorf(os.bc.Line(), "%s", object.ErrOffsetRegression)
				return true
			}
			os.newVal += offsetDiff

			origTail := os.bc.TailLen()
			_, posTmp, _, err := os.bc.Expand(1, os.curVal, os.newVal)
			if err != nil {
				o.sink.Errorf(os.bc.Line(), "%s", err)
				return true
			}
			os.thres = posTmp

			offsetDiff = os.newVal + os.bc.TotalLen() - oldNext
			if tailDiff := os.bc.TailLen() - origTail; tailDiff != 0 {
				o.enumerateExpand(os.bc.Index(), tailDiff)
			}
			os.curVal = os.newVal
		}
	}
	return sawError
}

func (o *optimizer) enumerateExpand(index int, lenDiff int64) {
	o.itree.Enumerate(int64(index), int64(index), func(ref termRef) {
		o.expandTerm(ref, lenDiff)
	})
}

// expandTerm applies a bytecode length change to one dependent term and
// queues the owning span if the recomputed value crosses its thresholds.
func (o *optimizer) expandTerm(ref termRef, lenDiff int64) {
	s := ref.span
	if s.state == stateInactive {
		return
	}
	t := &s.terms[ref.slot]
	if t.loc.BC.Index() < t.loc2.BC.Index() {
		t.newVal += lenDiff
	} else {
		t.newVal -= lenDiff
	}

	if s.state == stateOnQueue {
		return
	}
	if !s.recalcNormal() {
		return
	}
	if s.id <= 0 {
		o.qa = append(o.qa, s)
	} else {
		o.qb = append(o.qb, s)
	}
	s.state = stateOnQueue
}
