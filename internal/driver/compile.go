// Package driver runs the middle-end pipeline: side-table construction and
// type checking, the fixed-point loop over unrolling, constant propagation,
// dead-code elimination and monomorphization, then storage/option lowering,
// SSA renaming, destructuring and inlining.
package driver

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"lumen/internal/ast"
	"lumen/internal/cprop"
	"lumen/internal/dce"
	"lumen/internal/diag"
	"lumen/internal/flatten"
	"lumen/internal/inline"
	"lumen/internal/lowering"
	"lumen/internal/mono"
	"lumen/internal/observ"
	"lumen/internal/sema"
	"lumen/internal/source"
	"lumen/internal/ssa"
	"lumen/internal/symbols"
	"lumen/internal/types"
	"lumen/internal/unroll"
)

// DefaultMaxRounds bounds the fixed-point loop. A well-formed program
// converges in a handful of rounds; the ceiling only trips on compiler bugs.
const DefaultMaxRounds = 1024

var (
	// ErrInvalid reports that the program carried errors; the bag has them.
	ErrInvalid = errors.New("compilation failed")
	// ErrNoConvergence reports that the pass loop hit its round ceiling.
	ErrNoConvergence = errors.New("fixed point did not converge")
)

// Options tune a Compile run.
type Options struct {
	MaxRounds int  // 0 means DefaultMaxRounds
	Inline    bool // run the inlining pass
	Timings   bool // attach a timing diagnostic to the bag
	Log       *logrus.Logger
}

// State is everything the pipeline owns: the tree, the side tables, the node
// counter they are keyed by, and the accumulated diagnostics.
type State struct {
	Prog    *ast.Program
	Syms    *symbols.Table
	Types   *types.Table
	Counter *ast.Counter
	Bag     *diag.Bag
	Timer   *observ.Timer
}

// Compile takes a parsed program through the whole middle end, mutating it in
// place. The returned State is valid even on error so callers can render the
// diagnostics.
func Compile(prog *ast.Program, counter *ast.Counter, opts Options) (*State, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	st := &State{
		Prog:    prog,
		Syms:    symbols.NewTable(),
		Types:   types.NewTable(),
		Counter: counter,
		Bag:     diag.NewBag(512),
		Timer:   observ.NewTimer(),
	}
	r := diag.BagReporter{Bag: st.Bag}

	idx := st.Timer.Begin("analyze")
	st.rebuildTables(r, false)
	st.Timer.End(idx, "")
	if st.Bag.HasErrors() {
		return st, ErrInvalid
	}

	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	idx = st.Timer.Begin("fixed-point")
	var last pending
	converged := false
	rounds := 0
	for round := 1; round <= maxRounds; round++ {
		rounds = round
		changed := false
		var p pending

		ur := unroll.Run(prog, counter, r)
		changed = changed || ur.Changed
		p.bounds = ur.UnresolvedBounds
		log.WithFields(logrus.Fields{"round": round, "changed": ur.Changed}).Debug("unroll")

		cr := cprop.Run(prog, st.Syms, st.Types, counter, r)
		changed = changed || cr.Changed
		p.consts = cr.UnresolvedConsts
		p.lengths = cr.UnresolvedLengths
		p.indices = cr.UnresolvedIndices
		p.repeats = cr.UnresolvedRepeats
		log.WithFields(logrus.Fields{"round": round, "changed": cr.Changed}).Debug("cprop")

		dr := dce.Run(prog)
		changed = changed || dr.Changed
		p.branches = dr.RemainingBranches
		log.WithFields(logrus.Fields{"round": round, "changed": dr.Changed}).Debug("dce")

		mr := mono.Run(prog, counter, r)
		changed = changed || mr.Changed
		p.sites = mr.UnresolvedSites
		log.WithFields(logrus.Fields{"round": round, "changed": mr.Changed}).Debug("mono")

		last = p
		if !changed {
			converged = true
			break
		}
		st.rebuildTables(r, true)
		if st.Bag.HasErrors() {
			st.Timer.End(idx, fmt.Sprintf("%d rounds", rounds))
			return st, ErrInvalid
		}
	}
	st.Timer.End(idx, fmt.Sprintf("%d rounds", rounds))
	if !converged {
		diag.Errorf(r, diag.InternalError, source.Span{},
			"pass pipeline did not reach a fixed point after %d rounds", maxRounds)
		return st, ErrNoConvergence
	}

	// The loop stalled; whatever is still symbolic now never resolves.
	last.raise(r)
	st.Bag.Dedup()
	if st.Bag.HasErrors() {
		return st, ErrInvalid
	}

	idx = st.Timer.Begin("lowering")
	if lowering.Run(prog, st.Types, counter, r) {
		st.rebuildTables(r, true)
	}
	st.Timer.End(idx, "")
	if st.Bag.HasErrors() {
		return st, ErrInvalid
	}

	idx = st.Timer.Begin("ssa")
	ssa.LowerDefinitions(prog, st.Types, counter, r)
	ssa.Rename(prog, st.Types, counter, r)
	st.Timer.End(idx, "")
	if st.Bag.HasErrors() {
		return st, ErrInvalid
	}

	idx = st.Timer.Begin("flatten")
	flatten.Run(prog, st.Types, counter, r)
	st.Timer.End(idx, "")
	if st.Bag.HasErrors() {
		return st, ErrInvalid
	}

	if opts.Inline {
		idx = st.Timer.Begin("inline")
		inline.Run(prog, st.Types, counter, r)
		st.Timer.End(idx, "")
		if st.Bag.HasErrors() {
			return st, ErrInvalid
		}
	}

	st.Bag.Sort()
	st.Bag.Dedup()
	if opts.Timings {
		report := st.Timer.Report()
		appendTimingDiagnostic(st.Bag, timingPayload{
			Kind:    "pipeline",
			TotalMS: report.TotalMS,
			Phases:  report.Phases,
		})
	}
	return st, nil
}

// rebuildTables re-derives both side tables from the current tree. With reset
// set, folded constants survive in the symbol table; everything else is
// collected afresh because passes have rewritten the declaration set.
func (st *State) rebuildTables(r diag.Reporter, reset bool) {
	if reset {
		st.Syms.ResetButConsts()
	}
	sema.CollectGlobals(st.Prog, st.Syms, r)
	sema.ResolvePaths(st.Prog, st.Syms, r)
	sema.CollectItems(st.Prog, st.Syms, r)
	sema.Check(st.Prog, st.Syms, st.Types, r)
}

// pending carries the spans a round could not resolve. Only the converged
// round's set matters: anything still on it is a hard error.
type pending struct {
	consts   []source.Span
	lengths  []source.Span
	indices  []source.Span
	repeats  []source.Span
	bounds   []source.Span
	sites    []source.Span
	branches []source.Span
}

func (p pending) raise(r diag.Reporter) {
	emit := func(code diag.Code, msg string, spans []source.Span) {
		for _, sp := range spans {
			diag.Errorf(r, code, sp, msg)
		}
	}
	emit(diag.LowerConstNotEvaluable, "constant does not reduce to a literal", p.consts)
	emit(diag.LowerArrayLengthNotLiteral, "array length does not reduce to a literal", p.lengths)
	emit(diag.LowerArrayIndexNotLiteral, "array index does not reduce to a literal", p.indices)
	emit(diag.LowerRepeatCountNotLiteral, "repeat count does not reduce to a literal", p.repeats)
	emit(diag.LowerLoopBoundNotLiteral, "loop bound does not reduce to a literal", p.bounds)
	emit(diag.LowerGenericArgNotLiteral, "const argument does not reduce to a literal", p.sites)
	emit(diag.LowerNonStaticBranch, "branch condition does not reduce to a literal in circuit code", p.branches)
}
