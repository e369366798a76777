// Package aggregate implements the SPARQL aggregate accumulators
// (SUM, AVG, MIN, MAX, GROUP_CONCAT). Each is an accumulator with
// UpdateBatch/Evaluate/State/MergeBatch, matching spec.md §4.2's
// aggregate contract; the accumulator-without-a-running-executor shape
// is grounded on the teacher's per-partition batch folding in
// internal/entity_manager_batch.go, generalized from entity merge
// counters to numeric/string fold state.
package aggregate

import (
	"strconv"
	"strings"

	"github.com/rdf-fusion/rdffusion-go"
	"github.com/rdf-fusion/rdffusion-go/encoding"
	"github.com/rdf-fusion/rdffusion-go/functions/scalarops"
)

// Accumulator is the per-group running state of one aggregate. Rows
// decoded as Err(Expected) (unbound/non-aggregable) are excluded from
// the fold, matching SPARQL's unbound-skipping aggregate semantics;
// MergeBatch combines partial per-partition states produced in parallel.
type Accumulator interface {
	UpdateBatch(rows []encoding.ThinResult[encoding.Value]) error
	// Evaluate returns the aggregate's result, or ok=false if the group
	// is poisoned or empty (both report as a null/Expected result).
	Evaluate() (result encoding.Value, ok bool)
	State() any
	MergeBatch(other any) error
}

// Sum implements SUM: numeric promotion across the group's rung,
// overflow produces Expected and poisons the accumulator permanently.
// While every row seen so far is Int/Integer rung, the running total is
// also tracked exactly as an int64 (onlyInteger) so that an xsd:integer
// sum overflowing int64 poisons the group instead of silently losing
// precision in the float64 mirror (spec.md §8 boundary: overflow is an
// error row, not a wraparound).
type Sum struct {
	rung        rdffusion.NumericKind
	total       float64
	intTotal    int64
	onlyInteger bool
	seen        bool
	poisoned    bool
}

func NewSum() *Sum { return &Sum{onlyInteger: true} }

func (s *Sum) UpdateBatch(rows []encoding.ThinResult[encoding.Value]) error {
	if s.poisoned {
		return nil
	}
	for _, r := range rows {
		if !r.IsOk() {
			continue
		}
		nv, ok := r.Value.(encoding.NumericValue)
		if !ok {
			s.poisoned = true
			return nil
		}
		if !s.seen {
			s.rung, s.seen = nv.Kind, true
		} else {
			s.rung = rdffusion.PromoteNumeric(s.rung, nv.Kind)
		}
		if s.onlyInteger && (nv.Kind == rdffusion.NumericInt || nv.Kind == rdffusion.NumericInteger) {
			sum, overflow := addInt64Overflows(s.intTotal, nv.IntVal)
			if overflow {
				s.poisoned = true
				return nil
			}
			s.intTotal = sum
		} else {
			s.onlyInteger = false
		}
		s.total += numericValueFloat(nv)
		if isOverflow(s.total) {
			s.poisoned = true
			return nil
		}
	}
	return nil
}

func (s *Sum) Evaluate() (encoding.Value, bool) {
	if s.poisoned || !s.seen {
		return nil, false
	}
	if s.onlyInteger {
		return encoding.NumericValue{Kind: s.rung, IntVal: s.intTotal}, true
	}
	return numericFromFloatRung(s.rung, s.total), true
}

// sumState is the serializable cross-partition merge state for Sum.
type sumState struct {
	Rung        rdffusion.NumericKind
	Total       float64
	IntTotal    int64
	OnlyInteger bool
	Seen        bool
	Poisoned    bool
}

func (s *Sum) State() any {
	return sumState{Rung: s.rung, Total: s.total, IntTotal: s.intTotal, OnlyInteger: s.onlyInteger, Seen: s.seen, Poisoned: s.poisoned}
}

func (s *Sum) MergeBatch(other any) error {
	o := other.(sumState)
	if o.Poisoned {
		s.poisoned = true
		return nil
	}
	if !o.Seen {
		return nil
	}
	if !s.seen {
		s.rung = o.Rung
		s.onlyInteger = o.OnlyInteger
	} else {
		s.rung = rdffusion.PromoteNumeric(s.rung, o.Rung)
		s.onlyInteger = s.onlyInteger && o.OnlyInteger
	}
	s.seen = true
	if s.onlyInteger {
		sum, overflow := addInt64Overflows(s.intTotal, o.IntTotal)
		if overflow {
			s.poisoned = true
			return nil
		}
		s.intTotal = sum
	}
	s.total += o.Total
	if isOverflow(s.total) {
		s.poisoned = true
	}
	return nil
}

func isOverflow(f float64) bool {
	return f > 1.7976931348623157e+307 || f < -1.7976931348623157e+307 || f != f
}

// addInt64Overflows reports whether a+b overflows int64, per Go's
// standard two's-complement overflow check.
func addInt64Overflows(a, b int64) (sum int64, overflow bool) {
	sum = a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, true
	}
	return sum, false
}

func numericValueFloat(v encoding.NumericValue) float64 {
	switch v.Kind {
	case rdffusion.NumericInt, rdffusion.NumericInteger:
		return float64(v.IntVal)
	case rdffusion.NumericDecimal:
		f, _ := strconv.ParseFloat(v.DecimalText, 64)
		return f
	default:
		return v.FloatVal
	}
}

func numericFromFloatRung(rung rdffusion.NumericKind, v float64) encoding.NumericValue {
	switch rung {
	case rdffusion.NumericInt, rdffusion.NumericInteger:
		return encoding.NumericValue{Kind: rung, IntVal: int64(v)}
	case rdffusion.NumericDecimal:
		return encoding.NumericValue{Kind: rung, DecimalText: strconv.FormatFloat(v, 'f', -1, 64)}
	default:
		return encoding.NumericValue{Kind: rung, FloatVal: v}
	}
}

// Avg implements AVG: tracks promoted sum and count; result is
// sum/count with decimal division where the promoted rung is Decimal or
// below (returned as a Decimal lexical), else a float division at the
// promoted rung. The Decimal quotient is computed with float64 division
// and formatted with 18 fractional digits, so it carries float64
// precision rather than exact decimal precision; anything touching
// Float/Double is a plain float64 division.
type Avg struct {
	sum   Sum
	count int64
}

func NewAvg() *Avg { return &Avg{} }

func (a *Avg) UpdateBatch(rows []encoding.ThinResult[encoding.Value]) error {
	for _, r := range rows {
		if r.IsOk() {
			if _, ok := r.Value.(encoding.NumericValue); ok {
				a.count++
			}
		}
	}
	return a.sum.UpdateBatch(rows)
}

func (a *Avg) Evaluate() (encoding.Value, bool) {
	sumVal, ok := a.sum.Evaluate()
	if !ok || a.count == 0 {
		return nil, false
	}
	nv := sumVal.(encoding.NumericValue)
	if nv.Kind == rdffusion.NumericDecimal || nv.Kind == rdffusion.NumericInteger || nv.Kind == rdffusion.NumericInt {
		sumF, _ := strconv.ParseFloat(formatDecimalLike(nv), 64)
		return encoding.NumericValue{Kind: rdffusion.NumericDecimal, DecimalText: strconv.FormatFloat(sumF/float64(a.count), 'f', 18, 64)}, true
	}
	return encoding.NumericValue{Kind: nv.Kind, FloatVal: numericValueFloat(nv) / float64(a.count)}, true
}

func formatDecimalLike(nv encoding.NumericValue) string {
	if nv.DecimalText != "" {
		return nv.DecimalText
	}
	return strconv.FormatInt(nv.IntVal, 10)
}

type avgState struct {
	Sum   sumState
	Count int64
}

func (a *Avg) State() any {
	return avgState{Sum: a.sum.State().(sumState), Count: a.count}
}

func (a *Avg) MergeBatch(other any) error {
	o := other.(avgState)
	a.count += o.Count
	return a.sum.MergeBatch(o.Sum)
}

// MinMax implements MIN/MAX: uses the partial order from package
// scalarops; an incoming value incomparable with the current extreme
// poisons the accumulator only when the op genuinely cannot decide
// (spec.md §9's MIN/MAX poisoning Open Question) — resolved here as:
// poison permanently on the first incomparable pair, since silently
// dropping one side would make the aggregate order-dependent.
type MinMax struct {
	wantMax  bool
	current  encoding.Value
	seen     bool
	poisoned bool
}

func NewMin() *MinMax { return &MinMax{wantMax: false} }
func NewMax() *MinMax { return &MinMax{wantMax: true} }

func (m *MinMax) UpdateBatch(rows []encoding.ThinResult[encoding.Value]) error {
	if m.poisoned {
		return nil
	}
	for _, r := range rows {
		if !r.IsOk() {
			continue
		}
		if !m.seen {
			m.current, m.seen = r.Value, true
			continue
		}
		keep, poisoned := m.pick(m.current, r.Value)
		if poisoned {
			m.poisoned = true
			return nil
		}
		m.current = keep
	}
	return nil
}

func (m *MinMax) pick(a, b encoding.Value) (encoding.Value, bool) {
	cmp, ok := comparablePartialOrder(a, b)
	if !ok {
		return nil, true
	}
	if (m.wantMax && cmp >= 0) || (!m.wantMax && cmp <= 0) {
		return a, false
	}
	return b, false
}

// comparablePartialOrder exposes scalarops' ordering decision for use by
// the aggregate package without re-deriving it.
func comparablePartialOrder(a, b encoding.Value) (int, bool) {
	res, err := scalarops.LessThan.Evaluate([]any{a, b})
	if err != nil {
		return 0, false
	}
	if bool(res.(encoding.BooleanValue)) {
		return -1, true
	}
	eqRes, err := scalarops.Equals{}.Evaluate([]any{a, b})
	if err == nil && bool(eqRes.(encoding.BooleanValue)) {
		return 0, true
	}
	gtRes, err := scalarops.GreaterThan.Evaluate([]any{a, b})
	if err != nil {
		return 0, false
	}
	if bool(gtRes.(encoding.BooleanValue)) {
		return 1, true
	}
	return 0, false
}

func (m *MinMax) Evaluate() (encoding.Value, bool) {
	if m.poisoned || !m.seen {
		return nil, false
	}
	return m.current, true
}

type minMaxState struct {
	Current  encoding.Value
	Seen     bool
	Poisoned bool
}

func (m *MinMax) State() any {
	return minMaxState{Current: m.current, Seen: m.seen, Poisoned: m.poisoned}
}

func (m *MinMax) MergeBatch(other any) error {
	o := other.(minMaxState)
	if o.Poisoned {
		m.poisoned = true
		return nil
	}
	if !o.Seen {
		return nil
	}
	if !m.seen {
		m.current, m.seen = o.Current, true
		return nil
	}
	keep, poisoned := m.pick(m.current, o.Current)
	if poisoned {
		m.poisoned = true
		return nil
	}
	m.current = keep
	return nil
}

// Count implements COUNT: counts rows rather than folding a value.
// CountAll (the `COUNT(*)` form) counts every input row including rows
// whose argument would have been unbound; otherwise only Ok rows count.
// Unlike the other accumulators, an empty group still evaluates (to 0)
// rather than reporting ok=false, matching SPARQL's COUNT-over-empty
// rule (spec.md §8 scenario 5).
type Count struct {
	countAll bool
	n        int64
}

func NewCount(countAll bool) *Count { return &Count{countAll: countAll} }

func (c *Count) UpdateBatch(rows []encoding.ThinResult[encoding.Value]) error {
	if c.countAll {
		c.n += int64(len(rows))
		return nil
	}
	for _, r := range rows {
		if r.IsOk() {
			c.n++
		}
	}
	return nil
}

func (c *Count) Evaluate() (encoding.Value, bool) {
	return encoding.NumericValue{Kind: rdffusion.NumericInteger, IntVal: c.n}, true
}

type countState struct {
	N int64
}

func (c *Count) State() any { return countState{N: c.n} }

func (c *Count) MergeBatch(other any) error {
	o := other.(countState)
	c.n += o.N
	return nil
}

// GroupConcat implements GROUP_CONCAT: concatenates string literals with
// separator (default " "), preserving a common language tag only if
// every input shares it. A non-string input poisons the accumulator.
// spec.md §9's merge-across-partitions Open Question (does a dropped
// element during a parallel merge silently change the result) is
// resolved here by MergeBatch concatenating whole partial strings in a
// fixed partition order rather than re-interleaving elements, so no
// element is ever dropped (DESIGN.md).
type GroupConcat struct {
	separator string
	parts     []string
	lang      string
	langSet   bool
	sameLang  bool
	poisoned  bool
	anySeen   bool
}

func NewGroupConcat(separator string) *GroupConcat {
	if separator == "" {
		separator = " "
	}
	return &GroupConcat{separator: separator, sameLang: true}
}

func (g *GroupConcat) UpdateBatch(rows []encoding.ThinResult[encoding.Value]) error {
	if g.poisoned {
		return nil
	}
	for _, r := range rows {
		if !r.IsOk() {
			continue
		}
		sv, ok := r.Value.(encoding.StringValue)
		if !ok {
			g.poisoned = true
			return nil
		}
		g.anySeen = true
		g.parts = append(g.parts, sv.Value)
		if !g.langSet {
			g.lang, g.langSet = sv.Language, true
			g.sameLang = sv.HasLanguage
		} else if sv.Language != g.lang || !sv.HasLanguage {
			g.sameLang = false
		}
	}
	return nil
}

func (g *GroupConcat) Evaluate() (encoding.Value, bool) {
	if g.poisoned || !g.anySeen {
		return nil, false
	}
	return encoding.StringValue{
		Value:       strings.Join(g.parts, g.separator),
		Language:    g.lang,
		HasLanguage: g.sameLang,
	}, true
}

type groupConcatState struct {
	Parts    []string
	Lang     string
	LangSet  bool
	SameLang bool
	Poisoned bool
	AnySeen  bool
}

func (g *GroupConcat) State() any {
	return groupConcatState{Parts: g.parts, Lang: g.lang, LangSet: g.langSet, SameLang: g.sameLang, Poisoned: g.poisoned, AnySeen: g.anySeen}
}

func (g *GroupConcat) MergeBatch(other any) error {
	o := other.(groupConcatState)
	if o.Poisoned {
		g.poisoned = true
		return nil
	}
	g.anySeen = g.anySeen || o.AnySeen
	g.parts = append(g.parts, o.Parts...)
	if !g.langSet {
		g.lang, g.langSet, g.sameLang = o.Lang, o.LangSet, o.SameLang
	} else if o.LangSet && (o.Lang != g.lang || !o.SameLang) {
		g.sameLang = false
	}
	return nil
}
