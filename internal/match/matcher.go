package match

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jask/panelmatch/internal/normalize"
	"github.com/jask/panelmatch/internal/table"
)

// Unmatched reasons.
const (
	ReasonNoIdentity  = "no name, phone or email to compare"
	ReasonEmptyTarget = "target set is empty"
	ReasonNoSignal    = "no target shares a name, phone or email"
)

// Outcome is the result for one source record.
type Outcome struct {
	Source   int
	Matched  bool
	Target   int // -1 when unmatched
	TargetID string
	Type     Type
	Score    float64
	Reason   string
}

// Fuzzy reports whether the match relied on an approximate comparison.
func (o Outcome) Fuzzy() bool {
	return o.Matched && o.Type == TypeFuzzyName
}

// key holds the normalized identity values of one record.
type key struct {
	name    string
	compact string
	phone   string
	email   string
}

func (k key) empty() bool {
	return k.name == "" && k.phone == "" && k.email == ""
}

func keyOf(r table.Record, f Fields) key {
	raw := r.Get(f.Name...)
	return key{
		name:    normalize.Name(raw),
		compact: normalize.NameCompact(raw),
		phone:   firstPhone(r, f.Phone),
		email:   firstEmail(r, f.Email),
	}
}

// firstPhone returns the first column that normalizes to a non-empty number,
// so a junk value in the primary column falls through to the next.
func firstPhone(r table.Record, cols []string) string {
	for _, c := range cols {
		if p := normalize.Phone(r[c]); p != "" {
			return p
		}
	}
	return ""
}

func firstEmail(r table.Record, cols []string) string {
	for _, c := range cols {
		if e := normalize.Email(r[c]); e != "" {
			return e
		}
	}
	return ""
}

// Matcher finds, for each source record, the best target record.
type Matcher struct {
	opts Options
}

// New returns a Matcher. Zero weights are replaced by DefaultWeights.
func New(opts Options) *Matcher {
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights()
	}
	return &Matcher{opts: opts}
}

// Options returns the effective options.
func (m *Matcher) Options() Options { return m.opts }

// Match returns one outcome per source record, in source order. Each source
// keeps the highest-scoring target; on equal scores the earlier target wins.
// Matching is evaluated per source record, so swapping source and target is
// not guaranteed to produce the inverse mapping.
func (m *Matcher) Match(source, target []table.Record) []Outcome {
	sk := make([]key, len(source))
	for i, r := range source {
		sk[i] = keyOf(r, m.opts.Source)
	}
	tk := make([]key, len(target))
	for j, r := range target {
		tk[j] = keyOf(r, m.opts.Target)
	}

	var idx *blockIndex
	if m.opts.Blocking {
		idx = newBlockIndex(tk, m.opts.Weights.PhoneSuffixDigits)
	}

	out := make([]Outcome, len(source))
	for i := range source {
		out[i] = m.matchOne(i, sk[i], tk, target, idx)
	}
	return out
}

func (m *Matcher) matchOne(i int, s key, tk []key, target []table.Record, idx *blockIndex) Outcome {
	o := Outcome{Source: i, Target: -1}
	switch {
	case s.empty():
		o.Reason = ReasonNoIdentity
		return o
	case len(tk) == 0:
		o.Reason = ReasonEmptyTarget
		return o
	}

	best, bestScore, bestType := -1, 0.0, Type("")
	consider := func(j int) {
		score, typ, ok := m.score(s, tk[j])
		if ok && score > bestScore {
			best, bestScore, bestType = j, score, typ
		}
	}
	if idx != nil {
		for _, j := range idx.candidates(s) {
			consider(j)
		}
	} else {
		for j := range tk {
			consider(j)
		}
	}

	if best < 0 {
		o.Reason = ReasonNoSignal
		return o
	}
	if bestScore < m.opts.MinScore {
		o.Score = bestScore
		o.Reason = fmt.Sprintf("best candidate scored %.1f, below %.1f", bestScore, m.opts.MinScore)
		return o
	}
	o.Matched = true
	o.Target = best
	o.TargetID = m.targetID(best, target[best])
	o.Type = bestType
	o.Score = bestScore
	return o
}

func (m *Matcher) targetID(j int, r table.Record) string {
	if m.opts.Target.ID != "" {
		if id := strings.TrimSpace(r[m.opts.Target.ID]); id != "" {
			return id
		}
	}
	return GeneratedID(m.opts.IDPrefix, j)
}

// GeneratedID is the identifier given to a target row without one.
func GeneratedID(prefix string, index int) string {
	return fmt.Sprintf("%s%05d", prefix, index)
}

// score compares one pair. ok is false when no signal fired.
func (m *Matcher) score(s, t key) (float64, Type, bool) {
	w := m.opts.Weights

	var email, phone, name float64
	if s.email != "" && t.email != "" {
		if s.email == t.email {
			email = w.EmailExact
		} else if sim := Ratio(s.email, t.email); sim > m.opts.EmailSimilarity {
			email = w.EmailFuzzy * sim
		}
	}
	if s.phone != "" && t.phone != "" {
		if s.phone == t.phone {
			phone = w.PhoneExact
		} else if suffixMatch(s.phone, t.phone, w.PhoneMinDigits, w.PhoneSuffixDigits) {
			phone = w.PhoneSuffix
		}
	}
	nameSim := NameSimilarity(s.name, t.name, w.Containment)
	if nameSim > 0 && nameSim >= m.opts.Threshold {
		name = w.Name * nameSim
	}

	if email > 0 && phone > 0 {
		return w.Both, TypeBoth, true
	}
	total := email + phone + name
	if total == 0 {
		return 0, "", false
	}

	// strongest single signal; ties go to email, then phone
	typ, top := TypeEmail, email
	if phone > top {
		typ, top = TypePhone, phone
	}
	if name > top {
		typ = TypeFuzzyName
		if nameSim == 1 {
			typ = TypeExact
		}
	}
	return total, typ, true
}

func suffixMatch(a, b string, minDigits, suffix int) bool {
	if len(a) < minDigits || len(b) < minDigits || suffix <= 0 {
		return false
	}
	if len(a) < suffix || len(b) < suffix {
		return false
	}
	return a[len(a)-suffix:] == b[len(b)-suffix:]
}

// blockIndex maps blocking keys to ascending target indices.
type blockIndex struct {
	suffix int
	keys   map[string][]int
}

func newBlockIndex(tk []key, suffix int) *blockIndex {
	b := &blockIndex{suffix: suffix, keys: make(map[string][]int, len(tk)*2)}
	for j, k := range tk {
		for _, bk := range b.blockKeys(k) {
			b.keys[bk] = append(b.keys[bk], j)
		}
	}
	return b
}

func (b *blockIndex) blockKeys(k key) []string {
	var out []string
	if len(k.phone) >= b.suffix && b.suffix > 0 {
		out = append(out, "p:"+k.phone[len(k.phone)-b.suffix:])
	}
	if k.email != "" {
		out = append(out, "e:"+k.email)
		if local := normalize.EmailLocal(k.email); local != "" {
			out = append(out, "l:"+local)
		}
	}
	if k.compact != "" {
		out = append(out, "n:"+k.compact)
	}
	return out
}

// candidates returns the union of targets sharing any key with s, in target
// order so tie-breaks match the full scan.
func (b *blockIndex) candidates(s key) []int {
	var out []int
	for _, bk := range b.blockKeys(s) {
		out = append(out, b.keys[bk]...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
