package roster

import "fmt"

// assignment is the output arena: section membership indexed 0..N-1.
type assignment struct {
	r        *roster
	sections [][]int // student indexes per section, placement order
	of       []int   // section of every student
	quota    *quota

	// rankSums holds, per sex (draftOrder), the rank weight of the active students of each section.
	rankSums [][]int
	// sexes holds, per sex (draftOrder), the number of students of each section.
	sexes [][]int
}

func newAssignment(r *roster) *assignment {
	a := &assignment{
		r:        r,
		sections: make([][]int, r.sections),
		of:       make([]int, len(r.students)),
		quota:    newQuota(r.policy, len(r.students), r.sections),
		rankSums: make([][]int, len(draftOrder)),
		sexes:    make([][]int, len(draftOrder)),
	}
	for d := range draftOrder {
		a.rankSums[d] = make([]int, r.sections)
		a.sexes[d] = make([]int, r.sections)
	}
	for i := range a.of {
		a.of[i] = -1
	}
	return a
}

func (a *assignment) place(i, sec int) {
	s := a.r.students[i]
	a.sections[sec] = append(a.sections[sec], i)
	a.of[i] = sec
	a.quota.add(sec, s)
	a.sexes[sexIndex(s.Sex)][sec]++
	if s.active() {
		a.rankSums[sexIndex(s.Sex)][sec] += a.r.rankWeight(i)
	}
}

func (a *assignment) unplace(i int) {
	sec := a.of[i]
	s := a.r.students[i]
	members := a.sections[sec]
	for p, m := range members {
		if m == i {
			a.sections[sec] = append(members[:p:p], members[p+1:]...)
			break
		}
	}
	a.of[i] = -1
	a.quota.remove(sec, s)
	a.sexes[sexIndex(s.Sex)][sec]--
	if s.active() {
		a.rankSums[sexIndex(s.Sex)][sec] -= a.r.rankWeight(i)
	}
}

// swap exchanges the sections of two students, keeping each at the other's position.
func (a *assignment) swap(x, y int) {
	sx, sy := a.of[x], a.of[y]
	px, py := a.position(x), a.position(y)
	a.unplace(x)
	a.unplace(y)
	a.insert(y, sx, px)
	a.insert(x, sy, py)
}

func (a *assignment) position(i int) int {
	for p, m := range a.sections[a.of[i]] {
		if m == i {
			return p
		}
	}
	return -1
}

func (a *assignment) insert(i, sec, pos int) {
	a.place(i, sec)
	members := a.sections[sec]
	if pos < 0 || pos >= len(members)-1 {
		return
	}
	copy(members[pos+1:], members[pos:len(members)-1])
	members[pos] = i
}

// rankSpread is the gap between the highest and lowest rank sum of one sex.
func (a *assignment) rankSpread(sex Sex) int {
	sums := a.rankSums[sexIndex(sex)]
	lo, hi := sums[0], sums[0]
	for _, v := range sums[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

// rankTolerance bounds the rank-sum spread the adjustment and repair passes may leave behind.
func (a *assignment) rankTolerance() int {
	return 3 * a.r.sections
}

// attribute is a balanced flag.
type attribute int

const (
	attrProblem attribute = iota
	attrSpecial
	attrUnderachiever
)

var balancedAttributes = []attribute{attrProblem, attrSpecial, attrUnderachiever}

func (at attribute) String() string {
	switch at {
	case attrSpecial:
		return "special"
	case attrUnderachiever:
		return "underachiever"
	}
	return "problem"
}

func (at attribute) has(s Student) bool {
	if !s.active() {
		return false
	}
	switch at {
	case attrSpecial:
		return s.IsSpecial
	case attrUnderachiever:
		return s.IsUnderachiever
	}
	return s.IsProblem
}

// counts returns the per-section count of active students carrying at, and their total.
func (a *assignment) counts(at attribute) ([]int, int) {
	counts := make([]int, a.r.sections)
	var total int
	for sec, members := range a.sections {
		for _, i := range members {
			if at.has(a.r.students[i]) {
				counts[sec]++
				total++
			}
		}
	}
	return counts, total
}

// deviation is the largest distance of a section count from the mean, scaled by N.
// A deviation above N means some section is more than 1 off the mean.
func (a *assignment) deviation(at attribute) int {
	counts, total := a.counts(at)
	var dev int
	for _, c := range counts {
		d := c*a.r.sections - total
		if d < 0 {
			d = -d
		}
		if d > dev {
			dev = d
		}
	}
	return dev
}

// partition runs the per-sex snake draft and the bounded balancing adjustment.
func partition(r *roster) (*assignment, []Violation) {
	a := newAssignment(r)
	var violations []Violation
	for d, draft := range r.drafts {
		for p, i := range draft {
			target := snakeSection(p, r.sections)
			if d%2 == 1 {
				// the second draft mirrors the first so the top picks of both sexes spread out
				target = r.sections - 1 - target
			}
			sec, v := a.resolve(i, target)
			if v != nil {
				violations = append(violations, *v)
			}
			a.place(i, sec)
		}
	}
	a.adjust()
	return a, append(violations, a.sexImbalances()...)
}

// snakeSection maps a draft position onto 0, 1, ..., N-1, N-1, ..., 1, 0, 0, 1, ...
func snakeSection(pos, n int) int {
	round, offset := pos/n, pos%n
	if round%2 == 1 {
		return n - 1 - offset
	}
	return offset
}

// resolve picks the section of student i, whose snake target is target.
// A section with room holding the fewest students of i's sex comes first, then any section with room.
// When no section has room the student is placed anyway and the episode recorded.
func (a *assignment) resolve(i, target int) (int, *Violation) {
	s := a.r.students[i]
	q := a.quota
	balanced := a.balancedSections(s.Sex)
	if containsInt(balanced, target) && q.fits(target, s) {
		return target, nil
	}
	if sec := a.preferred(s, a.withRoom(balanced, s)); sec != -1 {
		return sec, nil
	}
	if sec := a.preferred(s, a.withRoom(a.allSections(), s)); sec != -1 {
		return sec, nil
	}

	if a.r.policy.Mode == QuotaFlexible {
		sec := target
		if !containsInt(balanced, target) {
			sec = a.preferred(s, balanced)
		}
		return sec, &Violation{
			Kind:       KindQuotaWarning,
			Section:    sec + 1,
			StudentIDs: []string{s.ID},
			Message: fmt.Sprintf("no section has room; %s placed in section %d over its adjusted capacity of %d",
				studentLabel(s), sec+1, q.capacityWith(sec, specialWeight(s))),
		}
	}
	sec := q.leastViolating(s, target, balanced)
	return sec, &Violation{
		Kind:       KindQuotaViolation,
		Section:    sec + 1,
		StudentIDs: []string{s.ID},
		Message: fmt.Sprintf("every section reached its adjusted capacity; %s placed in section %d (capacity %d, %d seated)",
			studentLabel(s), sec+1, q.capacityWith(sec, specialWeight(s)), q.assigned[sec]+1),
	}
}

func (a *assignment) allSections() []int {
	secs := make([]int, a.r.sections)
	for sec := range secs {
		secs[sec] = sec
	}
	return secs
}

// balancedSections are the sections holding the fewest students of sex: placing there keeps
// the per-sex counts within one of each other.
func (a *assignment) balancedSections(sex Sex) []int {
	counts := a.sexes[sexIndex(sex)]
	least := counts[0]
	for _, c := range counts[1:] {
		if c < least {
			least = c
		}
	}
	var secs []int
	for sec, c := range counts {
		if c == least {
			secs = append(secs, sec)
		}
	}
	return secs
}

func (a *assignment) withRoom(secs []int, s Student) []int {
	var out []int
	for _, sec := range secs {
		if a.quota.fits(sec, s) {
			out = append(out, sec)
		}
	}
	return out
}

// preferred orders redirect candidates: fewest students of the same sex, then the lowest
// rank sum of that sex, then fewest students, then the lowest section. It returns -1 for none.
func (a *assignment) preferred(s Student, secs []int) int {
	d := sexIndex(s.Sex)
	best := -1
	for _, sec := range secs {
		if best == -1 {
			best = sec
			continue
		}
		switch {
		case a.sexes[d][sec] != a.sexes[d][best]:
			if a.sexes[d][sec] < a.sexes[d][best] {
				best = sec
			}
		case a.rankSums[d][sec] != a.rankSums[d][best]:
			if a.rankSums[d][sec] < a.rankSums[d][best] {
				best = sec
			}
		case len(a.sections[sec]) < len(a.sections[best]):
			best = sec
		}
	}
	return best
}

// sexImbalances reports every sex whose section counts differ by more than one.
func (a *assignment) sexImbalances() []Violation {
	var violations []Violation
	for d, sex := range draftOrder {
		counts := a.sexes[d]
		lo, hi := 0, 0
		for sec, c := range counts {
			if c < counts[lo] {
				lo = sec
			}
			if c > counts[hi] {
				hi = sec
			}
		}
		if counts[hi]-counts[lo] <= 1 {
			continue
		}
		violations = append(violations, Violation{
			Kind:       KindSexImbalance,
			Section:    hi + 1,
			StudentIDs: []string{},
			Message: fmt.Sprintf("sections hold between %d and %d students of sex %s; section %d is the fullest",
				counts[lo], counts[hi], sex, hi+1),
		})
	}
	return violations
}

// adjust swaps same-sex pairs across sections while a flag count is more than 1 off its mean.
// It runs at most N passes, one swap per unbalanced attribute per pass.
func (a *assignment) adjust() {
	n := a.r.sections
	for pass := 0; pass < n; pass++ {
		improved := false
		for _, at := range balancedAttributes {
			if a.deviation(at) <= n {
				continue
			}
			if a.rebalance(at) {
				improved = true
			}
		}
		if !improved {
			return
		}
	}
}

// rebalance moves one flagged student out of the fullest section into the emptiest one,
// taking back the unflagged student of the same sex closest in rank.
func (a *assignment) rebalance(at attribute) bool {
	counts, _ := a.counts(at)
	hi, lo := 0, 0
	for sec, c := range counts {
		if c > counts[hi] {
			hi = sec
		}
		if c < counts[lo] {
			lo = sec
		}
	}
	if hi == lo {
		return false
	}

	bestX, bestY, bestDiff := -1, -1, 0
	for _, x := range a.sections[hi] {
		sx := a.r.students[x]
		if !at.has(sx) {
			continue
		}
		for _, y := range a.sections[lo] {
			sy := a.r.students[y]
			if sy.Sex != sx.Sex || !sy.active() || at.has(sy) {
				continue
			}
			diff := abs(a.r.rankWeight(x) - a.r.rankWeight(y))
			if bestX != -1 && diff >= bestDiff {
				continue
			}
			if !a.swapKeepsBalance(x, y, at) {
				continue
			}
			bestX, bestY, bestDiff = x, y, diff
		}
	}
	if bestX == -1 {
		return false
	}
	a.swap(bestX, bestY)
	return true
}

// swapKeepsBalance tries the swap and undoes it, reporting whether rank balance,
// the other flag's balance and quota overflow stayed within bounds.
func (a *assignment) swapKeepsBalance(x, y int, at attribute) bool {
	sex := a.r.students[x].Sex
	spread := a.rankSpread(sex)
	overflow := a.quota.overflow()
	others := make(map[attribute]int, len(balancedAttributes))
	for _, o := range balancedAttributes {
		if o != at {
			others[o] = a.deviation(o)
		}
	}

	a.swap(x, y)
	defer a.swap(x, y)

	if a.rankSpread(sex) > maxInt(spread, a.rankTolerance()) {
		return false
	}
	if a.quota.overflow() > overflow {
		return false
	}
	for o, dev := range others {
		if a.deviation(o) > dev {
			return false
		}
	}
	return true
}

func studentLabel(s Student) string {
	switch {
	case s.Name != "" && s.ID != "":
		return fmt.Sprintf("%s (%s)", s.Name, s.ID)
	case s.Name != "":
		return s.Name
	}
	return s.ID
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
