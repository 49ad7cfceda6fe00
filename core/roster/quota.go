package roster

// quota tracks the adjusted capacity of every section while students are placed.
type quota struct {
	policy   QuotaPolicy
	base     int   // even split of the roster: ceil(len / N)
	assigned []int // students per section
	specials []int // active special-needs students per section
}

func newQuota(policy QuotaPolicy, rosterSize, sections int) *quota {
	return &quota{
		policy:   policy,
		base:     (rosterSize + sections - 1) / sections,
		assigned: make([]int, sections),
		specials: make([]int, sections),
	}
}

// specialWeight is 1 for the students reducing the capacity of their section.
func specialWeight(s Student) int {
	if s.IsSpecial && s.active() {
		return 1
	}
	return 0
}

// capacity is the adjusted capacity of a section, clamped to zero.
func (q *quota) capacity(sec int) int {
	return q.capacityWith(sec, 0)
}

// capacityWith is the adjusted capacity of sec once `extra` more special-needs students sit in it.
func (q *quota) capacityWith(sec, extra int) int {
	c := q.base - q.policy.ReductionCount*(q.specials[sec]+extra)
	if c < 0 {
		return 0
	}
	return c
}

// excess is the number of seats sec would be over its adjusted capacity with s seated in it.
// s fits when it is zero or less.
func (q *quota) excess(sec int, s Student) int {
	return q.assigned[sec] + 1 - q.capacityWith(sec, specialWeight(s))
}

func (q *quota) fits(sec int, s Student) bool {
	return q.excess(sec, s) <= 0
}

func (q *quota) add(sec int, s Student) {
	q.assigned[sec]++
	q.specials[sec] += specialWeight(s)
}

func (q *quota) remove(sec int, s Student) {
	q.assigned[sec]--
	q.specials[sec] -= specialWeight(s)
}

// overflow is the total number of seats taken beyond adjusted capacity.
func (q *quota) overflow() int {
	var n int
	for sec := range q.assigned {
		if over := q.assigned[sec] - q.capacity(sec); over > 0 {
			n += over
		}
	}
	return n
}

// leastViolating returns the section s exceeds the least.
// Among equals, sections keeping the sex balance come first; then the snake target
// when the policy says so, else the lowest section.
func (q *quota) leastViolating(s Student, target int, balanced []int) int {
	least := q.excess(0, s)
	for sec := range q.assigned {
		if e := q.excess(sec, s); e < least {
			least = e
		}
	}
	var tied []int
	for sec := range q.assigned {
		if q.excess(sec, s) == least {
			tied = append(tied, sec)
		}
	}
	if kept := intersect(tied, balanced); len(kept) > 0 {
		tied = kept
	}
	if q.policy.TieBreak == TieBreakSnakeTarget && containsInt(tied, target) {
		return target
	}
	return tied[0]
}

func containsInt(vs []int, v int) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}

// intersect keeps the values of xs found in ys, in xs order.
func intersect(xs, ys []int) []int {
	var out []int
	for _, x := range xs {
		if containsInt(ys, x) {
			out = append(out, x)
		}
	}
	return out
}
