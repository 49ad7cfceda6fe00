package roster

import (
	"fmt"
	"sort"
)

// anySection lets swapCandidate look in every section but the mover's own.
const anySection = -1

// repair gathers bind groups, then moves co-located separation group members apart,
// always with same-sex swaps. Groups are handled in order, each scanned once;
// nothing is undone across groups.
func repair(a *assignment, c *conflicts) {
	for _, g := range c.binds {
		home := a.homeSection(g)
		for _, m := range g.Members {
			if a.of[m] == home {
				continue
			}
			if y := a.swapCandidate(c, m, home); y != -1 {
				a.swap(m, y)
			}
		}
	}

	for _, g := range c.groups {
		for sec := 0; sec < a.r.sections; sec++ {
			colocated := a.groupMembersIn(g.Members, sec)
			if len(colocated) < 2 {
				continue
			}
			// members that cannot move keep their seats first
			sort.SliceStable(colocated, func(x, y int) bool {
				return !a.movable(c, colocated[x]) && a.movable(c, colocated[y])
			})
			for _, m := range colocated[1:] {
				if !a.movable(c, m) {
					continue
				}
				if y := a.swapCandidate(c, m, anySection); y != -1 {
					a.swap(m, y)
				}
			}
		}
	}
}

func (a *assignment) movable(c *conflicts, i int) bool {
	return a.r.students[i].active() && !c.bound[i]
}

// homeSection is the section holding most of g, the lowest on ties.
func (a *assignment) homeSection(g BindGroup) int {
	counts := make([]int, a.r.sections)
	for _, m := range g.Members {
		counts[a.of[m]]++
	}
	home := 0
	for sec, n := range counts {
		if n > counts[home] {
			home = sec
		}
	}
	return home
}

func (a *assignment) groupMembersIn(members []int, sec int) []int {
	var in []int
	for _, m := range members {
		if a.of[m] == sec {
			in = append(in, m)
		}
	}
	return in
}

// swapCandidate finds the student to exchange with m, or -1. It looks in section `to`,
// or in every other section when to is anySection.
// Of the candidates keeping every balance within tolerance, it picks the one leaving
// the smallest rank spread, then the closest in rank, then the first in section order.
// When none does, it falls back to the conflict-free candidate leaving the smallest spread.
func (a *assignment) swapCandidate(c *conflicts, m, to int) int {
	sm := a.r.students[m]
	if !sm.active() {
		return -1
	}
	from := a.of[m]

	best, bestSpread, bestDiff := -1, 0, 0
	fallback, fallbackSpread := -1, 0
	for sec := 0; sec < a.r.sections; sec++ {
		if sec == from || (to != anySection && sec != to) {
			continue
		}
		for _, y := range a.sections[sec] {
			sy := a.r.students[y]
			if sy.Sex != sm.Sex || !sy.active() || c.bound[y] {
				continue
			}
			// y must fit in m's section and m in y's
			if c.conflictsWithAny(y, a.sections[from], m) || c.conflictsWithAny(m, a.sections[sec], y) {
				continue
			}
			spread, within, ok := a.trySwap(m, y)
			if !ok {
				continue
			}
			if !within {
				if fallback == -1 || spread < fallbackSpread {
					fallback, fallbackSpread = y, spread
				}
				continue
			}
			diff := abs(a.r.rankWeight(m) - a.r.rankWeight(y))
			if best == -1 || spread < bestSpread || (spread == bestSpread && diff < bestDiff) {
				best, bestSpread, bestDiff = y, spread, diff
			}
		}
	}
	if best == -1 {
		return fallback
	}
	return best
}

// trySwap swaps x and y, measures, and swaps back. It returns the resulting rank spread,
// whether rank sums and flag counts stayed within tolerance, and whether quota overflow did not grow.
func (a *assignment) trySwap(x, y int) (spread int, within, ok bool) {
	n := a.r.sections
	sex := a.r.students[x].Sex
	before := a.rankSpread(sex)
	overflow := a.quota.overflow()
	devs := make([]int, len(balancedAttributes))
	for k, at := range balancedAttributes {
		devs[k] = a.deviation(at)
	}

	a.swap(x, y)
	defer a.swap(x, y)

	if a.quota.overflow() > overflow {
		return 0, false, false
	}
	spread = a.rankSpread(sex)
	within = spread <= maxInt(before, a.rankTolerance())
	for k, at := range balancedAttributes {
		// within 1 of the mean, or no worse than before
		if a.deviation(at) > maxInt(devs[k], n) {
			within = false
		}
	}
	return spread, within, true
}

// groupViolations lists every bind group left split and, per separation group and section,
// every co-location the repair left in place.
func groupViolations(a *assignment, c *conflicts) []Violation {
	var violations []Violation
	for _, g := range c.binds {
		secs := make(map[int]struct{})
		for _, m := range g.Members {
			secs[a.of[m]] = struct{}{}
		}
		if len(secs) < 2 {
			continue
		}
		violations = append(violations, Violation{
			Kind:       KindBindViolation,
			Section:    a.homeSection(g) + 1,
			Group:      g.Tag.Name,
			Origin:     g.Tag.Origin,
			StudentIDs: a.ids(g.Members),
			Message:    fmt.Sprintf("bind group %q is split over %d sections", g.Tag.String(), len(secs)),
		})
	}

	for _, g := range c.groups {
		for sec := 0; sec < a.r.sections; sec++ {
			colocated := a.groupMembersIn(g.Members, sec)
			if len(colocated) < 2 {
				continue
			}
			v := Violation{
				Kind:       KindSeparationViolation,
				Section:    sec + 1,
				Group:      g.Tag.Name,
				Origin:     g.Tag.Origin,
				StudentIDs: a.ids(colocated),
				Message: fmt.Sprintf("separation group %q has %d students in section %d",
					g.Tag.String(), len(colocated), sec+1),
			}
			if g.sameName {
				v.Kind = KindDuplicateName
				v.Group = ""
				v.Message = fmt.Sprintf("%d students named %q share section %d", len(colocated), g.Tag.Name, sec+1)
			}
			violations = append(violations, v)
		}
	}
	return violations
}

func (a *assignment) ids(members []int) []string {
	ids := make([]string, len(members))
	for k, m := range members {
		ids[k] = a.r.students[m].ID
	}
	return ids
}
