package roster

import (
	"sort"

	"github.com/volatiletech/null/v8"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// sectionsOf builds the output sections: active students by name, transferring students last.
func sectionsOf(a *assignment) []Section {
	// a Collator keeps internal buffers, one per run
	col := collate.New(language.Korean)
	out := make([]Section, a.r.sections)
	for sec, members := range a.sections {
		ordered := make([]int, len(members))
		copy(ordered, members)
		sort.SliceStable(ordered, func(x, y int) bool {
			sx, sy := a.r.students[ordered[x]], a.r.students[ordered[y]]
			if sx.IsTransferring != sy.IsTransferring {
				return sy.IsTransferring
			}
			if c := col.CompareString(sx.Name, sy.Name); c != 0 {
				return c < 0
			}
			return ordered[x] < ordered[y]
		})

		placements := make([]Placement, len(ordered))
		for k, i := range ordered {
			s := a.r.students[i]
			s.PreviousSection = null.NewInt(s.Section, s.Section > 0)
			placements[k] = Placement{Student: s, NextSection: sec + 1}
		}
		out[sec] = Section{Number: sec + 1, Students: placements}
	}
	return out
}

// statsOf aggregates every section. Flag counts and average rank cover active students only.
func statsOf(a *assignment) []SectionStats {
	stats := make([]SectionStats, a.r.sections)
	for sec, members := range a.sections {
		st := SectionStats{
			Section:          sec + 1,
			Total:            len(members),
			AdjustedCapacity: a.quota.capacity(sec),
		}
		var rankSum, ranked int
		for _, i := range members {
			s := a.r.students[i]
			switch s.Sex {
			case SexMale:
				st.Male++
			case SexFemale:
				st.Female++
			}
			if !s.active() {
				st.Transferring++
				continue
			}
			if s.IsProblem {
				st.Problem++
			}
			if s.IsSpecial {
				st.Special++
			}
			if s.IsUnderachiever {
				st.Underachiever++
			}
			if s.Ranked() {
				rankSum += s.Rank
				ranked++
			}
		}
		if ranked > 0 {
			st.AverageRank = null.Float64From(float64(rankSum) / float64(ranked))
		}
		stats[sec] = st
	}
	return stats
}
