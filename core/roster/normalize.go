package roster

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/trezcool/regroup/core"
)

// roster is the validated, read-only view of a Request shared by every stage.
type roster struct {
	students []Student
	sections int
	policy   QuotaPolicy

	// drafts holds, per sex (draftOrder), student indexes in draft order:
	// ranked by rank, then unranked, then transferring; ties keep input order.
	drafts [][]int
	// maxRank is the highest rank per sex; unranked students weigh maxRank+1 in the rank balance.
	maxRank map[Sex]int
}

// normalize validates the request and shapes the per-sex draft orderings.
func normalize(req Request) (*roster, error) {
	if req.Sections < 2 {
		return nil, core.NewValidationError(ErrTooFewSections, core.FieldError{
			Field: "sections",
			Error: fmt.Sprintf("%s (got %d)", ErrTooFewSections, req.Sections),
		})
	}
	if len(req.Students) == 0 {
		return nil, core.NewValidationError(ErrEmptyRoster, core.FieldError{Field: "students", Error: ErrEmptyRoster.Error()})
	}

	policy := req.Policy
	if policy.Mode == "" {
		policy.Mode = QuotaFlexible
	}
	if policy.TieBreak == "" {
		policy.TieBreak = TieBreakLowestSection
	}
	if err := policy.validate(); err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "policy", Error: err.Error()})
	}

	students := make([]Student, len(req.Students))
	copy(students, req.Students)

	var flds []core.FieldError
	var firstErr error
	fail := func(i int, err error) {
		if firstErr == nil {
			firstErr = err
		}
		flds = append(flds, core.FieldError{Field: "students[" + strconv.Itoa(i) + "]", Error: err.Error()})
	}

	seenIDs := make(map[string]struct{}, len(students))
	seenRanks := make(map[Sex]map[int]struct{}, len(draftOrder))
	maxRank := make(map[Sex]int, len(draftOrder))
	for i, s := range students {
		if !s.Sex.Valid() {
			sex, err := ParseSex(string(s.Sex))
			if err != nil {
				fail(i, err)
				continue
			}
			students[i].Sex = sex
			s.Sex = sex
		}
		if s.ID != "" {
			if _, dup := seenIDs[s.ID]; dup {
				fail(i, ErrDuplicateStudent)
				continue
			}
			seenIDs[s.ID] = struct{}{}
		}
		if s.Rank < 0 {
			fail(i, ErrInvalidRank)
			continue
		}
		if !s.Ranked() {
			continue
		}
		ranks, ok := seenRanks[s.Sex]
		if !ok {
			ranks = make(map[int]struct{})
			seenRanks[s.Sex] = ranks
		}
		if _, dup := ranks[s.Rank]; dup {
			fail(i, ErrDuplicateRank)
			continue
		}
		ranks[s.Rank] = struct{}{}
		if s.Rank > maxRank[s.Sex] {
			maxRank[s.Sex] = s.Rank
		}
	}
	if firstErr != nil {
		return nil, core.NewValidationError(firstErr, flds...)
	}

	r := &roster{
		students: students,
		sections: req.Sections,
		policy:   policy,
		drafts:   make([][]int, len(draftOrder)),
		maxRank:  maxRank,
	}
	for d, sex := range draftOrder {
		var draft []int
		for i, s := range students {
			if s.Sex == sex {
				draft = append(draft, i)
			}
		}
		sort.SliceStable(draft, func(a, b int) bool {
			return r.draftKey(draft[a]) < r.draftKey(draft[b])
		})
		r.drafts[d] = draft
	}
	return r, nil
}

// draftKey orders ranked students by rank, then unranked, then transferring students.
func (r *roster) draftKey(i int) int {
	s := r.students[i]
	switch {
	case s.IsTransferring:
		return 2 * (r.maxRank[s.Sex] + 1)
	case s.Ranked():
		return s.Rank
	}
	return r.maxRank[s.Sex] + 1
}

// rankWeight is the rank used for balancing; unranked students sit just below the last ranked one.
func (r *roster) rankWeight(i int) int {
	s := r.students[i]
	if s.Ranked() {
		return s.Rank
	}
	return r.maxRank[s.Sex] + 1
}

func sexIndex(sex Sex) int {
	for d, s := range draftOrder {
		if s == sex {
			return d
		}
	}
	return -1
}
