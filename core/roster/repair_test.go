package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRepair(t *testing.T, req Request) (*assignment, []Violation) {
	t.Helper()
	r, err := normalize(req)
	require.NoError(t, err)
	c := buildConflicts(r.students)
	a, _ := partition(r)
	repair(a, c)
	return a, groupViolations(a, c)
}

func Test_repair(t *testing.T) {
	t.Run("splits a group with rank-close swaps", func(t *testing.T) {
		// the snake puts m01, m06 and m07 in section 0
		students := males(30, func(i int, s *Student) {
			if i == 0 || i == 5 || i == 6 {
				s.GroupTag = "SEP:1반-A"
			}
		})
		a, violations := mustRepair(t, Request{Sections: 3, Students: students})

		assert.Empty(t, violations)
		assert.Equal(t, 0, sectionOf(a, "m01"))
		assert.Equal(t, 1, sectionOf(a, "m06"))
		assert.Equal(t, 2, sectionOf(a, "m07"))
		// the swapped partners took their seats
		assert.Equal(t, 0, sectionOf(a, "m05"))
		assert.Equal(t, 0, sectionOf(a, "m09"))
		assert.LessOrEqual(t, a.rankSpread(SexMale), a.rankTolerance())
	})

	t.Run("pigeonhole leaves a violation", func(t *testing.T) {
		students := males(6, func(i int, s *Student) {
			if i < 3 {
				s.GroupTag = "SEP:A"
			}
		})
		_, violations := mustRepair(t, Request{Sections: 2, Students: students})

		require.Len(t, violations, 1)
		v := violations[0]
		assert.Equal(t, KindSeparationViolation, v.Kind)
		assert.Equal(t, "A", v.Group)
		assert.Equal(t, 0, v.Origin)
		assert.Equal(t, 2, v.Section)
		assert.Equal(t, []string{"m02", "m03"}, v.StudentIDs)
	})

	t.Run("does not swap into another group", func(t *testing.T) {
		// m01 and m06 share section 0; m05, the closest partner for m06, would join m07 there
		students := males(9, func(i int, s *Student) {
			switch i {
			case 0, 5:
				s.GroupTag = "SEP:A"
			case 4, 6:
				s.GroupTag = "SEP:B"
			}
		})
		a, violations := mustRepair(t, Request{Sections: 3, Students: students})
		assert.Empty(t, violations)
		assert.Equal(t, 1, sectionOf(a, "m06"))
		assert.Equal(t, 0, sectionOf(a, "m08"))
		assert.Equal(t, 1, sectionOf(a, "m05"))
		assert.Equal(t, 0, sectionOf(a, "m07"))
	})

	t.Run("transferring members stay put", func(t *testing.T) {
		students := males(5, func(i int, s *Student) {
			s.IsTransferring = i == 0
		})
		// m02 is drafted first and m01 last, both into section 0
		students[0].GroupTag, students[1].GroupTag = "SEP:A", "SEP:A"
		a, violations := mustRepair(t, Request{Sections: 2, Students: students})

		assert.Empty(t, violations)
		assert.Equal(t, 0, sectionOf(a, "m01"))
		assert.Equal(t, 1, sectionOf(a, "m02"))
		assert.Equal(t, 0, sectionOf(a, "m03"))
	})

	t.Run("transferring members only", func(t *testing.T) {
		students := males(3, func(i int, s *Student) {
			s.IsTransferring = i < 2
			if i < 2 {
				s.GroupTag = "SEP:A"
			}
		})
		_, violations := mustRepair(t, Request{Sections: 2, Students: students})
		require.Len(t, violations, 1)
		assert.Equal(t, []string{"m01", "m02"}, violations[0].StudentIDs)
	})

	t.Run("same sex only", func(t *testing.T) {
		students := []Student{
			student("m01", SexMale, 1),
			student("m02", SexMale, 2),
			student("f01", SexFemale, 1),
			student("f02", SexFemale, 2),
		}
		// one male per section after the snake: m01 -> 0, m02 -> 1; females mirrored: f01 -> 1, f02 -> 0
		students[0].GroupTag, students[3].GroupTag = "SEP:A", "SEP:A"
		a, violations := mustRepair(t, Request{Sections: 2, Students: students})
		assert.Empty(t, violations)
		assert.NotEqual(t, sectionOf(a, "m01"), sectionOf(a, "f02"))
		for _, sec := range a.sections {
			assert.Len(t, sec, 2)
		}
	})

	t.Run("falls back to a swap outside tolerance", func(t *testing.T) {
		students := males(4, func(i int, s *Student) {
			if i == 3 {
				s.Rank = 20
			}
			if i == 0 || i == 3 {
				s.GroupTag = "SEP:A"
			}
		})
		a, violations := mustRepair(t, Request{Sections: 2, Students: students})

		assert.Empty(t, violations)
		assert.Equal(t, 0, sectionOf(a, "m01"))
		assert.Equal(t, 1, sectionOf(a, "m04"))
		assert.Equal(t, 0, sectionOf(a, "m03"))
		assert.Greater(t, a.rankSpread(SexMale), a.rankTolerance())
	})

	t.Run("same-name students are split", func(t *testing.T) {
		students := males(4, func(i int, s *Student) {
			if i == 0 || i == 3 {
				s.Name = "김민준"
			}
		})
		a, violations := mustRepair(t, Request{Sections: 2, Students: students})

		assert.Empty(t, violations)
		assert.Equal(t, 1, sectionOf(a, "m04"))
		assert.Equal(t, 0, sectionOf(a, "m03"))
	})

	t.Run("same-name pigeonhole is reported", func(t *testing.T) {
		students := males(6, func(i int, s *Student) {
			if i < 3 {
				s.Name = "김민준"
			}
		})
		_, violations := mustRepair(t, Request{Sections: 2, Students: students})

		require.Len(t, violations, 1)
		v := violations[0]
		assert.Equal(t, KindDuplicateName, v.Kind)
		assert.Equal(t, 2, v.Section)
		assert.Equal(t, []string{"m02", "m03"}, v.StudentIDs)
		assert.Contains(t, v.Message, "김민준")
	})
}

func Test_repair_binds(t *testing.T) {
	t.Run("gathers a bind group", func(t *testing.T) {
		students := males(4, func(i int, s *Student) {
			if i < 2 {
				s.GroupTag = "BIND:x"
			}
		})
		a, violations := mustRepair(t, Request{Sections: 2, Students: students})

		assert.Empty(t, violations)
		assert.Equal(t, 0, sectionOf(a, "m01"))
		assert.Equal(t, 0, sectionOf(a, "m02"))
		assert.Equal(t, 1, sectionOf(a, "m04"))
	})

	t.Run("reports a group it cannot gather", func(t *testing.T) {
		students := []Student{
			student("m01", SexMale, 1),
			student("m02", SexMale, 2),
			student("f01", SexFemale, 1),
			student("f02", SexFemale, 2),
		}
		students[0].GroupTag, students[1].GroupTag = "BIND:x", "BIND:x"
		_, violations := mustRepair(t, Request{Sections: 2, Students: students})

		require.Len(t, violations, 1)
		v := violations[0]
		assert.Equal(t, KindBindViolation, v.Kind)
		assert.Equal(t, "x", v.Group)
		assert.Equal(t, 1, v.Section)
		assert.Equal(t, []string{"m01", "m02"}, v.StudentIDs)
	})

	t.Run("bound members are not moved apart", func(t *testing.T) {
		// m01 and m04 share section 0 and group A; m04 is bound to m05 there
		students := males(6, func(i int, s *Student) {
			switch i {
			case 0:
				s.GroupTag = "SEP:A"
			case 3:
				s.GroupTag = "SEP:A, BIND:y"
			case 4:
				s.GroupTag = "BIND:y"
			}
		})
		a, violations := mustRepair(t, Request{Sections: 2, Students: students})

		assert.Empty(t, violations)
		assert.Equal(t, 0, sectionOf(a, "m04"))
		assert.Equal(t, 0, sectionOf(a, "m05"))
		assert.Equal(t, 1, sectionOf(a, "m01"))
	})
}
