package inmemdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/regroup/core"
	"github.com/trezcool/regroup/core/roster"
)

func TestRosterRepository_QueryStudents_ordering(t *testing.T) {
	ctx := context.Background()
	repo := NewRosterRepository(Open())
	cls, err := repo.CreateClass(ctx, roster.Class{Name: "1학년", Grade: 1, SectionCount: 2}, []roster.Student{
		{Name: "Bob", Sex: roster.SexMale, Rank: 1, Section: 1},
		{Name: "alice", Sex: roster.SexFemale, Rank: 2, Section: 2},
		{Name: "Carol", Sex: roster.SexFemale, Rank: 3, Section: 1},
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "none", want: []string{"Bob", "alice", "Carol"}},
		{name: "name", ordering: []core.DBOrdering{{Field: "name", Ascending: true}}, want: []string{"alice", "Bob", "Carol"}},
		{name: "name desc", ordering: []core.DBOrdering{{Field: "name"}}, want: []string{"Carol", "Bob", "alice"}},
		{
			name:     "section then rank desc",
			ordering: []core.DBOrdering{{Field: "section_number", Ascending: true}, {Field: "rank"}},
			want:     []string{"Carol", "Bob", "alice"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			students, err := repo.QueryStudents(ctx, cls.ID, roster.StudentFilter{Ordering: tt.ordering})
			require.NoError(t, err)
			got := make([]string, len(students))
			for i, s := range students {
				got[i] = s.Name
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
