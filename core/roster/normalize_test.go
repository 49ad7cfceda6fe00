package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/regroup/core"
)

func student(id string, sex Sex, rank int) Student {
	return Student{ID: id, Name: id, Sex: sex, Rank: rank, Section: 1}
}

func ids(r *roster, idx []int) []string {
	out := make([]string, len(idx))
	for k, i := range idx {
		out[k] = r.students[i].ID
	}
	return out
}

func Test_normalize(t *testing.T) {
	t.Run("rejections", func(t *testing.T) {
		tests := []struct {
			name    string
			req     Request
			wantErr error
			field   string
		}{
			{
				name:    "one section",
				req:     Request{Sections: 1, Students: []Student{student("a", SexMale, 1)}},
				wantErr: ErrTooFewSections,
				field:   "sections",
			},
			{
				name:    "empty roster",
				req:     Request{Sections: 2},
				wantErr: ErrEmptyRoster,
				field:   "students",
			},
			{
				name:    "duplicate rank within a sex",
				req:     Request{Sections: 2, Students: []Student{student("a", SexMale, 1), student("b", SexMale, 1)}},
				wantErr: ErrDuplicateRank,
				field:   "students[1]",
			},
			{
				name:    "duplicate student",
				req:     Request{Sections: 2, Students: []Student{student("a", SexMale, 1), student("a", SexFemale, 2)}},
				wantErr: ErrDuplicateStudent,
				field:   "students[1]",
			},
			{
				name:    "unknown sex",
				req:     Request{Sections: 2, Students: []Student{student("a", "X", 1)}},
				wantErr: ErrInvalidSex,
				field:   "students[0]",
			},
			{
				name:    "negative rank",
				req:     Request{Sections: 2, Students: []Student{student("a", SexMale, -3)}},
				wantErr: ErrInvalidRank,
				field:   "students[0]",
			},
			{
				name:    "negative reduction",
				req:     Request{Sections: 2, Students: []Student{student("a", SexMale, 1)}, Policy: QuotaPolicy{ReductionCount: -1}},
				wantErr: ErrInvalidPolicy,
				field:   "policy",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				r, err := normalize(tt.req)
				assert.Nil(t, r)
				require.Error(t, err)
				require.True(t, core.IsValidationError(err))
				vErr := err.(*core.ValidationError)
				assert.Equal(t, tt.wantErr, vErr.Err)
				require.NotEmpty(t, vErr.Fields)
				assert.Equal(t, tt.field, vErr.Fields[0].Field)
			})
		}
	})

	t.Run("same rank across sexes is fine", func(t *testing.T) {
		_, err := normalize(Request{Sections: 2, Students: []Student{student("a", SexMale, 1), student("b", SexFemale, 1)}})
		assert.NoError(t, err)
	})

	t.Run("draft order", func(t *testing.T) {
		leaving := student("m-leaving", SexMale, 1)
		leaving.IsTransferring = true
		req := Request{Sections: 2, Students: []Student{
			student("f-unranked", "여", 0),
			student("m3", SexMale, 3),
			leaving,
			student("m-unranked-1", SexMale, 0),
			student("f1", SexFemale, 1),
			student("m2", SexMale, 2),
			student("m-unranked-2", "male", 0),
		}}
		r, err := normalize(req)
		require.NoError(t, err)

		assert.Equal(t, []string{"m2", "m3", "m-unranked-1", "m-unranked-2", "m-leaving"}, ids(r, r.drafts[sexIndex(SexMale)]))
		assert.Equal(t, []string{"f1", "f-unranked"}, ids(r, r.drafts[sexIndex(SexFemale)]))

		// spellings are normalized on the copy only
		assert.Equal(t, SexFemale, r.students[0].Sex)
		assert.Equal(t, Sex("여"), req.Students[0].Sex)

		assert.Equal(t, QuotaFlexible, r.policy.Mode)
		assert.Equal(t, TieBreakLowestSection, r.policy.TieBreak)
		assert.Equal(t, 3, r.maxRank[SexMale])
		assert.Equal(t, 4, r.rankWeight(3)) // unranked weighs maxRank+1
	})
}

func TestParseSex(t *testing.T) {
	tests := []struct {
		in      string
		want    Sex
		wantErr error
	}{
		{in: "M", want: SexMale},
		{in: " female ", want: SexFemale},
		{in: "남", want: SexMale},
		{in: "여자", want: SexFemale},
		{in: "", wantErr: ErrInvalidSex},
		{in: "other", wantErr: ErrInvalidSex},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSex(tt.in)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseQuotaMode(t *testing.T) {
	tests := []struct {
		in      string
		want    QuotaMode
		wantErr error
	}{
		{in: "strict", want: QuotaStrict},
		{in: "Force", want: QuotaStrict},
		{in: "flexible", want: QuotaFlexible},
		{in: "", want: QuotaFlexible},
		{in: "lol", wantErr: ErrInvalidPolicy},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuotaMode(tt.in)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
