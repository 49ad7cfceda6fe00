package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeparationTags(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  []GroupTag
	}{
		{name: "empty", label: "", want: nil},
		{name: "display label only", label: "soccer", want: nil},
		{name: "bind tokens are not separations", label: "BIND:1-A", want: nil},
		{name: "bare name", label: "SEP:A", want: []GroupTag{{Name: "A"}}},
		{name: "korean origin", label: "SEP:3반-A", want: []GroupTag{{Name: "A", Origin: 3}}},
		{name: "numeric origin", label: "SEP:12-bullies", want: []GroupTag{{Name: "bullies", Origin: 12}}},
		{name: "lower case prefix", label: "sep:2-A", want: []GroupTag{{Name: "A", Origin: 2}}},
		{name: "empty body", label: "SEP:", want: nil},
		{
			name:  "mixed tokens",
			label: "BIND:x, SEP:1반-A , team blue,SEP:B",
			want:  []GroupTag{{Name: "A", Origin: 1}, {Name: "B"}},
		},
		{name: "name with dashes", label: "SEP:2반-A-B", want: []GroupTag{{Name: "A-B", Origin: 2}}},
		{name: "no digits before dash", label: "SEP:A-B", want: []GroupTag{{Name: "A-B"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSeparationTags(tt.label))
		})
	}
}

func TestGroupTag_String(t *testing.T) {
	assert.Equal(t, "A", GroupTag{Name: "A"}.String())
	assert.Equal(t, "2-A", GroupTag{Name: "A", Origin: 2}.String())
}

func Test_buildConflicts(t *testing.T) {
	students := []Student{
		{ID: "0", GroupTag: "SEP:1반-A"},
		{ID: "1", GroupTag: "SEP:2반-A"}, // same name, other origin: other group
		{ID: "2", GroupTag: "SEP:1-A, SEP:B"},
		{ID: "3", GroupTag: "SEP:B"},
		{ID: "4", GroupTag: "SEP:lonely"},
		{ID: "5", GroupTag: "SEP:1반-A,SEP:1반-A"},
		{ID: "6", GroupTag: "BIND:B"},
		{ID: "7", GroupTag: "bind: B, SEP:lonely2"},
		{ID: "8", GroupTag: "BIND:C"},
	}
	c := buildConflicts(students)

	assert.Equal(t, []SeparationGroup{
		{Tag: GroupTag{Name: "A", Origin: 1}, Members: []int{0, 2, 5}},
		{Tag: GroupTag{Name: "B"}, Members: []int{2, 3}},
	}, c.groups)

	tests := []struct {
		a, b int
		want bool
	}{
		{0, 2, true},
		{2, 0, true},
		{0, 5, true},
		{2, 3, true},
		{0, 1, false},
		{0, 3, false},
		{4, 0, false},
		{6, 3, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.conflict(tt.a, tt.b), "conflict(%d, %d)", tt.a, tt.b)
	}

	assert.True(t, c.conflictsWithAny(0, []int{1, 3, 5}, -1))
	assert.False(t, c.conflictsWithAny(0, []int{1, 3, 5}, 5))
	assert.False(t, c.conflictsWithAny(4, []int{0, 1, 2}, -1))

	assert.Equal(t, []BindGroup{{Tag: GroupTag{Name: "B"}, Members: []int{6, 7}}}, c.binds)
	assert.Equal(t, map[int]bool{6: true, 7: true}, c.bound)
	assert.False(t, c.conflict(6, 7))
}

func TestParseBindTags(t *testing.T) {
	assert.Equal(t, []GroupTag{{Name: "x"}, {Name: "y", Origin: 3}}, ParseBindTags("BIND:x, SEP:A, 3반, bind:3반-y"))
	assert.Empty(t, ParseBindTags("SEP:A, BIND:"))
}

func Test_buildConflicts_sameName(t *testing.T) {
	students := []Student{
		{ID: "0", Name: "김민준"},
		{ID: "1", Name: "이서연"},
		{ID: "2", Name: " 김민준 "},
		{ID: "3", Name: "김민준", IsTransferring: true},
		{ID: "4"},
		{ID: "5"},
		{ID: "6", Name: "이서연", GroupTag: "SEP:A"},
		{ID: "7", Name: "박지호", GroupTag: "SEP:A"},
	}
	c := buildConflicts(students)

	require.Len(t, c.groups, 3)
	assert.Equal(t, GroupTag{Name: "A"}, c.groups[0].Tag)
	assert.False(t, c.groups[0].sameName)
	// same-name groups follow the tagged ones, in order of first appearance
	assert.Equal(t, SeparationGroup{Tag: GroupTag{Name: "김민준"}, Members: []int{0, 2}, sameName: true}, c.groups[1])
	assert.Equal(t, SeparationGroup{Tag: GroupTag{Name: "이서연"}, Members: []int{1, 6}, sameName: true}, c.groups[2])

	assert.True(t, c.conflict(0, 2))
	assert.False(t, c.conflict(0, 3))
	assert.False(t, c.conflict(4, 5))
}
