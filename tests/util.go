package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/trezcool/regroup/core/roster"
)

// RankedStudents returns n students of the given sex ranked 1..n, spread over `sections` current sections.
func RankedStudents(sex roster.Sex, n, sections int) []roster.Student {
	students := make([]roster.Student, n)
	for i := range students {
		students[i] = roster.Student{
			ID:      fmt.Sprintf("%s%02d", sex, i+1),
			Name:    fmt.Sprintf("%s student %02d", sex, i+1),
			Sex:     sex,
			Rank:    i + 1,
			Section: i%sections + 1,
		}
	}
	return students
}

// Tag sets the group label of the students with the given ids.
func Tag(students []roster.Student, label string, ids ...string) {
	for _, id := range ids {
		for i := range students {
			if students[i].ID == id {
				students[i].GroupTag = label
			}
		}
	}
}

func CreateClass(
	t *testing.T,
	repo roster.Repository,
	name string,
	sections int,
	students []roster.Student,
	createdAt ...time.Time,
) roster.Class {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	cls := roster.Class{
		Name:           name,
		Grade:          1,
		SectionCount:   sections,
		ReductionCount: 2,
		ReductionMode:  roster.QuotaFlexible,
		CreatedAt:      tstamp,
	}
	cls, err := repo.CreateClass(context.Background(), cls, students)
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}
