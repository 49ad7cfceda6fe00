package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/trezcool/regroup/core"
	"github.com/trezcool/regroup/core/roster"
)

type rosterRepository struct {
	db *DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *DB) *rosterRepository {
	return &rosterRepository{db: db}
}

// insert must be called with both tables locked.
func (repo *rosterRepository) insert(cls roster.Class, students []roster.Student) roster.Class {
	cls.ID = uuid.New().String()
	rows := make([]roster.Student, len(students))
	for i, s := range students {
		s.ID = uuid.New().String()
		rows[i] = s
	}
	repo.db.class.table[cls.ID] = &cls
	repo.db.student.table[cls.ID] = rows
	return cls
}

func (repo *rosterRepository) lock() func() {
	repo.db.class.Lock()
	repo.db.student.Lock()
	return func() {
		repo.db.student.Unlock()
		repo.db.class.Unlock()
	}
}

func (repo *rosterRepository) CreateClass(_ context.Context, cls roster.Class, students []roster.Student) (roster.Class, error) {
	defer repo.lock()()
	return repo.insert(cls, students), nil
}

func (repo *rosterRepository) GetClass(_ context.Context, id string) (roster.Class, error) {
	repo.db.class.RLock()
	defer repo.db.class.RUnlock()

	if cls, ok := repo.db.class.table[id]; ok {
		return *cls, nil
	}
	return roster.Class{}, roster.ErrNotFound
}

func (repo *rosterRepository) QueryStudents(_ context.Context, classID string, filter roster.StudentFilter) ([]roster.Student, error) {
	repo.db.student.RLock()
	defer repo.db.student.RUnlock()

	search := strings.ToLower(filter.Search)
	students := make([]roster.Student, 0, len(repo.db.student.table[classID]))
	for _, s := range repo.db.student.table[classID] {
		if filter.Section != 0 && s.Section != filter.Section {
			continue
		}
		if filter.Sex != "" && string(s.Sex) != filter.Sex {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(s.Name), search) {
			continue
		}
		students = append(students, s)
	}
	if len(filter.Ordering) > 0 {
		// names sort as they would in a Korean-collated column
		col := collate.New(language.Korean)
		sort.SliceStable(students, func(i, j int) bool {
			return less(col, students[i], students[j], filter.Ordering)
		})
	}
	return students, nil
}

// less compares students on the first ordering term they differ on.
func less(col *collate.Collator, a, b roster.Student, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		var cmp int
		switch ord.Field {
		case "name":
			cmp = col.CompareString(a.Name, b.Name)
		case "rank":
			cmp = a.Rank - b.Rank
		case "section_number":
			cmp = a.Section - b.Section
		}
		if cmp != 0 {
			return (cmp < 0) == ord.Ascending
		}
	}
	return false
}

func (repo *rosterRepository) SaveDistribution(_ context.Context, parent roster.Class, sections int, res roster.Result) (roster.Class, error) {
	defer repo.lock()()

	orig, ok := repo.db.class.table[parent.ID]
	if !ok {
		return roster.Class{}, roster.ErrNotFound
	}
	if orig.IsDistributed {
		return roster.Class{}, roster.ErrAlreadyDistributed
	}

	var students []roster.Student
	for _, sec := range res.Sections {
		for _, p := range sec.Students {
			students = append(students, p.Record())
		}
	}
	child := repo.insert(roster.Class{
		Name:           orig.Name,
		Grade:          orig.Grade,
		SectionCount:   sections,
		ParentID:       null.StringFrom(orig.ID),
		IsDistributed:  true,
		ReductionCount: orig.ReductionCount,
		ReductionMode:  orig.ReductionMode,
		CreatedAt:      time.Now().UTC(),
	}, students)

	orig.IsDistributed = true
	return child, nil
}
