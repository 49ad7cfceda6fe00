package roster

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/regroup/core"
)

// Sex is binary: every student belongs to exactly one of the two snake drafts.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// draftOrder is the order the per-sex snake drafts run in.
var draftOrder = []Sex{SexMale, SexFemale}

// ParseSex normalizes the spellings found in school spreadsheets.
func ParseSex(s string) (Sex, error) {
	switch core.CleanString(s, true /* lower */) {
	case "m", "male", "boy", "남", "남자":
		return SexMale, nil
	case "f", "female", "girl", "여", "여자":
		return SexFemale, nil
	}
	return "", ErrInvalidSex
}

func (s Sex) Valid() bool { return s == SexMale || s == SexFemale }

// QuotaMode tells whether the special-needs capacity reduction is a hard cap or a preference.
type QuotaMode string

const (
	QuotaStrict   QuotaMode = "strict"
	QuotaFlexible QuotaMode = "flexible"
)

// ParseQuotaMode also accepts "force", the legacy name of strict mode.
func ParseQuotaMode(s string) (QuotaMode, error) {
	switch core.CleanString(s, true /* lower */) {
	case "strict", "force":
		return QuotaStrict, nil
	case "flexible", "":
		return QuotaFlexible, nil
	}
	return "", ErrInvalidPolicy
}

// FloorTieBreak picks among strict-mode sections that are equally over capacity.
type FloorTieBreak string

const (
	TieBreakLowestSection FloorTieBreak = "lowest_section"
	TieBreakSnakeTarget   FloorTieBreak = "snake_target"
)

// QuotaPolicy governs how special-needs students reduce the capacity of their section.
type QuotaPolicy struct {
	// ReductionCount is the number of ordinary seats each special-needs student removes from its section.
	ReductionCount int           `json:"reduction_count"`
	Mode           QuotaMode     `json:"mode"`
	TieBreak       FloorTieBreak `json:"tie_break,omitempty"`
}

func (p QuotaPolicy) validate() error {
	if p.ReductionCount < 0 {
		return ErrInvalidPolicy
	}
	switch p.Mode {
	case QuotaStrict, QuotaFlexible:
	default:
		return ErrInvalidPolicy
	}
	switch p.TieBreak {
	case "", TieBreakLowestSection, TieBreakSnakeTarget:
	default:
		return ErrInvalidPolicy
	}
	return nil
}

// Student is one roster row. Rank 0 means unranked; Section is the section the student currently sits in.
type Student struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Sex             Sex      `json:"sex"`
	Rank            int      `json:"rank,omitempty"`
	IsProblem       bool     `json:"is_problem"`
	IsSpecial       bool     `json:"is_special"`
	IsUnderachiever bool     `json:"is_underachiever"`
	IsTransferring  bool     `json:"is_transferring"`
	GroupTag        string   `json:"group_tag,omitempty"`
	Section         int      `json:"section"`
	PreviousSection null.Int `json:"previous_section"` // set on distributed rosters
}

func (s Student) Ranked() bool { return s.Rank > 0 }

// active students are those staying in the school: only they weigh in the balancing counts.
func (s Student) active() bool { return !s.IsTransferring }

// Placement is a student in its new section. Student.PreviousSection points back to the source section.
type Placement struct {
	Student
	NextSection int `json:"next_section"`
}

// Record is the student row of the child class.
func (p Placement) Record() Student {
	s := p.Student
	s.Section = p.NextSection
	return s
}

// Section is one of the N output sections.
type Section struct {
	Number   int         `json:"number"`
	Students []Placement `json:"students"`
}

// SectionStats summarizes one output section.
type SectionStats struct {
	Section          int          `json:"section"`
	Total            int          `json:"total"`
	Male             int          `json:"male"`
	Female           int          `json:"female"`
	Problem          int          `json:"problem"`
	Special          int          `json:"special"`
	Underachiever    int          `json:"underachiever"`
	Transferring     int          `json:"transferring"`
	AverageRank      null.Float64 `json:"average_rank"`
	AdjustedCapacity int          `json:"adjusted_capacity"`
}

// ViolationKind classifies non-fatal problems recorded during a run.
type ViolationKind string

const (
	KindQuotaViolation      ViolationKind = "quota_violation"
	KindQuotaWarning        ViolationKind = "quota_warning"
	KindSexImbalance        ViolationKind = "sex_imbalance"
	KindSeparationViolation ViolationKind = "separation_violation"
	KindDuplicateName       ViolationKind = "duplicate_name"
	KindBindViolation       ViolationKind = "bind_violation"
)

// ViolationKinds lists every kind in the order a run records them.
var ViolationKinds = []ViolationKind{
	KindQuotaViolation,
	KindQuotaWarning,
	KindSexImbalance,
	KindBindViolation,
	KindSeparationViolation,
	KindDuplicateName,
}

// Violation is a constraint the engine could not honor. It never aborts a run.
type Violation struct {
	Kind       ViolationKind `json:"kind"`
	Section    int           `json:"section"`
	Group      string        `json:"group,omitempty"`
	Origin     int           `json:"origin,omitempty"`
	StudentIDs []string      `json:"student_ids"`
	Message    string        `json:"message"`
}

func (v Violation) String() string { return v.Message }

// Result is the outcome of one redistribution run.
type Result struct {
	Sections   []Section      `json:"sections"`
	Stats      []SectionStats `json:"stats"`
	Violations []Violation    `json:"violations"`
}

// Count returns the number of recorded violations of the given kind.
func (r Result) Count(kind ViolationKind) int {
	var n int
	for _, v := range r.Violations {
		if v.Kind == kind {
			n++
		}
	}
	return n
}

// Request is everything one run needs. The roster is never mutated.
type Request struct {
	SourceClassID string
	Sections      int
	Students      []Student
	Policy        QuotaPolicy
}

// Class is a school class (grade cohort) split into sections.
type Class struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Grade          int         `json:"grade"`
	SectionCount   int         `json:"section_count"`
	ParentID       null.String `json:"parent_id"`
	IsDistributed  bool        `json:"is_distributed"`
	ReductionCount int         `json:"reduction_count"`
	ReductionMode  QuotaMode   `json:"reduction_mode"`
	CreatedAt      time.Time   `json:"created_at"` // UTC
}

// NewClass contains information needed to create a class and its roster.
type NewClass struct {
	Name           string       `json:"name" validate:"required,notblank"`
	Grade          int          `json:"grade" validate:"min=1"`
	SectionCount   int          `json:"section_count" validate:"min=1"`
	ReductionCount *int         `json:"reduction_count" validate:"omitempty,min=0"`
	ReductionMode  string       `json:"reduction_mode" validate:"omitempty,reductionmode"`
	Students       []NewStudent `json:"students" validate:"dive"`
}

type NewStudent struct {
	Name            string `json:"name" validate:"required,notblank"`
	Sex             string `json:"sex" validate:"required,sex"`
	Rank            int    `json:"rank" validate:"min=0"`
	Section         int    `json:"section" validate:"min=1"`
	IsProblem       bool   `json:"is_problem"`
	IsSpecial       bool   `json:"is_special"`
	IsUnderachiever bool   `json:"is_underachiever"`
	IsTransferring  bool   `json:"is_transferring"`
	GroupTag        string `json:"group_tag"`
}

func (nc *NewClass) Clean() {
	nc.Name = core.CleanString(nc.Name)
	nc.ReductionMode = core.CleanString(nc.ReductionMode, true /* lower */)
	for i := range nc.Students {
		nc.Students[i].Name = core.CleanString(nc.Students[i].Name)
		nc.Students[i].GroupTag = strings.TrimSpace(nc.Students[i].GroupTag)
	}
}

// NewDistribution defines a redistribution request against an existing class.
type NewDistribution struct {
	Sections       int      `json:"sections" validate:"required,min=2"`
	ReductionCount *int     `json:"reduction_count" validate:"omitempty,min=0"`
	ReductionMode  string   `json:"reduction_mode" validate:"omitempty,reductionmode"`
	TieBreak       string   `json:"tie_break" validate:"omitempty,oneof=lowest_section snake_target"`
	Notify         []string `json:"notify" validate:"omitempty,dive,email"`
}

// Distribution is a saved Result: the child class holding the new sections.
type Distribution struct {
	ChildClass Class `json:"child_class"`
	Result
}

// StudentFilter narrows a class roster query.
type StudentFilter struct {
	Section  int               `query:"section"`
	Sex      string            `query:"sex"`
	Search   string            `query:"search"`
	Ordering []core.DBOrdering `query:"-"`
}

// StudentOrderings maps the orderable fields of a roster query to their columns.
var StudentOrderings = map[string]string{
	"name":    "name",
	"rank":    "rank",
	"section": "section_number",
}

func (sf *StudentFilter) Clean() {
	sf.Search = core.CleanString(sf.Search)
	if sex, err := ParseSex(sf.Sex); err == nil {
		sf.Sex = string(sex)
	} else {
		sf.Sex = ""
	}
	sf.Ordering = core.FilterOrderings(sf.Ordering, StudentOrderings)
}
