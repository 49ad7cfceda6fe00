package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/regroup/core/roster"
)

const (
	classColumns = "id, name, grade, section_count, parent_class_id, is_distributed, reduction_count, reduction_mode, created_at"

	studentColumns = "id, class_id, position, name, sex, rank, section_number, previous_section, " +
		"is_problem, is_special, is_underachiever, is_transferring, group_name"

	insertClassQuery = `INSERT INTO class (` + classColumns + `)
		VALUES (:id, :name, :grade, :section_count, :parent_class_id, :is_distributed, :reduction_count, :reduction_mode, :created_at)`

	insertStudentQuery = `INSERT INTO student (` + studentColumns + `)
		VALUES (:id, :class_id, :position, :name, :sex, :rank, :section_number, :previous_section,
		:is_problem, :is_special, :is_underachiever, :is_transferring, :group_name)`
)

type (
	classRow struct {
		ID             string      `db:"id"`
		Name           string      `db:"name"`
		Grade          int         `db:"grade"`
		SectionCount   int         `db:"section_count"`
		ParentID       null.String `db:"parent_class_id"`
		IsDistributed  bool        `db:"is_distributed"`
		ReductionCount int         `db:"reduction_count"`
		ReductionMode  string      `db:"reduction_mode"`
		CreatedAt      time.Time   `db:"created_at"`
	}

	studentRow struct {
		ID              string   `db:"id"`
		ClassID         string   `db:"class_id"`
		Position        int      `db:"position"`
		Name            string   `db:"name"`
		Sex             string   `db:"sex"`
		Rank            null.Int `db:"rank"`
		Section         int      `db:"section_number"`
		PreviousSection null.Int `db:"previous_section"`
		IsProblem       bool     `db:"is_problem"`
		IsSpecial       bool     `db:"is_special"`
		IsUnderachiever bool     `db:"is_underachiever"`
		IsTransferring  bool     `db:"is_transferring"`
		GroupTag        string   `db:"group_name"`
	}
)

func (row classRow) class() roster.Class {
	return roster.Class{
		ID:             row.ID,
		Name:           row.Name,
		Grade:          row.Grade,
		SectionCount:   row.SectionCount,
		ParentID:       row.ParentID,
		IsDistributed:  row.IsDistributed,
		ReductionCount: row.ReductionCount,
		ReductionMode:  roster.QuotaMode(row.ReductionMode),
		CreatedAt:      row.CreatedAt.UTC(),
	}
}

func (row studentRow) student() roster.Student {
	return roster.Student{
		ID:              row.ID,
		Name:            row.Name,
		Sex:             roster.Sex(row.Sex),
		Rank:            int(row.Rank.Int),
		IsProblem:       row.IsProblem,
		IsSpecial:       row.IsSpecial,
		IsUnderachiever: row.IsUnderachiever,
		IsTransferring:  row.IsTransferring,
		GroupTag:        row.GroupTag,
		Section:         row.Section,
		PreviousSection: row.PreviousSection,
	}
}

type rosterRepository struct {
	db *sqlx.DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *sqlx.DB) *rosterRepository {
	return &rosterRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to roster.ErrNotFound
func (repo *rosterRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return roster.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// inTx runs fn in a transaction, rolled back when fn fails.
func (repo *rosterRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (repo *rosterRepository) insert(ctx context.Context, tx *sqlx.Tx, cls roster.Class, students []roster.Student) (roster.Class, error) {
	cls.ID = uuid.New().String()
	cls.CreatedAt = cls.CreatedAt.UTC()
	_, err := tx.NamedExecContext(ctx, insertClassQuery, classRow{
		ID:             cls.ID,
		Name:           cls.Name,
		Grade:          cls.Grade,
		SectionCount:   cls.SectionCount,
		ParentID:       cls.ParentID,
		IsDistributed:  cls.IsDistributed,
		ReductionCount: cls.ReductionCount,
		ReductionMode:  string(cls.ReductionMode),
		CreatedAt:      cls.CreatedAt,
	})
	if err != nil {
		return roster.Class{}, errors.Wrap(err, "inserting class")
	}

	for i, s := range students {
		_, err = tx.NamedExecContext(ctx, insertStudentQuery, studentRow{
			ID:              uuid.New().String(),
			ClassID:         cls.ID,
			Position:        i,
			Name:            s.Name,
			Sex:             string(s.Sex),
			Rank:            null.NewInt(s.Rank, s.Ranked()),
			Section:         s.Section,
			PreviousSection: s.PreviousSection,
			IsProblem:       s.IsProblem,
			IsSpecial:       s.IsSpecial,
			IsUnderachiever: s.IsUnderachiever,
			IsTransferring:  s.IsTransferring,
			GroupTag:        s.GroupTag,
		})
		if err != nil {
			return roster.Class{}, errors.Wrapf(err, "inserting student %d", i)
		}
	}
	return cls, nil
}

func (repo *rosterRepository) CreateClass(ctx context.Context, cls roster.Class, students []roster.Student) (roster.Class, error) {
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		cls, err = repo.insert(ctx, tx, cls, students)
		return err
	})
	if err != nil {
		return roster.Class{}, err
	}
	return cls, nil
}

func (repo *rosterRepository) GetClass(ctx context.Context, id string) (roster.Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return roster.Class{}, roster.ErrNotFound
	}
	var row classRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+classColumns+" FROM class WHERE id = $1", id); err != nil {
		return roster.Class{}, repo.trapNoRowsErr(err, "getting class")
	}
	return row.class(), nil
}

func (repo *rosterRepository) QueryStudents(ctx context.Context, classID string, filter roster.StudentFilter) ([]roster.Student, error) {
	where := []string{"class_id = $1"}
	args := []interface{}{classID}
	arg := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Section != 0 {
		arg("section_number = $%d", filter.Section)
	}
	if filter.Sex != "" {
		arg("sex = $%d", filter.Sex)
	}
	if filter.Search != "" {
		arg("name ILIKE $%d", "%"+filter.Search+"%")
	}

	orderBy := make([]string, 0, len(filter.Ordering)+1)
	for _, ord := range filter.Ordering {
		orderBy = append(orderBy, ord.String())
	}
	orderBy = append(orderBy, "position ASC")

	q := fmt.Sprintf("SELECT %s FROM student WHERE %s ORDER BY %s",
		studentColumns, strings.Join(where, " AND "), strings.Join(orderBy, ", "))
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}

	students := make([]roster.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.student())
	}
	return students, nil
}

func (repo *rosterRepository) SaveDistribution(ctx context.Context, parent roster.Class, sections int, res roster.Result) (roster.Class, error) {
	var child roster.Class
	err := repo.inTx(ctx, func(tx *sqlx.Tx) error {
		var distributed bool
		err := tx.GetContext(ctx, &distributed, "SELECT is_distributed FROM class WHERE id = $1 FOR UPDATE", parent.ID)
		if err != nil {
			return repo.trapNoRowsErr(err, "locking parent class")
		}
		if distributed {
			return roster.ErrAlreadyDistributed
		}

		var students []roster.Student
		for _, sec := range res.Sections {
			for _, p := range sec.Students {
				students = append(students, p.Record())
			}
		}
		child, err = repo.insert(ctx, tx, roster.Class{
			Name:           parent.Name,
			Grade:          parent.Grade,
			SectionCount:   sections,
			ParentID:       null.StringFrom(parent.ID),
			IsDistributed:  true,
			ReductionCount: parent.ReductionCount,
			ReductionMode:  parent.ReductionMode,
			CreatedAt:      time.Now(),
		}, students)
		if err != nil {
			return err
		}

		if _, err = tx.ExecContext(ctx, "UPDATE class SET is_distributed = true WHERE id = $1", parent.ID); err != nil {
			return errors.Wrap(err, "marking parent class")
		}
		return nil
	})
	if err != nil {
		return roster.Class{}, err
	}
	return child, nil
}
