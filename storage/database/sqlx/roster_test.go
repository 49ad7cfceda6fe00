package sqlxrepos

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/regroup/core"
	"github.com/trezcool/regroup/core/roster"
)

const classID = "7b4f3c70-2a55-4a3e-8a53-0c2d0b1f6a10"

func newMock(t *testing.T) (*rosterRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRosterRepository(sqlx.NewDb(db, "postgres")), mock
}

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

func classRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "grade", "section_count", "parent_class_id", "is_distributed", "reduction_count", "reduction_mode", "created_at",
	})
}

func studentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "class_id", "position", "name", "sex", "rank", "section_number", "previous_section",
		"is_problem", "is_special", "is_underachiever", "is_transferring", "group_name",
	})
}

func TestRosterRepository_GetClass(t *testing.T) {
	createdAt := time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT " + classColumns + " FROM class WHERE id = $1")).
			WithArgs(classID).
			WillReturnRows(classRows().AddRow(classID, "2학년", 2, 4, nil, false, 2, "strict", createdAt))

		cls, err := repo.GetClass(context.Background(), classID)
		require.NoError(t, err)
		assert.Equal(t, roster.Class{
			ID:             classID,
			Name:           "2학년",
			Grade:          2,
			SectionCount:   4,
			ReductionCount: 2,
			ReductionMode:  roster.QuotaStrict,
			CreatedAt:      createdAt,
		}, cls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM class WHERE id = $1")).
			WithArgs(classID).
			WillReturnRows(classRows())

		_, err := repo.GetClass(context.Background(), classID)
		assert.Equal(t, roster.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed id", func(t *testing.T) {
		repo, mock := newMock(t)
		_, err := repo.GetClass(context.Background(), "42")
		assert.Equal(t, roster.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM class")).WillReturnError(errors.New("connection reset"))

		_, err := repo.GetClass(context.Background(), classID)
		require.Error(t, err)
		assert.NotEqual(t, roster.ErrNotFound, err)
		assert.Contains(t, err.Error(), "getting class")
	})
}

func TestRosterRepository_QueryStudents(t *testing.T) {
	tests := []struct {
		name   string
		filter roster.StudentFilter
		query  string
		args   []driver.Value
	}{
		{
			name:  "whole roster",
			query: "WHERE class_id = $1 ORDER BY position ASC",
			args:  []driver.Value{classID},
		},
		{
			name: "every filter",
			filter: roster.StudentFilter{
				Section:  2,
				Sex:      "F",
				Search:   "윤",
				Ordering: []core.DBOrdering{{Field: "rank", Ascending: false}},
			},
			query: "WHERE class_id = $1 AND section_number = $2 AND sex = $3 AND name ILIKE $4 ORDER BY rank DESC, position ASC",
			args:  []driver.Value{classID, 2, "F", "%윤%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMock(t)
			mock.ExpectQuery(regexp.QuoteMeta("SELECT " + studentColumns + " FROM student " + tt.query)).
				WithArgs(tt.args...).
				WillReturnRows(studentRows().
					AddRow("s1", classID, 0, "하윤", "F", 3, 2, nil, true, false, false, false, "SEP:1반-A").
					AddRow("s2", classID, 1, "서윤", "F", nil, 2, 1, false, false, true, true, ""))

			students, err := repo.QueryStudents(context.Background(), classID, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, []roster.Student{
				{ID: "s1", Name: "하윤", Sex: roster.SexFemale, Rank: 3, Section: 2, IsProblem: true, GroupTag: "SEP:1반-A"},
				{ID: "s2", Name: "서윤", Sex: roster.SexFemale, Section: 2, PreviousSection: null.IntFrom(1), IsUnderachiever: true, IsTransferring: true},
			}, students)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRosterRepository_CreateClass(t *testing.T) {
	cls := roster.Class{Name: "1학년", Grade: 1, SectionCount: 2, ReductionCount: 2, ReductionMode: roster.QuotaFlexible}
	students := []roster.Student{
		{Name: "민준", Sex: roster.SexMale, Rank: 1, Section: 1},
		{Name: "하윤", Sex: roster.SexFemale, Section: 2},
	}

	t.Run("ok", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO class").WithArgs(anyArgs(9)...).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO student").WithArgs(anyArgs(13)...).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO student").WithArgs(anyArgs(13)...).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		created, err := repo.CreateClass(context.Background(), cls, students)
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, cls.Name, created.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO class").WithArgs(anyArgs(9)...).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO student").WithArgs(anyArgs(13)...).WillReturnError(errors.New("check violation"))
		mock.ExpectRollback()

		_, err := repo.CreateClass(context.Background(), cls, students)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inserting student 0")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRosterRepository_SaveDistribution(t *testing.T) {
	parent := roster.Class{ID: classID, Name: "1학년", Grade: 1, SectionCount: 2, ReductionCount: 2, ReductionMode: roster.QuotaStrict}
	res := roster.Result{
		Sections: []roster.Section{
			{Number: 1, Students: []roster.Placement{
				{Student: roster.Student{ID: "s1", Name: "민준", Sex: roster.SexMale, Rank: 1, Section: 1}, NextSection: 1},
			}},
			{Number: 2, Students: []roster.Placement{
				{Student: roster.Student{ID: "s2", Name: "서준", Sex: roster.SexMale, Rank: 2, Section: 1}, NextSection: 2},
				{Student: roster.Student{ID: "s3", Name: "하윤", Sex: roster.SexFemale, Rank: 1, Section: 2}, NextSection: 2},
			}},
		},
	}
	lockQuery := regexp.QuoteMeta("SELECT is_distributed FROM class WHERE id = $1 FOR UPDATE")

	t.Run("ok", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(classID).WillReturnRows(sqlmock.NewRows([]string{"is_distributed"}).AddRow(false))
		mock.ExpectExec("INSERT INTO class").WithArgs(anyArgs(9)...).WillReturnResult(sqlmock.NewResult(0, 1))
		for range []int{1, 2, 3} {
			mock.ExpectExec("INSERT INTO student").WithArgs(anyArgs(13)...).WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectExec(regexp.QuoteMeta("UPDATE class SET is_distributed = true WHERE id = $1")).
			WithArgs(classID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		child, err := repo.SaveDistribution(context.Background(), parent, 2, res)
		require.NoError(t, err)
		assert.NotEqual(t, classID, child.ID)
		assert.Equal(t, null.StringFrom(classID), child.ParentID)
		assert.True(t, child.IsDistributed)
		assert.Equal(t, 2, child.SectionCount)
		assert.Equal(t, roster.QuotaStrict, child.ReductionMode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already distributed", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(classID).WillReturnRows(sqlmock.NewRows([]string{"is_distributed"}).AddRow(true))
		mock.ExpectRollback()

		_, err := repo.SaveDistribution(context.Background(), parent, 2, res)
		assert.Equal(t, roster.ErrAlreadyDistributed, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("parent gone", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(classID).WillReturnRows(sqlmock.NewRows([]string{"is_distributed"}))
		mock.ExpectRollback()

		_, err := repo.SaveDistribution(context.Background(), parent, 2, res)
		assert.Equal(t, roster.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
