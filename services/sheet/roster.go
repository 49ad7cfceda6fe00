package sheetsvc

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/regroup/core"
	"github.com/trezcool/regroup/core/roster"
)

// roster columns, matched case-insensitively against the header row
const (
	colID            = "id"
	colName          = "name"
	colSex           = "sex"
	colRank          = "rank"
	colSection       = "section"
	colProblem       = "problem"
	colSpecial       = "special"
	colUnderachiever = "underachiever"
	colTransferring  = "transferring"
	colGroup         = "group"
)

var headerAliases = map[string]string{
	"번호": colID,
	"이름": colName,
	"성별": colSex,
	"석차": colRank,
	"반":  colSection,
	"문제": colProblem,
	"특수": colSpecial,
	"부진": colUnderachiever,
	"전출": colTransferring,
	"그룹": colGroup,
}

var requiredColumns = []string{colName, colSex}

// ReadRoster reads students from the first sheet of an xlsx workbook.
// The first row is the header; rows without a name are skipped.
func ReadRoster(r io.Reader) ([]roster.Student, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheet")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "reading sheet %s", sheet)
	}
	if len(rows) == 0 {
		return nil, errors.Errorf("sheet %s is empty", sheet)
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		h = core.CleanString(h, true /* lower */)
		if alias, ok := headerAliases[h]; ok {
			h = alias
		}
		if _, dup := cols[h]; !dup && h != "" {
			cols[h] = i
		}
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, errors.Errorf("missing %q column", c)
		}
	}

	var (
		students []roster.Student
		flds     []core.FieldError
	)
	for n, row := range rows[1:] {
		line := n + 2 // 1-based, after the header
		cell := func(col string) string {
			if i, ok := cols[col]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		name := core.CleanString(cell(colName))
		if name == "" {
			continue
		}

		s := roster.Student{
			ID:              cell(colID),
			Name:            name,
			IsProblem:       truthy(cell(colProblem)),
			IsSpecial:       truthy(cell(colSpecial)),
			IsUnderachiever: truthy(cell(colUnderachiever)),
			IsTransferring:  truthy(cell(colTransferring)),
			GroupTag:        cell(colGroup),
		}
		if s.ID == "" {
			s.ID = "row-" + strconv.Itoa(line)
		}
		if s.Sex, err = roster.ParseSex(cell(colSex)); err != nil {
			flds = append(flds, fieldError(line, colSex, err))
			continue
		}
		if s.Rank, err = optionalInt(cell(colRank)); err != nil {
			flds = append(flds, fieldError(line, colRank, err))
			continue
		}
		if s.Section, err = optionalInt(cell(colSection)); err != nil {
			flds = append(flds, fieldError(line, colSection, err))
			continue
		}
		students = append(students, s)
	}
	if len(flds) > 0 {
		return nil, core.NewValidationError(errors.Errorf("%d invalid row(s)", len(flds)), flds...)
	}
	return students, nil
}

func fieldError(line int, col string, err error) core.FieldError {
	return core.FieldError{Field: fmt.Sprintf("row %d: %s", line, col), Error: err.Error()}
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	// spreadsheets often store integers as floats
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) || f < 0 {
		return 0, errors.Errorf("%q is not a positive integer", s)
	}
	return int(f), nil
}

func truthy(s string) bool {
	switch core.CleanString(s, true /* lower */) {
	case "1", "y", "yes", "true", "o", "v", "예":
		return true
	}
	return false
}
