package sheetsvc

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/regroup/core/roster"
)

const summarySheet = "Summary"

var (
	sectionHeader = []interface{}{"id", "name", "sex", "rank", "previous_section", "problem", "special", "underachiever", "transferring", "group"}
	statsHeader   = []interface{}{"section", "total", "male", "female", "problem", "special", "underachiever", "transferring", "average_rank", "adjusted_capacity"}
	issuesHeader  = []interface{}{"kind", "section", "group", "students", "message"}
)

// SectionSheet is the name of the sheet holding a section.
func SectionSheet(number int) string {
	return fmt.Sprintf("Section %d", number)
}

// WriteResult writes res as an xlsx workbook: a Summary sheet with stats and violations,
// then one sheet per section.
func WriteResult(w io.Writer, res roster.Result) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return errors.Wrap(err, "naming summary sheet")
	}
	if err := writeSummary(f, res); err != nil {
		return err
	}
	for _, sec := range res.Sections {
		if err := writeSection(f, sec); err != nil {
			return errors.Wrapf(err, "writing section %d", sec.Number)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}

func writeSummary(f *excelize.File, res roster.Result) error {
	line := 1
	if err := setRow(f, summarySheet, line, statsHeader); err != nil {
		return err
	}
	for _, st := range res.Stats {
		line++
		var avg interface{}
		if st.AverageRank.Valid {
			avg = st.AverageRank.Float64
		}
		row := []interface{}{st.Section, st.Total, st.Male, st.Female, st.Problem, st.Special,
			st.Underachiever, st.Transferring, avg, st.AdjustedCapacity}
		if err := setRow(f, summarySheet, line, row); err != nil {
			return err
		}
	}

	if len(res.Violations) == 0 {
		return nil
	}
	line += 2
	if err := setRow(f, summarySheet, line, issuesHeader); err != nil {
		return err
	}
	for _, v := range res.Violations {
		line++
		row := []interface{}{string(v.Kind), v.Section, v.Group, strings.Join(v.StudentIDs, ", "), v.Message}
		if err := setRow(f, summarySheet, line, row); err != nil {
			return err
		}
	}
	return nil
}

func writeSection(f *excelize.File, sec roster.Section) error {
	sheet := SectionSheet(sec.Number)
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := setRow(f, sheet, 1, sectionHeader); err != nil {
		return err
	}
	for i, p := range sec.Students {
		var rank, prev interface{}
		if p.Ranked() {
			rank = p.Rank
		}
		if p.PreviousSection.Valid {
			prev = p.PreviousSection.Int
		}
		row := []interface{}{p.ID, p.Name, string(p.Sex), rank, prev,
			flag(p.IsProblem), flag(p.IsSpecial), flag(p.IsUnderachiever), flag(p.IsTransferring), p.GroupTag}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, line int, row []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &row)
}

func flag(b bool) string {
	if b {
		return "Y"
	}
	return ""
}
