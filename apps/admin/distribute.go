package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/regroup/core"
	"github.com/trezcool/regroup/core/roster"
	sheetsvc "github.com/trezcool/regroup/services/sheet"
)

type distributeOptions struct {
	in, out   string
	sections  int
	reduction int
	mode      string
	tieBreak  string
}

// distribute runs a redistribution offline, from a roster workbook to a result workbook.
func (cli *commandLine) distribute(opts distributeOptions) error {
	mode, err := roster.ParseQuotaMode(opts.mode)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "mode", Error: err.Error()})
	}

	in, err := os.Open(opts.in)
	if err != nil {
		return errors.Wrap(err, "opening roster")
	}
	defer func() { _ = in.Close() }()
	students, err := sheetsvc.ReadRoster(in)
	if err != nil {
		return errors.Wrapf(err, "reading roster %s", opts.in)
	}

	res, err := roster.NewEngine(cli.logger).Distribute(roster.Request{
		Sections: opts.sections,
		Students: students,
		Policy: roster.QuotaPolicy{
			ReductionCount: opts.reduction,
			Mode:           mode,
			TieBreak:       roster.FloorTieBreak(opts.tieBreak),
		},
	})
	if err != nil {
		return err
	}

	out, err := os.Create(opts.out)
	if err != nil {
		return errors.Wrap(err, "creating result workbook")
	}
	if err = sheetsvc.WriteResult(out, res); err != nil {
		_ = out.Close()
		return errors.Wrap(err, "writing result workbook")
	}
	if err = out.Close(); err != nil {
		return errors.Wrap(err, "closing result workbook")
	}

	cls := roster.Class{Name: filepath.Base(opts.in)}
	fmt.Fprint(cli.out, roster.Report(cls, roster.Distribution{Result: res}))
	return nil
}
