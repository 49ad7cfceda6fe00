package roster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/regroup/core"
)

// outcomes recorded by Metrics.ObserveDistribution
const (
	OutcomeSaved    = "saved"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type (
	Repository interface {
		// CreateClass saves cls and its roster; ids are assigned by the repository.
		CreateClass(ctx context.Context, cls Class, students []Student) (Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		// QueryStudents applies AND operation on available StudentFilter fields.
		// StudentFilter.Search does a case-insensitive match on Student.Name.
		QueryStudents(ctx context.Context, classID string, filter StudentFilter) ([]Student, error)
		// SaveDistribution atomically creates the child class of parent holding res,
		// and marks parent as distributed.
		SaveDistribution(ctx context.Context, parent Class, sections int, res Result) (Class, error)
	}

	// Locker serializes redistributions of a same class.
	Locker interface {
		Lock(ctx context.Context, key string) (unlock func(), err error)
	}

	Metrics interface {
		ObserveDistribution(outcome string, duration time.Duration)
		AddViolations(kind string, n int)
	}

	Service struct {
		repo    Repository
		locker  Locker
		engine  *Engine
		metrics Metrics
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
	}
)

func NewService(
	repo Repository,
	locker Locker,
	metrics Metrics,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:    repo,
		locker:  locker,
		engine:  NewEngine(logger),
		metrics: metrics,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf,
	}
}

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	mode, err := ParseQuotaMode(nc.ReductionMode)
	if err != nil {
		return Class{}, core.NewValidationError(err, core.FieldError{Field: "reduction_mode", Error: err.Error()})
	}
	if nc.ReductionMode == "" {
		if mode, err = ParseQuotaMode(svc.conf.Distribution.ReductionMode); err != nil {
			return Class{}, errors.Wrap(err, "default reduction mode")
		}
	}
	reduction := svc.conf.Distribution.ReductionCount
	if nc.ReductionCount != nil {
		reduction = *nc.ReductionCount
	}

	students := make([]Student, 0, len(nc.Students))
	for i, ns := range nc.Students {
		sex, err := ParseSex(ns.Sex)
		if err != nil {
			return Class{}, core.NewValidationError(err, core.FieldError{
				Field: fmt.Sprintf("students[%d].sex", i),
				Error: err.Error(),
			})
		}
		students = append(students, Student{
			Name:            ns.Name,
			Sex:             sex,
			Rank:            ns.Rank,
			IsProblem:       ns.IsProblem,
			IsSpecial:       ns.IsSpecial,
			IsUnderachiever: ns.IsUnderachiever,
			IsTransferring:  ns.IsTransferring,
			GroupTag:        ns.GroupTag,
			Section:         ns.Section,
		})
	}

	cls := Class{
		Name:           nc.Name,
		Grade:          nc.Grade,
		SectionCount:   nc.SectionCount,
		ReductionCount: reduction,
		ReductionMode:  mode,
		CreatedAt:      time.Now().UTC(),
	}
	return svc.repo.CreateClass(ctx, cls, students)
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) QueryStudents(ctx context.Context, classID string, filter StudentFilter) ([]Student, error) {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	filter.Clean()
	return svc.repo.QueryStudents(ctx, classID, filter)
}

// Distribute redistributes the roster of class classID into nd.Sections new sections
// and saves them as a child class. Runs on a same class are serialized.
func (svc *Service) Distribute(ctx context.Context, classID string, nd NewDistribution) (dist Distribution, err error) {
	start := time.Now()
	defer func() {
		outcome := OutcomeSaved
		switch {
		case core.IsValidationError(err):
			outcome = OutcomeRejected
		case err != nil:
			outcome = OutcomeFailed
		}
		svc.metrics.ObserveDistribution(outcome, time.Since(start))
	}()

	lockCtx := ctx
	if wait := svc.conf.Lock.WaitTimeout; wait > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}
	unlock, err := svc.locker.Lock(lockCtx, "distribute:"+classID)
	if err != nil {
		return Distribution{}, errors.Wrapf(err, "locking class %s", classID)
	}
	defer unlock()

	cls, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return Distribution{}, err
	}
	if cls.IsDistributed {
		return Distribution{}, core.NewValidationError(ErrAlreadyDistributed, core.FieldError{
			Field: "class",
			Error: ErrAlreadyDistributed.Error(),
		})
	}
	students, err := svc.repo.QueryStudents(ctx, classID, StudentFilter{})
	if err != nil {
		return Distribution{}, errors.Wrap(err, "loading roster")
	}

	policy, err := svc.policy(cls, nd)
	if err != nil {
		return Distribution{}, err
	}
	res, err := svc.engine.Distribute(Request{
		SourceClassID: classID,
		Sections:      nd.Sections,
		Students:      students,
		Policy:        policy,
	})
	if err != nil {
		return Distribution{}, err
	}

	child, err := svc.repo.SaveDistribution(ctx, cls, nd.Sections, res)
	if err != nil {
		return Distribution{}, errors.Wrap(err, "saving distribution")
	}

	for _, kind := range ViolationKinds {
		if n := res.Count(kind); n > 0 {
			svc.metrics.AddViolations(string(kind), n)
		}
	}
	if len(res.Violations) > 0 {
		svc.logger.Warn("distribution saved with violations", map[string]interface{}{
			"class":      classID,
			"child":      child.ID,
			"violations": len(res.Violations),
		})
	}

	dist = Distribution{ChildClass: child, Result: res}
	svc.sendReport(cls, dist, nd.Notify)
	return dist, nil
}

// policy resolves the quota policy of a run: request overrides, then class settings.
func (svc *Service) policy(cls Class, nd NewDistribution) (QuotaPolicy, error) {
	p := QuotaPolicy{
		ReductionCount: cls.ReductionCount,
		Mode:           cls.ReductionMode,
		TieBreak:       FloorTieBreak(nd.TieBreak),
	}
	if nd.ReductionCount != nil {
		p.ReductionCount = *nd.ReductionCount
	}
	if nd.ReductionMode != "" {
		mode, err := ParseQuotaMode(nd.ReductionMode)
		if err != nil {
			return QuotaPolicy{}, core.NewValidationError(err, core.FieldError{Field: "reduction_mode", Error: err.Error()})
		}
		p.Mode = mode
	}
	return p, nil
}

func (svc *Service) sendReport(cls Class, dist Distribution, notify []string) {
	if len(notify) == 0 {
		return
	}
	to, err := core.ParseAddresses(notify)
	if err != nil {
		svc.logger.Error("parsing report recipients", err, map[string]interface{}{"class": cls.ID})
		return
	}
	msg := &core.EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("%s: %d sections", cls.Name, dist.ChildClass.SectionCount),
		Body:    Report(cls, dist),
	}
	if msg.HasRecipients() {
		svc.mailSvc.SendMessages(msg)
	}
}

// Report renders a plain text summary of a distribution.
func Report(cls Class, dist Distribution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (grade %d) was split into %d sections.\n\n", cls.Name, cls.Grade, len(dist.Sections))
	for _, st := range dist.Stats {
		fmt.Fprintf(&b, "Section %d: %d students (%d M / %d F), problem %d, special %d, underachiever %d, transferring %d",
			st.Section, st.Total, st.Male, st.Female, st.Problem, st.Special, st.Underachiever, st.Transferring)
		if st.AverageRank.Valid {
			fmt.Fprintf(&b, ", average rank %.1f", st.AverageRank.Float64)
		}
		b.WriteString("\n")
	}
	if len(dist.Violations) == 0 {
		b.WriteString("\nAll constraints were satisfied.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "\n%d unresolved issue(s):\n", len(dist.Violations))
	for _, v := range dist.Violations {
		fmt.Fprintf(&b, "- [%s] %s\n", v.Kind, v)
	}
	return b.String()
}
