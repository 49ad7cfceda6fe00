package roster

import (
	"github.com/trezcool/regroup/core"
)

// Stage is a step of one redistribution run.
type Stage int

const (
	StageReceived Stage = iota
	StageNormalized
	StagePartitioned
	StageRepaired
	StageReported
	StageDone
	StageRejected
)

var stageNames = [...]string{"received", "normalized", "partitioned", "repaired", "reported", "done", "rejected"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Engine computes redistributions. It holds no state across runs and is safe for concurrent use.
type Engine struct {
	logger core.Logger
}

// NewEngine returns an Engine logging its stages to logger; a nil logger disables logging.
func NewEngine(logger core.Logger) *Engine {
	return &Engine{logger: logger}
}

// Distribute splits req.Students into req.Sections new sections.
// Only a *core.ValidationError aborts a run; every other problem is recorded in Result.Violations.
func (e *Engine) Distribute(req Request) (Result, error) {
	e.stage(req, StageReceived, nil)

	r, err := normalize(req)
	if err != nil {
		e.stage(req, StageRejected, map[string]interface{}{"error": err.Error()})
		return Result{}, err
	}
	e.stage(req, StageNormalized, map[string]interface{}{"students": len(r.students)})

	// conflict groups do not depend on quota capacities
	groups := buildConflicts(r.students)

	a, violations := partition(r)
	e.stage(req, StagePartitioned, map[string]interface{}{"quota_issues": len(violations)})

	repair(a, groups)
	violations = append(violations, groupViolations(a, groups)...)
	e.stage(req, StageRepaired, map[string]interface{}{"groups": len(groups.groups), "binds": len(groups.binds)})

	res := Result{
		Sections:   sectionsOf(a),
		Stats:      statsOf(a),
		Violations: violations,
	}
	if res.Violations == nil {
		res.Violations = []Violation{}
	}
	e.stage(req, StageReported, map[string]interface{}{"violations": len(res.Violations)})
	e.stage(req, StageDone, nil)
	return res, nil
}

func (e *Engine) stage(req Request, s Stage, extras map[string]interface{}) {
	if e.logger == nil {
		return
	}
	data := map[string]interface{}{"class": req.SourceClassID, "stage": s.String(), "sections": req.Sections}
	for k, v := range extras {
		data[k] = v
	}
	e.logger.Debug("distribution "+s.String(), data)
}

var defaultEngine = NewEngine(nil)

// Distribute runs req on an engine without logging.
func Distribute(req Request) (Result, error) {
	return defaultEngine.Distribute(req)
}
