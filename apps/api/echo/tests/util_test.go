package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	echoapi "github.com/trezcool/regroup/apps/api/echo"
	"github.com/trezcool/regroup/core"
	"github.com/trezcool/regroup/core/roster"
	emailsvc "github.com/trezcool/regroup/services/email"
	locksvc "github.com/trezcool/regroup/services/lock"
	logsvc "github.com/trezcool/regroup/services/logger"
	metricsvc "github.com/trezcool/regroup/services/metrics"
	inmemdb "github.com/trezcool/regroup/storage/database/inmem"
)

type fixture struct {
	app    *echoapi.Server
	repo   roster.Repository
	locker *locksvc.LocalLocker
	mail   *emailsvc.ConsoleServiceMock
}

// setup builds the API over an in-memory repository, passed through wrap when given.
func setup(t *testing.T, wrap ...func(roster.Repository) roster.Repository) fixture {
	t.Helper()
	conf := &core.Config{
		AppName:      "Regroup",
		TestMode:     true,
		Lock:         core.LockConfig{WaitTimeout: 50 * time.Millisecond},
		Distribution: core.DistributionConfig{ReductionCount: 2, ReductionMode: "flexible"},
	}
	logger := logsvc.NewNopLogger()

	f := fixture{
		repo:   inmemdb.NewRosterRepository(inmemdb.Open()),
		locker: locksvc.NewLocalLocker(),
		mail:   emailsvc.NewConsoleServiceMock(),
	}
	for _, w := range wrap {
		f.repo = w(f.repo)
	}
	reg := prometheus.NewRegistry()
	rosterSvc := roster.NewService(f.repo, f.locker, metricsvc.NewPrometheus(reg, "regroup"), f.mail, logger, conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	roster.InitValidators(validate, translator)

	f.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		RosterSvc:      rosterSvc,
		Validate:       validate,
		Translator:     translator,
		Gatherer:       reg,
		DisableReqLogs: true,
	})
	return f
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
