package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	echoapi "github.com/trezcool/masomo-lms/apps/api/echo"
	"github.com/trezcool/masomo-lms/core"
	"github.com/trezcool/masomo-lms/core/analytics"
	"github.com/trezcool/masomo-lms/core/user"
	"github.com/trezcool/masomo-lms/services/metrics"
	"github.com/trezcool/masomo-lms/tests"
)

var errMissingToken = httpErr{Kind: core.KindUnauthenticated, Error: "missing or malformed jwt"}

type app struct {
	*testutil.Env
	server *echoapi.Server
	auth   *echoapi.Auth
}

func setup(t *testing.T) *app {
	t.Helper()

	env := testutil.NewEnv()
	auth := echoapi.NewAuth(env.Conf)
	server := echoapi.NewServer(&echoapi.Deps{
		Conf:           env.Conf,
		Logger:         env.Logger,
		Translator:     env.Translator,
		Auth:           auth,
		Metrics:        metrics.New("test"),
		UserSvc:        env.UserService(),
		CourseSvc:      env.CourseService(),
		AssessmentSvc:  env.AssessmentService(),
		AnalyticsSvc:   analytics.NewService(env.UserRepo, env.CourseRepo, env.AsmtRepo),
		DisableReqLogs: true,
	})
	return &app{Env: env, server: server, auth: auth}
}

type httpErr struct {
	Kind   core.ErrorKind    `json:"kind"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (a *app) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	a.server.ServeHTTP(rec, req)
	return rec
}

func (a *app) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			var data [][]byte
			if tt.body != nil {
				data = append(data, tt.body)
			}
			rec := a.do(method, tt.path, tt.token, data...)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func (a *app) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := a.auth.GenerateToken(a.auth.UserClaims(usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	if objs == nil {
		objs = []interface{}{}
	}
	return marchallObj(t, objs)
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarchall(%s): %v", rec.Body.String(), err)
	}
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
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func TestHealth(t *testing.T) {
	a := setup(t)
	rec := a.do(http.MethodGet, "/api/health/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health code = %v", rec.Code)
	}
	var body map[string]interface{}
	unmarchall(t, rec, &body)
	if body["status"] != "OK" {
		t.Errorf("health status = %v", body["status"])
	}
}
