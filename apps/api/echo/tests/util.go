package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/d2monteblanco/ki-aikido-system/apps/api/echo"
	"github.com/d2monteblanco/ki-aikido-system/apps/shared"
	"github.com/d2monteblanco/ki-aikido-system/core"
	"github.com/d2monteblanco/ki-aikido-system/core/dojo"
	"github.com/d2monteblanco/ki-aikido-system/core/event"
	"github.com/d2monteblanco/ki-aikido-system/core/user"
	testutil "github.com/d2monteblanco/ki-aikido-system/tests"
)

const testPassword = "Kokyu@Nage1"

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: event.ErrForbidden.Error()}

	testNow = time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)
)

type testApp struct {
	*Server
	conf  *core.Config
	store *shared.Store

	centro dojo.Dojo
	norte  dojo.Dojo
	admin  user.User
	sensei user.User // Ki Aikido Centro
}

func setup(t *testing.T) *testApp {
	t.Helper()
	event.NowFunc = func() time.Time { return testNow }
	t.Cleanup(func() { event.NowFunc = time.Now })

	conf := core.NewTestConfig()
	logger := testutil.NewLogger(conf)
	store := shared.NewMemoryStore()
	validate, translator := shared.NewValidator()
	svcs := shared.NewServices(store, validate, logger, conf)

	app := &testApp{
		conf:  conf,
		store: store,
		Server: NewServer(ServerDeps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    svcs.User,
			DojoSvc:    svcs.Dojo,
			EventSvc:   svcs.Event,
			Validate:   validate,
			Translator: translator,
		}),
	}
	t.Cleanup(func() { _ = app.Close() })

	app.centro = testutil.CreateDojo(t, store.Dojos, "Ki Aikido Centro", "centro@kiaikido.test")
	app.norte = testutil.CreateDojo(t, store.Dojos, "Ki Aikido Norte", "")
	app.admin = testutil.CreateUser(t, store.Users, "Admin", "admin@kiaikido.test", testPassword, user.RoleAdmin, nil)
	app.sensei = testutil.CreateUser(t, store.Users, "Sensei", "sensei@kiaikido.test", testPassword, user.RoleDojoUser, &app.centro.ID)
	return app
}

type httpErr struct {
	Error string `json:"error"`
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do serves one request and returns the recorded response.
func (app *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, usr user.User, conf *core.Config) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr, conf), conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func itoa(i int) string { return strconv.Itoa(i) }

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
