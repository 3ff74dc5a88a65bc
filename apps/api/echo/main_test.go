package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/coinsforstudy/coins/core"
	"github.com/coinsforstudy/coins/core/economy"
	emailsvc "github.com/coinsforstudy/coins/services/email"
	inmemdb "github.com/coinsforstudy/coins/storage/database/inmem"
	testutil "github.com/coinsforstudy/coins/tests"
)

var (
	testKey = []byte("test-secret")
	testNow = time.Date(2025, time.September, 20, 12, 0, 0, 0, time.UTC)
)

type testApp struct {
	Server
	svc    *economy.Service
	mail   *emailsvc.ConsoleServiceMock
	logger *testutil.Logger
}

func setup(t *testing.T) *testApp {
	t.Helper()
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	economy.InitValidators(validate, translator)

	now := func() time.Time { return testNow }
	opts := economy.DefaultOptions()
	opts.Now = now
	svc := economy.NewServiceWithOptions(inmemdb.NewSessionRepository(inmemdb.Open()), opts)
	logger := testutil.NewLogger()
	conf := &core.Config{AppName: "Coins for Study", DefaultFromEmail: "noreply@localhost"}
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	srv := NewServer(&Options{
		TestMode:       true,
		DisableReqLogs: true,
		SigningKey:     testKey,
		Logger:         logger,
		AppName:        conf.AppName,
		SessionSvc:     svc,
		MailSvc:        mailSvc,
		Validate:       validate,
		Translator:     translator,
		Now:            now,
	})
	return &testApp{Server: srv, svc: svc, mail: mailSvc, logger: logger}
}

func (app *testApp) demoSession(t *testing.T) string {
	t.Helper()
	rec, err := app.svc.Create(context.Background(), economy.NewSessionRequest{Name: "Demo", Demo: true})
	require.NoError(t, err)
	return rec.ID
}

func getToken(t *testing.T, role string) string {
	t.Helper()
	token, err := GenerateToken(NewClaims("test", role+"-1", "a "+role, role, time.Hour), testKey)
	require.NoError(t, err)
	return token
}

// do sends body (marshalled to JSON when not nil) and returns the recorded response.
func (app *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
}
