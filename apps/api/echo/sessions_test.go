package echoapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsforstudy/coins/core"
	"github.com/coinsforstudy/coins/core/economy"
	testutil "github.com/coinsforstudy/coins/tests"
)

func Test_home(t *testing.T) {
	app := setup(t)
	rec := app.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Coins for Study API!", rec.Body.String())
}

func Test_sessionApi_auth(t *testing.T) {
	app := setup(t)
	sid := app.demoSession(t)
	expired, err := GenerateToken(NewClaims("test", "s1", "s", economy.RoleStudent, -time.Minute), testKey)
	require.NoError(t, err)
	forged, err := GenerateToken(NewClaims("test", "s1", "s", economy.RoleAdmin, time.Hour), []byte("other"))
	require.NoError(t, err)

	tests := []struct {
		httpTest
		wantErr string
	}{
		{httpTest{name: "missing token", method: http.MethodGet, path: "/v1/sessions/" + sid, wantCode: http.StatusUnauthorized}, "missing or malformed jwt"},
		{httpTest{name: "expired token", method: http.MethodGet, path: "/v1/sessions/" + sid, token: expired, wantCode: http.StatusUnauthorized}, "invalid or expired jwt"},
		{httpTest{name: "forged token", method: http.MethodGet, path: "/v1/sessions/" + sid, token: forged, wantCode: http.StatusUnauthorized}, "invalid or expired jwt"},
		{httpTest{name: "unknown session", method: http.MethodGet, path: "/v1/sessions/nope", token: getToken(t, economy.RoleStudent), wantCode: http.StatusNotFound}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			var herr httpErr
			decode(t, rec, &herr)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, herr.Error)
			} else {
				assert.NotEmpty(t, herr.Error)
			}
		})
	}
}

func Test_sessionApi_roleGating(t *testing.T) {
	app := setup(t)
	sid := app.demoSession(t)
	base := "/v1/sessions/" + sid
	student := getToken(t, economy.RoleStudent)
	teacher := getToken(t, economy.RoleTeacher)
	admin := getToken(t, economy.RoleAdmin)

	tests := []httpTest{
		{name: "student lists sessions", method: http.MethodGet, path: "/v1/sessions", token: student, wantCode: http.StatusForbidden},
		{name: "teacher creates session", method: http.MethodPost, path: "/v1/sessions", token: teacher, body: echo.Map{"name": "x"}, wantCode: http.StatusForbidden},
		{name: "student creates activity", method: http.MethodPost, path: base + "/activities", token: student, body: echo.Map{"subject_id": "mat", "title": "x"}, wantCode: http.StatusForbidden},
		{name: "admin submits", method: http.MethodPost, path: base + "/activities/a1/submit", token: admin, wantCode: http.StatusForbidden},
		{name: "teacher purchases", method: http.MethodPost, path: base + "/purchases", token: teacher, body: echo.Map{"subject_id": "mat", "points": 1}, wantCode: http.StatusForbidden},
		{name: "student sets rate", method: http.MethodPut, path: base + "/rates/mat", token: student, body: echo.Map{"price_coins_per_point": "1", "points_available": 1}, wantCode: http.StatusForbidden},
		{name: "teacher sets expiry", method: http.MethodPut, path: base + "/policy/expiry", token: teacher, body: echo.Map{"expiry_days": 1}, wantCode: http.StatusForbidden},
		{name: "teacher deletes subject", method: http.MethodDelete, path: base + "/subjects/mat", token: teacher, wantCode: http.StatusForbidden},
		{name: "student reads wallet", method: http.MethodGet, path: base, token: student, wantCode: http.StatusOK},
		{name: "teacher reads ledger", method: http.MethodGet, path: base + "/ledger", token: teacher, wantCode: http.StatusOK},
		{name: "admin reads standings", method: http.MethodGet, path: base + "/standings", token: admin, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	// nothing changed
	sess, info, err := app.svc.Get(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Version)
	assert.Equal(t, 60, sess.TotalBalance())
}

func Test_sessionApi_sessions(t *testing.T) {
	app := setup(t)
	admin := getToken(t, economy.RoleAdmin)

	rec := app.do(t, http.MethodPost, "/v1/sessions", admin, echo.Map{"name": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var fldErrs map[string]string
	decode(t, rec, &fldErrs)
	assert.Equal(t, map[string]string{"name": "this field is required"}, fldErrs)

	rec = app.do(t, http.MethodPost, "/v1/sessions", admin, echo.Map{"name": "Ana", "demo": true})
	require.Equal(t, http.StatusCreated, rec.Code)
	var info economy.SessionInfo
	decode(t, rec, &info)
	assert.Equal(t, "Ana", info.Name)
	assert.Equal(t, 1, info.Version)

	rec = app.do(t, http.MethodGet, "/v1/sessions", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var infos []economy.SessionInfo
	decode(t, rec, &infos)
	require.Len(t, infos, 1)
	assert.Equal(t, info.ID, infos[0].ID)

	rec = app.do(t, http.MethodGet, "/v1/sessions/"+info.ID, getToken(t, economy.RoleStudent), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp SessionResponse
	decode(t, rec, &resp)
	assert.Equal(t, map[string]int{"mat": 18, "his": 12, "bio": 24, "por": 6}, resp.Wallet)
	assert.Equal(t, 60, resp.TotalBalance)
	assert.Equal(t, economy.ModelMedio, resp.Policy.TeachingModel)
	assert.Equal(t, "1", rec.Header().Get(sessionVersionHeader))

	rec = app.do(t, http.MethodDelete, "/v1/sessions/"+info.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.do(t, http.MethodDelete, "/v1/sessions/"+info.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_sessionApi_purchase(t *testing.T) {
	app := setup(t)
	sid := app.demoSession(t)
	path := "/v1/sessions/" + sid + "/purchases"
	student := getToken(t, economy.RoleStudent)

	tests := []httpTest{
		{name: "no subject", body: echo.Map{"points": 1}, wantCode: http.StatusBadRequest},
		{name: "zero points", body: echo.Map{"subject_id": "mat", "points": 0}, wantCode: http.StatusBadRequest},
		{name: "no rate", body: echo.Map{"subject_id": "geo", "points": 1}, wantCode: http.StatusBadRequest},
		{name: "pool too small", body: echo.Map{"subject_id": "mat", "points": 101}, wantCode: http.StatusUnprocessableEntity},
		{name: "balance too small", body: echo.Map{"subject_id": "mat", "points": 4}, wantCode: http.StatusUnprocessableEntity},
		{name: "purchase", body: echo.Map{"subject_id": "mat", "points": 3}, wantCode: http.StatusCreated},
		{name: "balance now too small", body: echo.Map{"subject_id": "mat", "points": 1}, wantCode: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, path, student, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	sess, info, err := app.svc.Get(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Version)
	assert.Equal(t, 3, sess.Balance("mat"))
	rate, _ := sess.Rate("mat")
	assert.Equal(t, 97, rate.PointsAvailable)
	assert.Contains(t, app.logger.Logged(), "INFO: points purchased")
}

func Test_sessionApi_activities(t *testing.T) {
	app := setup(t)
	sid := app.demoSession(t)
	base := "/v1/sessions/" + sid + "/activities"
	student := getToken(t, economy.RoleStudent)
	teacher := getToken(t, economy.RoleTeacher)

	tests := []struct {
		httpTest
		wantStatus economy.Status
	}{
		{httpTest: httpTest{name: "create, unknown subject", method: http.MethodPost, path: base, token: teacher, body: echo.Map{"subject_id": "geo", "title": "Mapas"}, wantCode: http.StatusBadRequest}},
		{httpTest: httpTest{name: "create, no title", method: http.MethodPost, path: base, token: teacher, body: echo.Map{"subject_id": "mat"}, wantCode: http.StatusBadRequest}},
		{httpTest: httpTest{name: "create, reward too large", method: http.MethodPost, path: base, token: teacher, body: echo.Map{"subject_id": "mat", "title": "Limites", "coin_reward": economy.MaxCoinReward + 1}, wantCode: http.StatusBadRequest}},
		{httpTest: httpTest{name: "create", method: http.MethodPost, path: base, token: teacher, body: echo.Map{"id": "a4", "subject_id": "his", "title": "Vargas II", "deadline": "2025-10-10", "coin_reward": 5}, wantCode: http.StatusCreated}, wantStatus: economy.StatusPending},
		{httpTest: httpTest{name: "grade pending", method: http.MethodPost, path: base + "/a1/grade", token: teacher, wantCode: http.StatusConflict}},
		{httpTest: httpTest{name: "submit unknown", method: http.MethodPost, path: base + "/nope/submit", token: student, wantCode: http.StatusNotFound}},
		{httpTest: httpTest{name: "submit", method: http.MethodPost, path: base + "/a1/submit", token: student, wantCode: http.StatusOK}, wantStatus: economy.StatusSubmitted},
		{httpTest: httpTest{name: "submit twice", method: http.MethodPost, path: base + "/a1/submit", token: student, wantCode: http.StatusConflict}},
		{httpTest: httpTest{name: "grade", method: http.MethodPost, path: base + "/a1/grade", token: teacher, wantCode: http.StatusOK}, wantStatus: economy.StatusGraded},
		{httpTest: httpTest{name: "score out of range", method: http.MethodPut, path: base + "/a1/score", token: teacher, body: echo.Map{"value": 11}, wantCode: http.StatusBadRequest}},
		{httpTest: httpTest{name: "score", method: http.MethodPut, path: base + "/a1/score", token: teacher, body: echo.Map{"value": 6.5, "weight": 2}, wantCode: http.StatusOK}, wantStatus: economy.StatusGraded},
		{httpTest: httpTest{name: "reward graded", method: http.MethodPut, path: base + "/a1/reward", token: teacher, body: echo.Map{"coin_reward": 3}, wantCode: http.StatusConflict}},
		{httpTest: httpTest{name: "reward missing", method: http.MethodPut, path: base + "/a4/reward", token: teacher, body: echo.Map{}, wantCode: http.StatusBadRequest}},
		{httpTest: httpTest{name: "reward too large", method: http.MethodPut, path: base + "/a4/reward", token: teacher, body: echo.Map{"coin_reward": int64(1) << 62}, wantCode: http.StatusBadRequest}},
		{httpTest: httpTest{name: "reward", method: http.MethodPut, path: base + "/a4/reward", token: teacher, body: echo.Map{"coin_reward": 7}, wantCode: http.StatusOK}, wantStatus: economy.StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt.method, tt.path, tt.token, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantStatus != "" {
				var act economy.Activity
				decode(t, rec, &act)
				assert.Equal(t, tt.wantStatus, act.Status)
			}
		})
	}

	rec := app.do(t, http.MethodGet, base+"?ordering=-coin_reward", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var acts []economy.Activity
	decode(t, rec, &acts)
	ids := make([]string, 0, len(acts))
	for _, act := range acts {
		ids = append(ids, act.ID)
	}
	assert.Equal(t, []string{"a3", "a1", "a2", "a4"}, ids)

	rec = app.do(t, http.MethodGet, base+"?subject=his&status=pending", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &acts)
	require.Len(t, acts, 1)
	assert.Equal(t, "a4", acts[0].ID)
	assert.Equal(t, 7, acts[0].CoinReward)

	sess, _, err := app.svc.Get(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, 28, sess.Balance("mat"))
}

func Test_sessionApi_rates(t *testing.T) {
	app := setup(t)
	sid := app.demoSession(t)
	teacher := getToken(t, economy.RoleTeacher)
	path := "/v1/sessions/" + sid + "/rates/"

	rec := app.do(t, http.MethodPut, path+"his", teacher, echo.Map{"price_coins_per_point": "-1", "points_available": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = app.do(t, http.MethodPut, path+"geo", teacher, echo.Map{"price_coins_per_point": "1", "points_available": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = app.do(t, http.MethodPut, path+"his", teacher, echo.Map{"price_coins_per_point": "2.5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = app.do(t, http.MethodPut, path+"his", teacher, echo.Map{"price_coins_per_point": "4294967296", "points_available": int64(1) << 32})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/v1/sessions/"+sid+"/rates", teacher, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rates []economy.Rate
	decode(t, rec, &rates)
	require.Len(t, rates, 4)
	assert.Equal(t, "his", rates[1].SubjectID)
	assert.Equal(t, "3", rates[1].Price.String())
	assert.Equal(t, 80, rates[1].PointsAvailable)

	rec = app.do(t, http.MethodPut, path+"his", teacher, echo.Map{"price_coins_per_point": "2.5", "points_available": 10})
	require.Equal(t, http.StatusOK, rec.Code)
	var rate economy.Rate
	decode(t, rec, &rate)
	assert.Equal(t, "2.5", rate.Price.String())

	// 2.5 x 3 = 7.5 rounds up to 8
	rec = app.do(t, http.MethodPost, "/v1/sessions/"+sid+"/purchases", getToken(t, economy.RoleStudent), echo.Map{"subject_id": "his", "points": 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	var receipt economy.Receipt
	decode(t, rec, &receipt)
	assert.Equal(t, 8, receipt.Cost)
}

func Test_sessionApi_subjectsAndPolicy(t *testing.T) {
	app := setup(t)
	sid := app.demoSession(t)
	base := "/v1/sessions/" + sid
	admin := getToken(t, economy.RoleAdmin)

	tests := []struct {
		httpTest
		wantFields map[string]string
	}{
		{httpTest: httpTest{name: "subject, blank name", method: http.MethodPost, path: base + "/subjects", body: echo.Map{"name": "  "}, wantCode: http.StatusBadRequest}, wantFields: map[string]string{"name": "this field is required"}},
		{httpTest: httpTest{name: "subject, bad id", method: http.MethodPost, path: base + "/subjects", body: echo.Map{"id": "q-1", "name": "Quimica"}, wantCode: http.StatusBadRequest}, wantFields: map[string]string{"id": "only alphanumeric characters and underscores are allowed"}},
		{httpTest: httpTest{name: "subject, similar name", method: http.MethodPost, path: base + "/subjects", body: echo.Map{"name": "Matemática"}, wantCode: http.StatusBadRequest}, wantFields: map[string]string{"name": "a subject with a similar name already exists"}},
		{httpTest: httpTest{name: "subject", method: http.MethodPost, path: base + "/subjects", body: echo.Map{"name": "Quimica"}, wantCode: http.StatusCreated}},
		{httpTest: httpTest{name: "delete subject", method: http.MethodDelete, path: base + "/subjects/mat", wantCode: http.StatusNoContent}},
		{httpTest: httpTest{name: "delete unknown subject", method: http.MethodDelete, path: base + "/subjects/mat", wantCode: http.StatusNotFound}},
		{httpTest: httpTest{name: "expiry, negative", method: http.MethodPut, path: base + "/policy/expiry", body: echo.Map{"expiry_days": -1}, wantCode: http.StatusBadRequest}},
		{httpTest: httpTest{name: "expiry", method: http.MethodPut, path: base + "/policy/expiry", body: echo.Map{"expiry_days": 45}, wantCode: http.StatusOK}},
		{httpTest: httpTest{name: "segregation", method: http.MethodPut, path: base + "/policy/segregation", body: echo.Map{"segregate_by_subject": false}, wantCode: http.StatusOK}},
		{httpTest: httpTest{name: "teaching model, unknown", method: http.MethodPut, path: base + "/policy/teaching-model", body: echo.Map{"teaching_model": "online"}, wantCode: http.StatusBadRequest}, wantFields: map[string]string{"teaching_model": "must be one of fundamental, medio, tecnico or personalizado"}},
		{httpTest: httpTest{name: "teaching model", method: http.MethodPut, path: base + "/policy/teaching-model", body: echo.Map{"teaching_model": "tecnico"}, wantCode: http.StatusOK}},
		{httpTest: httpTest{name: "threshold, unknown subject", method: http.MethodPut, path: base + "/policy/thresholds/mat", body: echo.Map{"value": 6}, wantCode: http.StatusBadRequest}},
		{httpTest: httpTest{name: "threshold", method: http.MethodPut, path: base + "/policy/thresholds/his", body: echo.Map{"value": 5.5}, wantCode: http.StatusOK}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt.method, tt.path, admin, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantFields != nil {
				var fldErrs map[string]string
				decode(t, rec, &fldErrs)
				assert.Equal(t, tt.wantFields, fldErrs)
			}
		})
	}

	rec := app.do(t, http.MethodGet, base+"/policy", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ps economy.PolicySettings
	decode(t, rec, &ps)
	assert.Equal(t, 45, ps.ExpiryDays)
	assert.False(t, ps.SegregateBySubject)
	assert.Equal(t, economy.ModelTecnico, ps.TeachingModel)
	assert.Equal(t, map[string]float64{"his": 5.5, "bio": 7, "por": 6}, ps.MinThreshold)

	rec = app.do(t, http.MethodGet, base+"/subjects", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var subjects []economy.Subject
	decode(t, rec, &subjects)
	assert.Equal(t, []economy.Subject{
		{ID: "por", Name: "Portugues"},
		{ID: "his", Name: "Historia"},
		{ID: "bio", Name: "Biologia"},
		{ID: "qui4", Name: "Quimica"},
	}, subjects)

	// the forfeited Matematica coins stay in the ledger
	rec = app.do(t, http.MethodGet, base+"/ledger?subject=mat", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []economy.Entry
	decode(t, rec, &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, economy.ReasonForfeit, entries[1].Reason)
	assert.Equal(t, 18, entries[1].Amount)
}

func Test_sessionApi_reports(t *testing.T) {
	app := setup(t)
	sid := app.demoSession(t)
	token := getToken(t, economy.RoleStudent)

	rec := app.do(t, http.MethodGet, "/v1/sessions/"+sid+"/expiry", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report economy.ExpiryReport
	decode(t, rec, &report)
	assert.Equal(t, 30, report.ExpiryDays)
	require.Len(t, report.Subjects, 4)
	for _, se := range report.Subjects {
		assert.Zero(t, se.Expired)
		require.NotNil(t, se.NextExpiry)
		assert.True(t, se.NextExpiry.Equal(testNow.AddDate(0, 0, 30)))
	}

	rec = app.do(t, http.MethodGet, "/v1/sessions/"+sid+"/standings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var standings []economy.Standing
	decode(t, rec, &standings)
	require.Len(t, standings, 4)
	bio := standings[3]
	assert.Equal(t, "bio", bio.SubjectID)
	assert.Equal(t, 9.1, bio.Average)
	require.NotNil(t, bio.Passing)
	assert.True(t, *bio.Passing)
}

func Test_sessionApi_notifyExpiry(t *testing.T) {
	app := setup(t)
	sid := app.demoSession(t)
	path := "/v1/sessions/" + sid + "/expiry/notify"
	admin := getToken(t, economy.RoleAdmin)

	tests := []struct {
		httpTest
		wantSent int
	}{
		{httpTest: httpTest{name: "no recipients", body: echo.Map{"to": []string{}}, wantCode: http.StatusBadRequest}},
		{httpTest: httpTest{name: "bad address", body: echo.Map{"to": []string{"ana"}}, wantCode: http.StatusBadRequest}},
		{httpTest: httpTest{name: "nothing expiring within a week", body: echo.Map{"to": []string{"ana@example.com"}}, wantCode: http.StatusOK}},
		{httpTest: httpTest{name: "expiring within a month", body: echo.Map{"to": []string{"ana@example.com", "bia@example.com"}, "within_days": 31}, wantCode: http.StatusAccepted}, wantSent: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, path, admin, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if rec.Code < http.StatusBadRequest {
				var resp struct {
					Sent int `json:"sent"`
				}
				decode(t, rec, &resp)
				assert.Equal(t, tt.wantSent, resp.Sent)
			}
		})
	}

	sent := app.mail.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "Your coins are about to expire", sent[0].Subject)
	assert.Equal(t, "bia@example.com", sent[1].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "- Matematica: 18 coins, 18 expire")

	rec := app.do(t, http.MethodPost, path, getToken(t, economy.RoleTeacher), echo.Map{"to": []string{"ana@example.com"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func Test_appHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "server error", err: errors.New("boom"), wantCode: http.StatusInternalServerError},
		{name: "invalid amount", err: economy.ErrInvalidAmount, wantCode: http.StatusBadRequest},
		{name: "conflict", err: economy.ErrConflict, wantCode: http.StatusConflict},
		{name: "http error", err: echo.ErrMethodNotAllowed, wantCode: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := testutil.NewLogger()
			handler := newAppHTTPErrorHandler(logger, core.NewTranslator())

			e := echo.New()
			rec := httptest.NewRecorder()
			ctx := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			handler(tt.err, ctx)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusInternalServerError {
				assert.Equal(t, []string{"ERROR: Internal Server Error"}, logger.Logged())
				assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
			} else {
				assert.Empty(t, logger.Logged())
			}
		})
	}
}
