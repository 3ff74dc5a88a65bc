package emailsvc

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsforstudy/coins/core"
	"github.com/coinsforstudy/coins/core/economy"
	testutil "github.com/coinsforstudy/coins/tests"
)

func testConfig() *core.Config {
	return &core.Config{AppName: "Coins for Study", DefaultFromEmail: "Coins <noreply@coins.test>", SendgridAPIKey: "SG.key"}
}

func expiryMessage() *core.EmailMessage {
	expiresAt := time.Now().UTC().Add(72 * time.Hour)
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Ana", Address: "ana@coins.test"}},
		Subject:      "Your coins are expiring",
		TemplateName: "expiry_notice",
		TemplateData: map[string]interface{}{
			"Name":       "Ana",
			"AppName":    "Coins for Study",
			"ExpiryDays": 30,
			"Subjects": []economy.SubjectExpiry{
				{SubjectID: "mat", SubjectName: "Matematica", Balance: 18, NextExpiring: 18, NextExpiry: &expiresAt},
				{SubjectID: "his", SubjectName: "Historia", Balance: 12, Expired: 12},
			},
		},
	}
}

func TestConsoleService(t *testing.T) {
	var out bytes.Buffer
	svc := NewConsoleService(testConfig(), testutil.NewLogger(), log.New(&out, "", 0)).(*consoleService)

	require.True(t, svc.sendMessage(expiryMessage()))
	body := out.String()
	assert.Contains(t, body, "From: \"Coins\" <noreply@coins.test>")
	assert.Contains(t, body, "Subject: [Coins for Study] Your coins are expiring")
	assert.Contains(t, body, "To: \"Ana\" <ana@coins.test>")
	assert.Contains(t, body, "Hello Ana,")
	assert.Contains(t, body, "- Matematica: 18 coins, 18 expire")
	assert.Contains(t, body, "- Historia: 12 coins, 12 already expired")
	assert.Contains(t, body, "text/html")
}

func TestConsoleService_Wait(t *testing.T) {
	var out bytes.Buffer
	svc := NewConsoleService(testConfig(), testutil.NewLogger(), log.New(&out, "", 0))

	svc.SendMessages(expiryMessage(), expiryMessage(), expiryMessage())
	svc.Wait()
	assert.Equal(t, 3, strings.Count(out.String(), "Hello Ana,"))
}

func TestConsoleServiceMock(t *testing.T) {
	logger := testutil.NewLogger()
	svc := NewConsoleServiceMock(testConfig(), logger)

	noRecipient := expiryMessage()
	noRecipient.To = nil
	badData := expiryMessage()
	badData.TemplateData = map[string]interface{}{"Name": "Ana"}
	plain := &core.EmailMessage{To: []mail.Address{{Address: "bia@coins.test"}}, Subject: "Hi", BodyStr: "hello"}

	svc.SendMessages(expiryMessage(), noRecipient, badData, plain)

	sent := svc.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].TextContent, "Matematica")
	assert.Contains(t, sent[0].HTMLContent, "<li>")
	assert.Equal(t, "hello", sent[1].TextContent)
	assert.Empty(t, sent[1].HTMLContent)

	logged := logger.Logged()
	require.Len(t, logged, 1)
	assert.True(t, strings.HasPrefix(logged[0], "ERROR: rendering email"))
}

func TestSendgridService(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantLogged int
	}{
		{name: "accepted", status: http.StatusAccepted},
		{name: "rejected", status: http.StatusBadRequest, wantLogged: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := testutil.NewLogger()
			svc := NewSendgridService(testConfig(), logger).(*sendgridService)

			var got rest.Request
			svc.api = func(req rest.Request) (*rest.Response, error) {
				got = req
				return &rest.Response{StatusCode: tt.status, Body: "{}"}, nil
			}
			svc.sendMessage(expiryMessage())

			assert.Equal(t, rest.Method(http.MethodPost), got.Method)
			assert.Equal(t, host+endpoint, got.BaseURL)
			assert.Equal(t, "Bearer SG.key", got.Headers["Authorization"])

			var payload struct {
				From struct {
					Email string `json:"email"`
				} `json:"from"`
				Personalizations []struct {
					Subject string `json:"subject"`
					To      []struct {
						Email string `json:"email"`
					} `json:"to"`
				} `json:"personalizations"`
				Content []struct {
					Type string `json:"type"`
				} `json:"content"`
			}
			require.NoError(t, json.Unmarshal(got.Body, &payload))
			assert.Equal(t, "noreply@coins.test", payload.From.Email)
			require.Len(t, payload.Personalizations, 1)
			assert.Equal(t, "[Coins for Study] Your coins are expiring", payload.Personalizations[0].Subject)
			assert.Equal(t, "ana@coins.test", payload.Personalizations[0].To[0].Email)
			assert.Len(t, payload.Content, 2)
			assert.Len(t, logger.Logged(), tt.wantLogged)
		})
	}
}
