package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langhour/tracker/core"
	logsvc "github.com/langhour/tracker/services/logger"
)

func testConfig() *core.Config {
	return &core.Config{
		TestMode:         true,
		AppName:          "LHT",
		FrontendBaseURL:  "http://lht.test",
		DefaultFromEmail: mail.Address{Name: "LHT", Address: "noreply@lht.test"},
	}
}

func TestConsoleServiceMock(t *testing.T) {
	conf := testConfig()
	logger := logsvc.NewNopLogger()
	core.ParseEmailTemplates(conf, logger)
	ClearSentMessages()

	svc := NewService(conf, logger)
	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Jane Doe", Address: "jdoe@test.cd"}},
			Subject:      "Password Reset",
			TemplateName: "password_reset",
			TemplateData: struct{ Name, UID, Token string }{"Jane Doe", "dWlk", "abc-123"},
		},
		&core.EmailMessage{Subject: "no recipient", BodyStr: "dropped"},
		&core.EmailMessage{To: []mail.Address{{Address: "x@test.cd"}}, Subject: "empty"},
	)

	sent := LastSentMessages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Contains(t, msg.TextContent, "Hello Jane Doe,")
	assert.Contains(t, msg.TextContent, "http://lht.test/password-reset/dWlk/abc-123")
	assert.True(t, strings.HasPrefix(msg.HTMLContent, "<!DOCTYPE html>"))
	assert.Contains(t, msg.HTMLContent, `href="http://lht.test/password-reset/dWlk/abc-123"`)
}

func TestSendgridService_prepare(t *testing.T) {
	conf := testConfig()
	svc := sendgridService{subjPrefix: "[LHT] ", logger: logsvc.NewNopLogger()}
	svc.from = NewSendgridService(conf, svc.logger).(*sendgridService).from

	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Jane", Address: "jane@test.cd"}},
		Cc:          []mail.Address{{Address: "supe@test.cd"}},
		Subject:     "Monthly reminder",
		TextContent: "text",
		HTMLContent: "<p>html</p>",
	}
	require.NoError(t, msg.Attach(strings.NewReader("Date,Hours\n"), "hours.csv", "text/csv"))

	m := svc.prepare(msg)
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[LHT] Monthly reminder", m.Personalizations[0].Subject)
	assert.Equal(t, "jane@test.cd", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "supe@test.cd", m.Personalizations[0].CC[0].Address)
	assert.Equal(t, "noreply@lht.test", m.From.Address)
	require.Len(t, m.Content, 2)
	require.Len(t, m.Attachments, 1)
	assert.Equal(t, "hours.csv", m.Attachments[0].Filename)
	assert.Equal(t, "RGF0ZSxIb3Vycwo=", m.Attachments[0].Content)
}
