package emailsvc

import (
	"io"
	"log"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core"
	logsvc "github.com/trezcool/masomo-lms/services/logger"
)

func TestConsoleServiceMock(t *testing.T) {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	core.ParseEmailTemplates(logger, true /* strict */)

	svc := NewConsoleServiceMock(conf, logger)
	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Awe", Address: "awe@test.cd"}},
			Subject:      "Welcome!",
			TemplateName: "welcome",
			TemplateData: map[string]interface{}{"Name": "Awe", "Role": "student"},
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "lol"},
		&core.EmailMessage{To: []mail.Address{{Address: "king@test.cd"}}, Subject: "no content"},
		&core.EmailMessage{
			To:           []mail.Address{{Address: "king@test.cd"}},
			Subject:      "missing data",
			TemplateName: "enrollment",
			TemplateData: map[string]interface{}{"Name": "King"},
		},
		&core.EmailMessage{To: []mail.Address{{Address: "king@test.cd"}}, Subject: "plain", BodyStr: "Hello"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)

	assert.Equal(t, "Welcome!", sent[0].Subject)
	assert.Contains(t, sent[0].TextContent, "Hi Awe,")
	assert.Contains(t, sent[0].TextContent, "Your student account is ready.")
	assert.Contains(t, sent[0].TextContent, conf.FrontendBaseURL+"/login")
	assert.Contains(t, sent[0].HTMLContent, "Awe")

	assert.Equal(t, "Hello", sent[1].TextContent)
	assert.Empty(t, sent[1].HTMLContent)

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}
