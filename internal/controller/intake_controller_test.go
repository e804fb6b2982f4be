package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"lab-compare-be/internal/dto"
	"lab-compare-be/internal/pkg/serverutils"
	"lab-compare-be/internal/service"
	"lab-compare-be/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoDispatcher replies with a description of every event it receives.
type echoDispatcher struct {
	events []dto.IntakeEvent
}

func (d *echoDispatcher) Submit(ctx context.Context, event dto.IntakeEvent, replier service.Replier) <-chan error {
	d.events = append(d.events, event)
	done := make(chan error, 1)

	reply := string(event.Kind)
	if event.Document != nil {
		reply += ":" + event.Document.FileName()
	}
	if event.Text != "" {
		reply += ":" + event.Text
	}
	done <- replier.SendText(ctx, event.UserID, reply)
	close(done)
	return done
}

func (d *echoDispatcher) Wait() {}

type staticIntake struct{}

func (staticIntake) Handle(context.Context, dto.IntakeEvent, service.Replier) error { return nil }

func (staticIntake) Session(userID string) store.Session {
	return store.Session{
		UserID:    userID,
		State:     store.StateCollectingDocuments,
		Documents: []store.DocumentRef{{ID: "d1", FileName: "a.pdf", Locator: "/tmp/x"}},
	}
}

func (staticIntake) ExpireDocuments(string, []store.DocumentRef) {}

func newIntakeApp() (*fiber.App, *echoDispatcher) {
	d := &echoDispatcher{}
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewIntakeController(d, staticIntake{}).RegisterRoutes(app.Group("/api"))
	return app, d
}

func decodeReplies(t *testing.T, body *bytes.Buffer) []string {
	t.Helper()
	var res serverutils.BaseResponse[dto.IntakeRepliesResponse]
	require.NoError(t, json.Unmarshal(body.Bytes(), &res))
	assert.True(t, res.Success)
	return res.Data.Replies
}

func do(t *testing.T, app *fiber.App, method, target, contentType string, body []byte) (int, *bytes.Buffer) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf
}

func TestIntakeController_Events(t *testing.T) {
	app, d := newIntakeApp()

	status, body := do(t, app, "POST", "/api/intake/v1/alice/start", "", nil)
	assert.Equal(t, 200, status)
	assert.Equal(t, []string{"start"}, decodeReplies(t, body))

	status, body = do(t, app, "POST", "/api/intake/v1/alice/messages", "application/json", []byte(`{"text":"hello"}`))
	assert.Equal(t, 200, status)
	assert.Equal(t, []string{"text:hello"}, decodeReplies(t, body))

	status, body = do(t, app, "POST", "/api/intake/v1/alice/cancel", "", nil)
	assert.Equal(t, 200, status)
	assert.Equal(t, []string{"cancel"}, decodeReplies(t, body))

	require.Len(t, d.events, 3)
	for _, e := range d.events {
		assert.Equal(t, "alice", e.UserID)
	}
}

func TestIntakeController_UploadDocument(t *testing.T) {
	app, _ := newIntakeApp()

	var form bytes.Buffer
	w := multipart.NewWriter(&form)
	part, err := w.CreateFormFile("file", "march.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, w.Close())

	status, body := do(t, app, "POST", "/api/intake/v1/alice/documents", w.FormDataContentType(), form.Bytes())

	assert.Equal(t, 200, status)
	assert.Equal(t, []string{"document:march.pdf"}, decodeReplies(t, body))
}

func TestIntakeController_BadRequests(t *testing.T) {
	app, d := newIntakeApp()

	tests := []struct {
		name        string
		target      string
		contentType string
		body        string
	}{
		{"empty text", "/api/intake/v1/alice/messages", "application/json", `{"text":""}`},
		{"broken json", "/api/intake/v1/alice/messages", "application/json", `{`},
		{"missing file", "/api/intake/v1/alice/documents", "application/json", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := do(t, app, "POST", tt.target, tt.contentType, []byte(tt.body))
			assert.Equal(t, 400, status)
		})
	}
	assert.Empty(t, d.events)
}

func TestIntakeController_GetSession(t *testing.T) {
	app, _ := newIntakeApp()

	status, body := do(t, app, "GET", "/api/intake/v1/alice/session", "", nil)

	assert.Equal(t, 200, status)
	assert.False(t, strings.Contains(body.String(), "/tmp/x"))

	var res serverutils.BaseResponse[dto.IntakeSessionResponse]
	require.NoError(t, json.Unmarshal(body.Bytes(), &res))
	assert.Equal(t, "alice", res.Data.UserID)
	assert.Equal(t, store.StateCollectingDocuments, res.Data.State)
	require.Len(t, res.Data.Documents, 1)
	assert.Equal(t, "a.pdf", res.Data.Documents[0].FileName)
}
