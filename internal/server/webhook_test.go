package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-telegram/bot/models"

	"donation_bot/internal/telegram"
)

type recordingProcessor struct {
	updates []*models.Update
	ctxs    []context.Context
	panic   bool
}

func (p *recordingProcessor) ProcessUpdate(ctx context.Context, update *models.Update) {
	if p.panic {
		panic("boom")
	}
	p.updates = append(p.updates, update)
	p.ctxs = append(p.ctxs, ctx)
}

type failingDecoder struct{}

func (failingDecoder) Decode([]byte) (*models.Update, error) {
	return nil, errors.New("bad json")
}

type countingObserver struct {
	results map[string]int
}

func (o *countingObserver) ObserveWebhook(result string) {
	if o.results == nil {
		o.results = map[string]int{}
	}
	o.results[result]++
}

const sampleUpdate = `{"update_id":7,"message":{"message_id":1,"date":1,"chat":{"id":42,"type":"private"},"from":{"id":"42","is_bot":false,"first_name":"A"},"text":"/donate"}}`

func postUpdate(s *Server, body, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body))
	if secret != "" {
		req.Header.Set(secretHeader, secret)
	}
	return serve(s, req)
}

func TestWebhookProcessesUpdate(t *testing.T) {
	processor := &recordingProcessor{}
	observer := &countingObserver{}
	server := newTestServer(stubMongoChecker{}, WithWebhook(processor, telegram.NewNormalizer(false), "", observer))

	rr := postUpdate(server, sampleUpdate, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", body)
	}
	if len(processor.updates) != 1 {
		t.Fatalf("expected one processed update, got %d", len(processor.updates))
	}
	update := processor.updates[0]
	if update.ID != 7 || update.Message == nil || update.Message.From == nil || update.Message.From.ID != 42 {
		t.Fatalf("unexpected decoded update: %+v", update)
	}
	if processor.ctxs[0].Err() != nil {
		t.Fatalf("expected processing context to outlive the request")
	}
	if observer.results[resultAccepted] != 1 {
		t.Fatalf("expected accepted observation, got %v", observer.results)
	}
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	processor := &recordingProcessor{}
	observer := &countingObserver{}
	server := newTestServer(stubMongoChecker{}, WithWebhook(processor, telegram.NewNormalizer(false), "s3cret", observer))

	rr := postUpdate(server, sampleUpdate, "wrong")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok":false`) {
		t.Fatalf("expected ok false, got %s", rr.Body.String())
	}
	if len(processor.updates) != 0 {
		t.Fatalf("expected no processed updates")
	}
	if observer.results[resultRejected] != 1 {
		t.Fatalf("expected rejected observation, got %v", observer.results)
	}

	rr = postUpdate(server, sampleUpdate, "s3cret")
	if body := strings.TrimSpace(rr.Body.String()); body != `{"ok":true}` {
		t.Fatalf("unexpected body with valid secret: %s", body)
	}
}

func TestWebhookDecodeFailureStillAnswers200(t *testing.T) {
	processor := &recordingProcessor{}
	server := newTestServer(stubMongoChecker{}, WithWebhook(processor, failingDecoder{}, "", nil))

	rr := postUpdate(server, "not json", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != `{"ok":false,"error":"bad json"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestWebhookRecoversFromPanic(t *testing.T) {
	processor := &recordingProcessor{panic: true}
	observer := &countingObserver{}
	server := newTestServer(stubMongoChecker{}, WithWebhook(processor, telegram.NewNormalizer(false), "", observer))

	rr := postUpdate(server, sampleUpdate, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected HTTP 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "panic while processing update") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
	if observer.results[resultFailed] != 1 {
		t.Fatalf("expected failed observation, got %v", observer.results)
	}
}

func TestWebhookRouteAbsentWithoutOption(t *testing.T) {
	server := newTestServer(stubMongoChecker{})

	rr := postUpdate(server, sampleUpdate, "")
	if rr.Code == http.StatusOK {
		t.Fatalf("expected webhook route to be absent")
	}
}
