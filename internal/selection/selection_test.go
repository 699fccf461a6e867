package selection

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sellerhub/news-curator/internal/core/domain"
	curerrors "github.com/sellerhub/news-curator/internal/core/errors"
)

type fakeTransport struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (f *fakeTransport) Complete(_ context.Context, prompt string) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)

	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}

	if i < len(f.replies) {
		return f.replies[i], nil
	}

	return "[]", nil
}

func testMessages(n int) []domain.Message {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	msgs := make([]domain.Message, n)
	for i := range msgs {
		msgs[i] = domain.Message{
			ID:           fmt.Sprintf("m%d", i+1),
			ChannelTitle: "channel",
			Text:         fmt.Sprintf("новость номер %d\nподробности ниже", i+1),
			ReceivedAt:   base.Add(time.Duration(i) * time.Minute),
		}
	}

	return msgs
}

func testCategory(topN int) domain.Category {
	return domain.Category{Name: "electronics", DisplayName: "Электроника", TopN: topN}
}

func newTestClient(tr Transport, chunkSize int) *Client {
	nop := zerolog.Nop()

	c := New(tr, chunkSize, time.Second, &nop)
	c.retryBase = time.Millisecond
	c.retryMax = 2 * time.Millisecond

	return c
}

func TestSelectTopNews(t *testing.T) {
	tr := &fakeTransport{replies: []string{
		`[{"id":"m1","title":"A","description":"d","score":7},
		  {"id":"m2","title":"B","description":"d","score":9}]`,
	}}
	c := newTestClient(tr, 50)

	items, err := c.SelectTopNews(context.Background(), testMessages(3), testCategory(5))
	if err != nil {
		t.Fatalf("SelectTopNews: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	if items[0].MessageID != "m2" || items[1].MessageID != "m1" {
		t.Errorf("expected score-descending order, got %s %s", items[0].MessageID, items[1].MessageID)
	}
}

func TestSelectTopNewsChunking(t *testing.T) {
	tr := &fakeTransport{replies: []string{
		`[{"id":"m1","title":"A","description":"d","score":5}]`,
		`[{"id":"m3","title":"C","description":"d","score":8}]`,
	}}
	c := newTestClient(tr, 2)

	items, err := c.SelectTopNews(context.Background(), testMessages(3), testCategory(5))
	if err != nil {
		t.Fatalf("SelectTopNews: %v", err)
	}

	if tr.calls != 2 {
		t.Errorf("expected 2 chunk requests, got %d", tr.calls)
	}

	if len(items) != 2 || items[0].MessageID != "m3" {
		t.Errorf("unexpected merge result: %+v", items)
	}
}

func TestSelectTopNewsTruncatesToTopN(t *testing.T) {
	tr := &fakeTransport{replies: []string{
		`[{"id":"m1","score":5,"title":"a","description":"d"},
		  {"id":"m2","score":9,"title":"b","description":"d"},
		  {"id":"m3","score":7,"title":"c","description":"d"}]`,
	}}
	c := newTestClient(tr, 50)

	items, err := c.SelectTopNews(context.Background(), testMessages(3), testCategory(2))
	if err != nil {
		t.Fatalf("SelectTopNews: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(items))
	}

	if items[0].MessageID != "m2" || items[1].MessageID != "m3" {
		t.Errorf("expected top scores kept, got %+v", items)
	}
}

func TestSelectTopNewsTieBreakByArrival(t *testing.T) {
	tr := &fakeTransport{replies: []string{
		`[{"id":"m2","score":5,"title":"b","description":"d"},
		  {"id":"m1","score":5,"title":"a","description":"d"}]`,
	}}
	c := newTestClient(tr, 50)

	items, err := c.SelectTopNews(context.Background(), testMessages(2), testCategory(5))
	if err != nil {
		t.Fatalf("SelectTopNews: %v", err)
	}

	if items[0].MessageID != "m1" {
		t.Errorf("expected earlier arrival first on tie, got %s", items[0].MessageID)
	}
}

func TestSelectTopNewsDropsInvalidItems(t *testing.T) {
	tr := &fakeTransport{replies: []string{
		`[{"id":"unknown","score":5,"title":"x","description":"d"},
		  {"id":"m1","score":0,"title":"low","description":"d"},
		  {"id":"m2","score":11,"title":"high","description":"d"},
		  {"id":"m3","score":6,"title":"ok","description":"d"}]`,
	}}
	c := newTestClient(tr, 50)

	items, err := c.SelectTopNews(context.Background(), testMessages(3), testCategory(5))
	if err != nil {
		t.Fatalf("SelectTopNews: %v", err)
	}

	if len(items) != 1 || items[0].MessageID != "m3" {
		t.Errorf("expected only the valid item, got %+v", items)
	}
}

func TestSelectTopNewsRetriesThenSucceeds(t *testing.T) {
	tr := &fakeTransport{
		errs:    []error{errors.New("transient"), nil},
		replies: []string{"", `[{"id":"m1","score":5,"title":"a","description":"d"}]`},
	}
	c := newTestClient(tr, 50)

	items, err := c.SelectTopNews(context.Background(), testMessages(1), testCategory(5))
	if err != nil {
		t.Fatalf("SelectTopNews: %v", err)
	}

	if tr.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", tr.calls)
	}

	if len(items) != 1 {
		t.Errorf("expected 1 item after retry, got %d", len(items))
	}
}

func TestSelectTopNewsFailOpenOnExhaustion(t *testing.T) {
	boom := errors.New("boom")
	tr := &fakeTransport{errs: []error{boom, boom, boom}}
	c := newTestClient(tr, 50)

	items, err := c.SelectTopNews(context.Background(), testMessages(2), testCategory(5))
	if err != nil {
		t.Fatalf("expected fail-open nil error, got %v", err)
	}

	if tr.calls != maxAttempts {
		t.Errorf("expected %d attempts, got %d", maxAttempts, tr.calls)
	}

	if len(items) != 0 {
		t.Errorf("expected empty result, got %+v", items)
	}
}

func TestSelectTopNewsSchemaErrorRetried(t *testing.T) {
	tr := &fakeTransport{replies: []string{"complete garbage", "still garbage", "garbage"}}
	c := newTestClient(tr, 50)

	items, err := c.SelectTopNews(context.Background(), testMessages(1), testCategory(5))
	if err != nil {
		t.Fatalf("expected fail-open nil error, got %v", err)
	}

	if tr.calls != maxAttempts {
		t.Errorf("expected %d attempts on schema errors, got %d", maxAttempts, tr.calls)
	}

	if len(items) != 0 {
		t.Errorf("expected empty result, got %+v", items)
	}
}

func TestParseReplySchemaError(t *testing.T) {
	c := newTestClient(&fakeTransport{}, 50)

	_, err := c.parseReply("not json at all", 0, testCategory(5), map[string]*domain.Message{})

	var schemaErr *curerrors.SelectionSchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SelectionSchemaError, got %v", err)
	}
}

func TestParseReplyTitleFallback(t *testing.T) {
	msgs := testMessages(1)
	byID := map[string]*domain.Message{"m1": &msgs[0]}
	c := newTestClient(&fakeTransport{}, 50)

	items, err := c.parseReply(`[{"id":"m1","score":5}]`, 0, testCategory(5), byID)
	if err != nil {
		t.Fatalf("parseReply: %v", err)
	}

	if items[0].Title != "новость номер 1" {
		t.Errorf("expected title fallback from first text line, got %q", items[0].Title)
	}

	if items[0].Description == "" {
		t.Error("expected description fallback from text")
	}
}

func TestSelectTopNewsEmptyCandidates(t *testing.T) {
	tr := &fakeTransport{}
	c := newTestClient(tr, 50)

	items, err := c.SelectTopNews(context.Background(), nil, testCategory(5))
	if err != nil || items != nil {
		t.Errorf("expected nil, nil for empty candidates, got %v %v", items, err)
	}

	if tr.calls != 0 {
		t.Errorf("expected no transport calls, got %d", tr.calls)
	}
}
