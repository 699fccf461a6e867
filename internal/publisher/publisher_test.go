package publisher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerhub/news-curator/internal/core/domain"
)

type fakeSender struct {
	sent    []tgbotapi.MessageConfig
	sendErr error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}

	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}

	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

type fakeStore struct {
	saved   []*domain.PublishedItem
	saveErr error
}

func (f *fakeStore) SavePublished(_ context.Context, item *domain.PublishedItem) error {
	if f.saveErr != nil {
		return f.saveErr
	}

	f.saved = append(f.saved, item)

	return nil
}

func digestItems() []domain.SelectedItem {
	return []domain.SelectedItem{
		{MessageID: "m1", Title: "Первая новость", Description: "Описание", Score: 9, SourceLink: "https://t.me/ch/1"},
		{MessageID: "m2", Title: "Вторая новость", Score: 7},
	}
}

func digestCategory() domain.Category {
	return domain.Category{Name: "electronics", DisplayName: "Электроника", TargetChatID: -100}
}

func TestFormatDigest(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	text := FormatDigest(digestCategory(), digestItems(), now)

	assert.Contains(t, text, "Электроника — 28.08.2026")
	assert.Contains(t, text, "1. Первая новость")
	assert.Contains(t, text, "2. Вторая новость")
	assert.Contains(t, text, "https://t.me/ch/1")
	assert.Contains(t, text, "Всего новостей: 2")
	assert.True(t, strings.Index(text, "Первая") < strings.Index(text, "Вторая"), "items must keep proposal order")
}

func TestPublishSavesItemsWithEmbeddings(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStore{}
	nop := zerolog.Nop()
	p := New(sender, store, 0, 0, &nop)

	embeddings := map[string][]float32{
		"m1": {0.1, 0.2},
		"m2": {0.3, 0.4},
	}

	err := p.Publish(context.Background(), digestCategory(), digestItems(), embeddings)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(-100), sender.sent[0].ChatID)

	require.Len(t, store.saved, 2)
	assert.Equal(t, "electronics", store.saved[0].Category)
	assert.Equal(t, []float32{0.1, 0.2}, store.saved[0].Embedding)
	assert.Equal(t, "m2", store.saved[1].MessageID)
}

func TestPublishSendFailure(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("flood wait")}
	store := &fakeStore{}
	nop := zerolog.Nop()
	p := New(sender, store, 0, 0, &nop)

	err := p.Publish(context.Background(), digestCategory(), digestItems(), nil)
	require.Error(t, err)
	assert.Empty(t, store.saved, "nothing must be saved when the send fails")
}

func TestPublishSaveFailureNotFatal(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStore{saveErr: errors.New("db down")}
	nop := zerolog.Nop()
	p := New(sender, store, 0, 0, &nop)

	err := p.Publish(context.Background(), digestCategory(), digestItems(), nil)
	assert.NoError(t, err, "save failures after a public send must not error")
}

func TestPublishPreviewAndNotify(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStore{}
	nop := zerolog.Nop()
	p := New(sender, store, -200, -300, &nop)

	err := p.Publish(context.Background(), digestCategory(), digestItems(), nil)
	require.NoError(t, err)

	require.Len(t, sender.sent, 3)
	assert.Equal(t, int64(-100), sender.sent[0].ChatID)
	assert.Equal(t, int64(-200), sender.sent[1].ChatID)
	assert.Equal(t, int64(-300), sender.sent[2].ChatID)
	assert.Contains(t, sender.sent[2].Text, "опубликован")
}

func TestPublishEmptyItemsNoop(t *testing.T) {
	sender := &fakeSender{}
	store := &fakeStore{}
	nop := zerolog.Nop()
	p := New(sender, store, 0, 0, &nop)

	err := p.Publish(context.Background(), digestCategory(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}
