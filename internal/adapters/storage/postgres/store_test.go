package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/minidxo/internal/adapters/storage/postgres"
	"github.com/PabloGalante/minidxo/internal/domain"
)

// Runs only when MINIDXO_TEST_POSTGRES_URL points at a disposable database.
func openStore(t *testing.T) *postgres.Store {
	t.Helper()
	url := os.Getenv("MINIDXO_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("MINIDXO_TEST_POSTGRES_URL not set")
	}
	store, err := postgres.New(context.Background(), url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	id := domain.SessionID(uuid.NewString())
	sess := &domain.Session{ID: id, UserID: "u1", CreatedAt: now, UpdatedAt: now}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateSession(ctx, sess); !errors.Is(err, domain.ErrSessionExists) {
		t.Errorf("expected ErrSessionExists, got %v", err)
	}

	for i := 0; i < 4; i++ {
		msg := &domain.Message{
			ID:          domain.MessageID(uuid.NewString()),
			SessionID:   id,
			Author:      domain.RoleUser,
			Text:        string(rune('a' + i)),
			ContentType: domain.ContentTypeText,
			CreatedAt:   now,
		}
		if err := store.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	window, err := store.GetMessagesBySession(ctx, id, 2)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(window) != 2 || window[0].Text != "c" || window[1].Text != "d" {
		t.Errorf("unexpected window %+v", window)
	}

	if _, err := store.GetSession(ctx, domain.SessionID(uuid.NewString())); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}
