package repository

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/testutil"
)

func TestTicketHistoryRepository_CreateAndList(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	if err := persistence.RunMigrations(ctx, pool, testutil.MigrationsDir(t), zaptest.NewLogger(t)); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	testutil.TruncateHistory(t, ctx, pool)

	repo := NewTicketHistoryRepository(pool)
	entries := []*domain.TicketHistory{
		{
			TicketID:   "ticket-1",
			ChangedBy:  "staff-1",
			ChangeType: domain.ChangeTypeStatus,
			OldValue:   map[string]any{"status": "diproses"},
			NewValue:   map[string]any{"status": "done"},
		},
		{
			TicketID:   "ticket-1",
			ChangedBy:  "staff-2",
			ChangeType: domain.ChangeTypePIC,
			NewValue:   map[string]any{"pic": "andi"},
		},
		{TicketID: "ticket-2", ChangedBy: "staff-1", ChangeType: domain.ChangeTypeReply},
	}
	for _, entry := range entries {
		if err := repo.Create(ctx, entry); err != nil {
			t.Fatalf("create: %v", err)
		}
		if entry.ID == "" || entry.CreatedAt.IsZero() {
			t.Fatalf("expected id and created_at to be populated, got %+v", entry)
		}
	}

	history, err := repo.ListByTicket(ctx, "ticket-1", 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].ChangeType != domain.ChangeTypeStatus || history[0].NewValue["status"] != "done" {
		t.Fatalf("unexpected first entry %+v", history[0])
	}
	if len(history[1].OldValue) != 0 {
		t.Fatalf("expected empty old value, got %v", history[1].OldValue)
	}
}
