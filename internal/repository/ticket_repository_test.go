package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/testutil"
)

func TestTicketRepository_GetByID(t *testing.T) {
	coll := testutil.NewTestCollection(t)
	repo := NewTicketRepository(coll)
	ctx := context.Background()

	id := testutil.InsertTicket(t, ctx, coll, testutil.TicketSeed{
		TicketCode: "TKT-0001",
		Status:     "diproses",
		Platform:   "Telegram",
		ChatID:     "12345",
		MessageID:  "77",
	})

	ticket, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ticket.TicketCode != "TKT-0001" || ticket.Platform != domain.PlatformTelegram || ticket.MessageID != "77" {
		t.Fatalf("unexpected ticket %+v", ticket)
	}
	if ticket.Version != 0 {
		t.Fatalf("expected version 0 for bot-written ticket, got %d", ticket.Version)
	}

	if _, err := repo.GetByID(ctx, primitive.NewObjectID().Hex()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByID(ctx, "not-an-object-id"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestTicketRepository_UpdateCompareAndSwap(t *testing.T) {
	coll := testutil.NewTestCollection(t)
	repo := NewTicketRepository(coll)
	ctx := context.Background()

	id := testutil.InsertTicket(t, ctx, coll, testutil.TicketSeed{
		TicketCode: "TKT-0002",
		Status:     "diproses",
		Platform:   "WhatsApp",
		ChatID:     "628123@c.us",
	})

	first, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	stale, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	completed := time.Now().UTC().Truncate(time.Millisecond)
	first.Status = domain.TicketStatusDone
	first.CompletedAt = &completed
	first.UpdatedAt = time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	if err := repo.Update(ctx, first); err != nil {
		t.Fatalf("update: %v", err)
	}
	if first.Version != 1 {
		t.Fatalf("expected version 1 after update, got %d", first.Version)
	}

	stale.Status = domain.TicketStatusOnHold
	if err := repo.Update(ctx, stale); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	stored, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.TicketStatusDone || stored.CompletedAt == nil || !stored.CompletedAt.Equal(completed) {
		t.Fatalf("expected done ticket with completedAt, got %+v", stored)
	}
	if !stored.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("expected updatedAt %v to be stored as given, got %v", first.UpdatedAt, stored.UpdatedAt)
	}

	missing := &domain.Ticket{ID: primitive.NewObjectID().Hex()}
	if err := repo.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTicketRepository_ListAndCount(t *testing.T) {
	coll := testutil.NewTestCollection(t)
	repo := NewTicketRepository(coll)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	testutil.InsertTicket(t, ctx, coll, testutil.TicketSeed{TicketCode: "TKT-1", Status: "diproses", Platform: "Telegram", ReporterName: "Budi", CreatedAt: base})
	testutil.InsertTicket(t, ctx, coll, testutil.TicketSeed{TicketCode: "TKT-2", Status: "Done", Platform: "WhatsApp", ReporterName: "Sari", CreatedAt: base.Add(time.Hour)})
	testutil.InsertTicket(t, ctx, coll, testutil.TicketSeed{TicketCode: "TKT-3", Status: "done", Platform: "Telegram", PIC: "andi", CreatedAt: base.Add(2 * time.Hour)})

	done, total, err := repo.List(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusDone}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(done) != 2 {
		t.Fatalf("expected 2 done tickets, got total=%d len=%d", total, len(done))
	}
	if done[0].TicketCode != "TKT-3" {
		t.Fatalf("expected newest first, got %s", done[0].TicketCode)
	}

	search := "sari"
	found, _, err := repo.List(ctx, TicketFilter{SearchTerm: &search})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(found) != 1 || found[0].TicketCode != "TKT-2" {
		t.Fatalf("expected search to match TKT-2, got %+v", found)
	}

	page, total, err := repo.List(ctx, TicketFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(page) != 1 || page[0].TicketCode != "TKT-2" {
		t.Fatalf("unexpected page total=%d %+v", total, page)
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[domain.TicketStatusDone] != 2 || counts[domain.TicketStatusInProgress] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
