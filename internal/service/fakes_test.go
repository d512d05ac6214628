package service

import (
	"context"
	"errors"
	"sync"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/sso"
)

type fakeTicketRepo struct {
	mu          sync.Mutex
	tickets     map[string]domain.Ticket
	getCalls    int
	updateCalls int
	updateErr   error
	listFilter  repository.TicketFilter
	counts      map[domain.TicketStatus]int64
}

func newFakeTicketRepo(tickets ...domain.Ticket) *fakeTicketRepo {
	repo := &fakeTicketRepo{tickets: map[string]domain.Ticket{}}
	for _, t := range tickets {
		repo.tickets[t.ID] = t
	}
	return repo
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	t, ok := r.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t.Replies = append([]domain.TicketReply(nil), t.Replies...)
	return &t, nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	ticket.Version++
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listFilter = filter
	out := make([]domain.Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

func (r *fakeTicketRepo) CountByStatus(context.Context) (map[domain.TicketStatus]int64, error) {
	out := map[domain.TicketStatus]int64{}
	for k, v := range r.counts {
		out[k] = v
	}
	return out, nil
}

func (r *fakeTicketRepo) stored(id string) domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickets[id]
}

type fakeHistoryRepo struct {
	entries []domain.TicketHistory
	err     error
}

func (r *fakeHistoryRepo) Create(_ context.Context, h *domain.TicketHistory) error {
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, *h)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistory, error) {
	var out []domain.TicketHistory
	for _, h := range r.entries {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

type notification struct {
	kind    string
	ticket  domain.Ticket
	display string
	message string
}

type fakeChatNotifier struct {
	sent []notification
	err  error
}

func (n *fakeChatNotifier) StatusChanged(_ context.Context, ticket *domain.Ticket, displayStatus string) error {
	n.sent = append(n.sent, notification{kind: "status", ticket: *ticket, display: displayStatus})
	return n.err
}

func (n *fakeChatNotifier) Reply(_ context.Context, ticket *domain.Ticket, _ string, message string) error {
	n.sent = append(n.sent, notification{kind: "reply", ticket: *ticket, message: message})
	return n.err
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, e events.Event) error {
	d.published = append(d.published, e)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

type fakeProvider struct {
	calls  int
	result sso.Result
	err    error
}

func (p *fakeProvider) Authenticate(context.Context, string, string) (sso.Result, error) {
	p.calls++
	return p.result, p.err
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allowed, l.err
}

var errBoom = errors.New("boom")
