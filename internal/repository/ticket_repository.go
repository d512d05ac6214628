package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var (
	// ErrNotFound is returned when no ticket matches the given id.
	ErrNotFound = errors.New("ticket not found")
	// ErrVersionConflict is returned when the ticket changed since it was read.
	ErrVersionConflict = errors.New("ticket was modified concurrently")
)

// TicketFilter captures dashboard search parameters.
type TicketFilter struct {
	Statuses   []domain.TicketStatus
	Platform   *domain.Platform
	PIC        *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// Update writes the mutable fields, UpdatedAt included, when the stored
	// version still equals ticket.Version, then advances ticket.Version.
	Update(ctx context.Context, ticket *domain.Ticket) error
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error)
	CountByStatus(ctx context.Context) (map[domain.TicketStatus]int64, error)
}

type ticketDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	TicketCode   string             `bson:"ticketCode"`
	Status       string             `bson:"status"`
	Platform     string             `bson:"platform"`
	ChatID       string             `bson:"chatId"`
	MessageID    string             `bson:"messageId"`
	ReporterName string             `bson:"reporterName,omitempty"`
	Description  string             `bson:"description,omitempty"`
	Category     string             `bson:"category,omitempty"`
	PIC          string             `bson:"pic,omitempty"`
	Replies      []replyDocument    `bson:"replies,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
	CompletedAt  *time.Time         `bson:"completedAt"`
	Version      int64              `bson:"version"`
}

type replyDocument struct {
	ID        string    `bson:"id"`
	Author    string    `bson:"author"`
	Message   string    `bson:"message"`
	Delivered bool      `bson:"delivered"`
	CreatedAt time.Time `bson:"createdAt"`
}

type ticketRepository struct {
	coll *mongo.Collection
}

// NewTicketRepository returns a MongoDB-backed implementation.
func NewTicketRepository(coll *mongo.Collection) TicketRepository {
	return &ticketRepository{coll: coll}
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc ticketDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	oid, err := primitive.ObjectIDFromHex(ticket.ID)
	if err != nil {
		return ErrNotFound
	}

	filter := bson.M{"_id": oid, "version": ticket.Version}
	if ticket.Version == 0 {
		// documents written by the bots carry no version field yet
		filter = bson.M{"_id": oid, "$or": bson.A{
			bson.M{"version": bson.M{"$exists": false}},
			bson.M{"version": 0},
		}}
	}

	updatedAt := ticket.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	update := bson.M{"$set": bson.M{
		"status":      string(ticket.Status),
		"completedAt": ticket.CompletedAt,
		"pic":         ticket.PIC,
		"replies":     repliesToDocuments(ticket.Replies),
		"updatedAt":   updatedAt.UTC(),
		"version":     ticket.Version + 1,
	}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		count, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	ticket.Version++
	ticket.UpdatedAt = updatedAt
	return nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error) {
	query := bson.M{}
	if len(filter.Statuses) > 0 {
		patterns := make(bson.A, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			patterns = append(patterns, exactFold(string(status)))
		}
		query["status"] = bson.M{"$in": patterns}
	}
	if filter.Platform != nil {
		query["platform"] = exactFold(string(*filter.Platform))
	}
	if filter.PIC != nil {
		query["pic"] = *filter.PIC
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(*filter.SearchTerm)), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"ticketCode": pattern},
			bson.M{"reporterName": pattern},
			bson.M{"description": pattern},
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	var docs []ticketDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}

	tickets := make([]domain.Ticket, 0, len(docs))
	for i := range docs {
		tickets = append(tickets, *docs[i].toDomain())
	}
	return tickets, total, nil
}

func (r *ticketRepository) CountByStatus(ctx context.Context) (map[domain.TicketStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$toLower", Value: "$status"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[domain.TicketStatus]int64, len(rows))
	for _, row := range rows {
		counts[domain.TicketStatus(row.Status)] += row.Count
	}
	return counts, nil
}

// exactFold matches a stored value case-insensitively.
func exactFold(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"}
}

func (d *ticketDocument) toDomain() *domain.Ticket {
	ticket := &domain.Ticket{
		ID:           d.ID.Hex(),
		TicketCode:   d.TicketCode,
		Status:       domain.TicketStatus(d.Status),
		Platform:     domain.Platform(d.Platform),
		ChatID:       d.ChatID,
		MessageID:    d.MessageID,
		ReporterName: d.ReporterName,
		Description:  d.Description,
		Category:     d.Category,
		PIC:          d.PIC,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		CompletedAt:  d.CompletedAt,
		Version:      d.Version,
	}
	for _, reply := range d.Replies {
		ticket.Replies = append(ticket.Replies, domain.TicketReply{
			ID:        reply.ID,
			Author:    reply.Author,
			Message:   reply.Message,
			Delivered: reply.Delivered,
			CreatedAt: reply.CreatedAt,
		})
	}
	return ticket
}

func repliesToDocuments(replies []domain.TicketReply) []replyDocument {
	docs := make([]replyDocument, 0, len(replies))
	for _, reply := range replies {
		docs = append(docs, replyDocument{
			ID:        reply.ID,
			Author:    reply.Author,
			Message:   reply.Message,
			Delivered: reply.Delivered,
			CreatedAt: reply.CreatedAt,
		})
	}
	return docs
}
