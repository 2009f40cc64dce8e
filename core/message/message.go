package message

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("message")
	ErrNotRecipient  = errors.New("only the recipient can update a message")
	ErrSelfRecipient = errors.New("cannot send a message to yourself")
)

// Message is a short note between two users, e.g. a supervisor and a member.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	Read        bool      `json:"read"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewMessage struct {
	SenderID    string `json:"-"`
	RecipientID string `json:"recipient_id" validate:"required"`
	Content     string `json:"content" validate:"required,max=255"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.RecipientID = core.CleanString(nm.RecipientID)
	nm.Content = core.CleanString(nm.Content)
	if err := validate.Struct(nm); err != nil {
		return err
	}
	if nm.RecipientID == nm.SenderID {
		return core.NewValidationError(ErrSelfRecipient, core.FieldError{Field: "recipient_id", Error: ErrSelfRecipient.Error()})
	}
	return nil
}

type QueryFilter struct {
	SenderID    string
	RecipientID string
	Archived    *bool
	Unread      bool
}

func (qf *QueryFilter) Match(m Message) bool {
	if qf.SenderID != "" && m.SenderID != qf.SenderID {
		return false
	}
	if qf.RecipientID != "" && m.RecipientID != qf.RecipientID {
		return false
	}
	if qf.Archived != nil && m.Archived != *qf.Archived {
		return false
	}
	if qf.Unread && m.Read {
		return false
	}
	return true
}

type (
	Repository interface {
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		GetMessage(ctx context.Context, id string) (Message, error)
		// QueryMessages returns matching messages, newest first.
		QueryMessages(ctx context.Context, filter QueryFilter) ([]Message, error)
		UpdateMessage(ctx context.Context, msg Message) (Message, error)
		CountMessages(ctx context.Context, filter QueryFilter) (int, error)
	}

	Service interface {
		Send(ctx context.Context, nm NewMessage) (Message, error)
		Get(ctx context.Context, id string) (Message, error)
		// Inbox lists userID's received messages; archived ones only when archived is set.
		Inbox(ctx context.Context, userID string, archived bool) ([]Message, error)
		Outbox(ctx context.Context, userID string) ([]Message, error)
		MarkRead(ctx context.Context, userID, id string) (Message, error)
		Archive(ctx context.Context, userID, id string) (Message, error)
		UnreadCount(ctx context.Context, userID string) (int, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Send(ctx context.Context, nm NewMessage) (Message, error) {
	return svc.repo.CreateMessage(ctx, Message{
		ID:          uuid.NewString(),
		SenderID:    nm.SenderID,
		RecipientID: nm.RecipientID,
		Content:     nm.Content,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *service) Get(ctx context.Context, id string) (Message, error) {
	return svc.repo.GetMessage(ctx, id)
}

func (svc *service) Inbox(ctx context.Context, userID string, archived bool) ([]Message, error) {
	return svc.repo.QueryMessages(ctx, QueryFilter{RecipientID: userID, Archived: &archived})
}

func (svc *service) Outbox(ctx context.Context, userID string) ([]Message, error) {
	return svc.repo.QueryMessages(ctx, QueryFilter{SenderID: userID})
}

func (svc *service) MarkRead(ctx context.Context, userID, id string) (Message, error) {
	return svc.update(ctx, userID, id, func(msg *Message) { msg.Read = true })
}

func (svc *service) Archive(ctx context.Context, userID, id string) (Message, error) {
	return svc.update(ctx, userID, id, func(msg *Message) {
		msg.Read = true
		msg.Archived = true
	})
}

func (svc *service) update(ctx context.Context, userID, id string, change func(msg *Message)) (Message, error) {
	msg, err := svc.repo.GetMessage(ctx, id)
	if err != nil {
		return Message{}, err
	}
	if msg.RecipientID != userID {
		return Message{}, ErrNotRecipient
	}
	change(&msg)
	return svc.repo.UpdateMessage(ctx, msg)
}

func (svc *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	archived := false
	return svc.repo.CountMessages(ctx, QueryFilter{RecipientID: userID, Archived: &archived, Unread: true})
}
