package message_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/message"
	dummydb "github.com/langhour/tracker/storage/database/dummy"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := message.NewService(dummydb.NewMessageRepository(dummydb.Open()))

	first, err := svc.Send(ctx, message.NewMessage{SenderID: "supe", RecipientID: "member", Content: "log your hours"})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, err := svc.Send(ctx, message.NewMessage{SenderID: "supe", RecipientID: "member", Content: "DLPT next month"})
	require.NoError(t, err)

	inbox, err := svc.Inbox(ctx, "member", false)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, second.ID, inbox[0].ID, "newest first")

	count, err := svc.UnreadCount(ctx, "member")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = svc.MarkRead(ctx, "supe", first.ID)
	assert.Equal(t, message.ErrNotRecipient, err)

	read, err := svc.MarkRead(ctx, "member", first.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	archived, err := svc.Archive(ctx, "member", second.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)

	count, err = svc.UnreadCount(ctx, "member")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	inbox, err = svc.Inbox(ctx, "member", false)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, first.ID, inbox[0].ID)

	inbox, err = svc.Inbox(ctx, "member", true)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, second.ID, inbox[0].ID)

	sent, err := svc.Outbox(ctx, "supe")
	require.NoError(t, err)
	assert.Len(t, sent, 2)

	_, err = svc.MarkRead(ctx, "member", "nope")
	assert.True(t, core.IsNotFound(err))
}

func TestNewMessage_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	nm := message.NewMessage{SenderID: "a", RecipientID: " b ", Content: " hi "}
	require.NoError(t, nm.Validate(validate))
	assert.Equal(t, "b", nm.RecipientID)
	assert.Equal(t, "hi", nm.Content)

	nm = message.NewMessage{SenderID: "a", RecipientID: "a", Content: "hi"}
	err := nm.Validate(validate)
	require.Error(t, err)
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, message.ErrSelfRecipient, vErr.Err)

	nm = message.NewMessage{SenderID: "a", RecipientID: "b"}
	assert.Error(t, nm.Validate(validate))
}
