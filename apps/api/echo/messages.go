package echoapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/message"
	"github.com/langhour/tracker/core/user"
)

type messageApi struct {
	svc      message.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerMessageAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := messageApi{svc: deps.MessageSvc, usrSvc: deps.UserSvc, validate: deps.Validate}

	mg := g.Group("/messages", jwt)
	mg.GET("", api.inbox)
	mg.POST("", api.send)
	mg.GET("/sent", api.outbox)
	mg.GET("/unread-count", api.unreadCount)
	mg.POST("/:id/read", api.markRead)
	mg.POST("/:id/archive", api.archive)
}

// inbox lists received messages; `archived=true` lists the archived ones instead.
func (api *messageApi) inbox(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	archived, _ := strconv.ParseBool(ctx.QueryParam("archived"))
	msgs, err := api.svc.Inbox(ctx.Request().Context(), ctxUsr.ID, archived)
	if err != nil {
		return errors.Wrap(err, "querying inbox")
	}
	return ctx.JSON(http.StatusOK, nonNilMessages(msgs))
}

func (api *messageApi) outbox(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	msgs, err := api.svc.Outbox(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying outbox")
	}
	return ctx.JSON(http.StatusOK, nonNilMessages(msgs))
}

func (api *messageApi) send(ctx echo.Context) error {
	var data message.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	data.SenderID = ctxUsr.ID
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	recipient, err := api.usrSvc.GetByID(rctx, data.RecipientID)
	if err != nil || !recipient.IsActive {
		if err == nil || core.IsNotFound(err) {
			return core.NewValidationError(user.ErrNotFound, core.FieldError{Field: "recipient_id", Error: user.ErrNotFound.Error()})
		}
		return errors.Wrap(err, "finding recipient")
	}

	msg, err := api.svc.Send(rctx, data)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messageApi) markRead(ctx echo.Context) error {
	return api.change(ctx, api.svc.MarkRead)
}

func (api *messageApi) archive(ctx echo.Context) error {
	return api.change(ctx, api.svc.Archive)
}

func (api *messageApi) change(ctx echo.Context, fn func(c context.Context, userID, id string) (message.Message, error)) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	msg, err := fn(ctx.Request().Context(), ctxUsr.ID, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == message.ErrNotRecipient {
			return errHttpForbidden
		}
		return errors.Wrap(err, "updating message")
	}
	return ctx.JSON(http.StatusOK, msg)
}

func (api *messageApi) unreadCount(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	n, err := api.svc.UnreadCount(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "counting unread messages")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

func nonNilMessages(msgs []message.Message) []message.Message {
	if msgs == nil {
		return []message.Message{}
	}
	return msgs
}
