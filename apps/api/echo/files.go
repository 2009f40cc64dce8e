package echoapi

import (
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core/file"
	"github.com/langhour/tracker/core/user"
)

type fileApi struct {
	svc    file.Service
	usrSvc user.Service
}

func registerFileAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := fileApi{svc: deps.FileSvc, usrSvc: deps.UserSvc}

	fg := g.Group("/files", jwt)
	fg.GET("", api.list)
	fg.POST("", api.upload)
	fg.GET("/:id", api.download)
	fg.DELETE("/:id", api.destroy)
}

func (api *fileApi) list(ctx echo.Context) error {
	subject, err := resolveSubject(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	files, err := api.svc.List(ctx.Request().Context(), subject.ID)
	if err != nil {
		return errors.Wrap(err, "listing files")
	}
	if files == nil {
		files = []file.File{}
	}
	return ctx.JSON(http.StatusOK, files)
}

// upload stores the multipart `file` field for the caller. Size limits are enforced by file.Service.
func (api *fileApi) upload(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	content, name, err := readUpload(ctx, 0)
	if err != nil {
		return err
	}
	f, err := api.svc.Upload(ctx.Request().Context(), ctxUsr.ID, name, content)
	if err != nil {
		return errors.Wrap(err, "uploading file")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *fileApi) download(ctx echo.Context) error {
	f, err := api.accessible(ctx, true)
	if err != nil {
		return err
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": f.Name})
	ctx.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	return ctx.Blob(http.StatusOK, f.ContentType, f.Content)
}

func (api *fileApi) destroy(ctx echo.Context) error {
	f, err := api.accessible(ctx, false)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), f.ID); err != nil {
		return errors.Wrap(err, "deleting file")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// accessible loads the `:id` file, hiding files the caller may not see behind a not found.
func (api *fileApi) accessible(ctx echo.Context, withContent bool) (file.File, error) {
	rctx := ctx.Request().Context()
	get := api.svc.Get
	if withContent {
		get = api.svc.Download
	}
	f, err := get(rctx, ctx.Param("id"))
	if err != nil {
		return file.File{}, errors.Wrap(err, "getting file")
	}
	ok, err := canAccess(ctx, api.usrSvc, f.UserID)
	if err != nil {
		return file.File{}, err
	}
	if !ok {
		return file.File{}, file.ErrNotFound
	}
	return f, nil
}
