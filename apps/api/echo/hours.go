package echoapi

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
	"github.com/langhour/tracker/core/audit"
	"github.com/langhour/tracker/core/hours"
	"github.com/langhour/tracker/core/user"
	"github.com/langhour/tracker/storage/workbook"
)

const (
	monthLayout  = "2006-01"
	xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var errNoImportRows = errors.New("no valid rows to import")

type hoursApi struct {
	conf     *core.Config
	svc      hours.Service
	usrSvc   user.Service
	auditSvc audit.Service
	validate *validator.Validate
}

func registerHoursAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := hoursApi{
		conf:     deps.Conf,
		svc:      deps.HoursSvc,
		usrSvc:   deps.UserSvc,
		auditSvc: deps.AuditSvc,
		validate: deps.Validate,
	}

	hg := g.Group("/hours", jwt)
	hg.GET("", api.query)
	hg.POST("", api.create)
	hg.POST("/import", api.importBook)
	hg.GET("/export", api.exportBook)
	hg.GET("/summary", api.summary)
	hg.DELETE("/:id", api.destroy)
}

func (api *hoursApi) filter(ctx echo.Context) (hours.QueryFilter, error) {
	sc, err := resolveScope(ctx, api.usrSvc)
	if err != nil {
		return hours.QueryFilter{}, err
	}
	var dr DateRange
	if err = dr.Bind(ctx); err != nil {
		return hours.QueryFilter{}, err
	}
	filter := hours.QueryFilter{UserIDs: sc.UserIDs, From: dr.From, To: dr.To, Modality: ctx.QueryParam("modality")}
	filter.Clean()
	return filter, nil
}

func (api *hoursApi) query(ctx echo.Context) error {
	filter, err := api.filter(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying entries")
	}
	if entries == nil {
		entries = []hours.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *hoursApi) create(ctx echo.Context) error {
	var data hours.NewEntry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEntry")
	}
	owner, err := api.owner(ctx, data.UserID)
	if err != nil {
		return err
	}
	data.UserID = owner.ID
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	entry, err := api.svc.Log(rctx, data)
	if err != nil {
		return errors.Wrap(err, "logging hours")
	}
	api.recordFor(ctx, owner, "logged %d hours on %s", entry.Hours, entry.Date.Format(monthLayout+"-02"))
	return ctx.JSON(http.StatusCreated, entry)
}

// owner resolves who an entry is logged for: the caller, or a user they can see.
func (api *hoursApi) owner(ctx echo.Context, userID string) (user.User, error) {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context user")
	}
	userID = core.CleanString(userID)
	if userID == "" {
		userID = core.CleanString(ctx.QueryParam(userIDParam))
	}
	if userID == "" {
		return ctxUsr, nil
	}
	return visibleUser(ctx, api.usrSvc, ctxUsr, userID)
}

func (api *hoursApi) recordFor(ctx echo.Context, owner user.User, format string, args ...interface{}) {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return
	}
	if ctxUsr.ID != owner.ID {
		format += " for " + owner.Username
	}
	api.auditSvc.Record(ctx.Request().Context(), ctxUsr.ID, format, args...)
}

func (api *hoursApi) destroy(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	entry, err := api.svc.Get(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting entry")
	}
	ok, err := canAccess(ctx, api.usrSvc, entry.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return hours.ErrNotFound
	}
	if err = api.svc.Delete(rctx, entry.ID); err != nil {
		return errors.Wrap(err, "deleting entry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// importBook logs every valid row of an uploaded workbook; invalid rows are reported back.
func (api *hoursApi) importBook(ctx echo.Context) error {
	owner, err := api.owner(ctx, "")
	if err != nil {
		return err
	}
	content, _, err := readUpload(ctx, api.conf.MaxUploadSize)
	if err != nil {
		return err
	}

	res, err := workbook.Read(bytes.NewReader(content), ctx.FormValue("sheet"))
	if err != nil {
		return errors.Wrap(err, "reading workbook")
	}
	if len(res.Entries) == 0 {
		flds := make([]core.FieldError, 0, len(res.Errors))
		for _, re := range res.Errors {
			flds = append(flds, core.FieldError{Field: "row " + strconv.Itoa(re.Row), Error: re.Err})
		}
		return core.NewValidationError(errNoImportRows, flds...)
	}

	entries, err := api.svc.BulkLog(ctx.Request().Context(), owner.ID, res.Entries)
	if err != nil {
		return errors.Wrap(err, "logging imported hours")
	}
	api.recordFor(ctx, owner, "imported %d entries", len(entries))

	if res.Errors == nil {
		res.Errors = []workbook.RowError{}
	}
	return ctx.JSON(http.StatusCreated, ImportResponse{Imported: entries, Errors: res.Errors, Skipped: res.Skipped})
}

func (api *hoursApi) exportBook(ctx echo.Context) error {
	filter, err := api.filter(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying entries")
	}

	var buf bytes.Buffer
	if err = workbook.Write(&buf, entries); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="hours.xlsx"`)
	return ctx.Blob(http.StatusOK, xlsxMimeType, buf.Bytes())
}

// summary totals a member's hours for `month` (YYYY-MM, current month by default).
func (api *hoursApi) summary(ctx echo.Context) error {
	subject, err := resolveSubject(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	month := nowFunc().UTC()
	if raw := core.CleanString(ctx.QueryParam("month")); raw != "" {
		if month, err = time.Parse(monthLayout, raw); err != nil {
			return core.NewMalformedError(raw, errors.New("invalid month, expected YYYY-MM"))
		}
	}
	total, err := api.svc.MonthTotal(ctx.Request().Context(), subject.ID, month)
	if err != nil {
		return errors.Wrap(err, "totalling hours")
	}
	return ctx.JSON(http.StatusOK, SummaryResponse{UserID: subject.ID, Month: month.Format(monthLayout), Hours: total})
}

// readUpload reads the multipart `file` field, refusing anything over maxSize.
func readUpload(ctx echo.Context, maxSize int64) ([]byte, string, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return nil, "", core.NewValidationError(err, core.FieldError{Field: "file", Error: "file is required"})
	}
	src, err := fh.Open()
	if err != nil {
		return nil, "", errors.Wrap(err, "opening upload")
	}
	defer func() { _ = src.Close() }()

	rdr := io.Reader(src)
	if maxSize > 0 {
		rdr = io.LimitReader(src, maxSize+1)
	}
	content, err := io.ReadAll(rdr)
	if err != nil {
		return nil, "", errors.Wrap(err, "reading upload")
	}
	if maxSize > 0 && int64(len(content)) > maxSize {
		tooLarge := errors.Errorf("file too large (max %d bytes)", maxSize)
		return nil, "", core.NewValidationError(tooLarge, core.FieldError{Field: "file", Error: tooLarge.Error()})
	}
	return content, fh.Filename, nil
}

type (
	ImportResponse struct {
		Imported []hours.Entry       `json:"imported"`
		Errors   []workbook.RowError `json:"errors"`
		Skipped  int                 `json:"skipped"`
	}

	SummaryResponse struct {
		UserID string `json:"user_id"`
		Month  string `json:"month"`
		Hours  int    `json:"hours"`
	}
)
