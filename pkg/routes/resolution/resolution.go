// Package resolution exposes the resolution service over HTTP
package resolution

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/resolution"
	"github.com/Ramsey-B/clover/pkg/suggestions"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/validation"
)

// MergeRequest is the body of a merge call
type MergeRequest struct {
	KeepID  string `json:"keep_id" validate:"required"`
	MergeID string `json:"merge_id" validate:"required"`
}

// MergeAndApproveRequest folds a pending record into an approved one
type MergeAndApproveRequest struct {
	PendingID   string `json:"pending_id" validate:"required"`
	MergeIntoID string `json:"merge_into_id" validate:"required"`
}

// DismissRequest marks a candidate pair as distinct
type DismissRequest struct {
	IDA string `json:"id_a" validate:"required"`
	IDB string `json:"id_b" validate:"required"`
}

// BulkRequest carries the suggestion ids of a bulk review
type BulkRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// ScanJobRequest starts a background scan
type ScanJobRequest struct {
	Kind models.EntityKind `json:"kind" validate:"required,oneof=contact company"`
}

// CreateSuggestionResponse reports whether the suggestion was newly staged
type CreateSuggestionResponse struct {
	Suggestion *models.PendingSuggestion `json:"suggestion"`
	Created    bool                      `json:"created"`
}

// Handler serves the resolution endpoints
type Handler struct {
	service *resolution.Service
}

// NewHandler creates a new resolution handler
func NewHandler(service *resolution.Service) *Handler {
	return &Handler{service: service}
}

// Register registers the resolution routes under g (normally /api/v1)
func (h *Handler) Register(g *echo.Group) {
	dup := g.Group("/duplicates/:kind")
	dup.GET("/scan", h.ScanDuplicates)
	dup.POST("/merge", h.MergeEntities)
	dup.POST("/merge-and-approve", h.MergeAndApprove)
	dup.POST("/dismiss", h.DismissDuplicate)
	dup.GET("/:id", h.FindDuplicatesFor)

	sg := g.Group("/suggestions")
	sg.GET("", h.ListPendingSuggestions)
	sg.POST("", h.CreateSuggestion)
	sg.POST("/bulk-approve", h.BulkApprove)
	sg.POST("/bulk-reject", h.BulkReject)
	sg.POST("/:id/approve", h.ApproveSuggestion)
	sg.POST("/:id/reject", h.RejectSuggestion)

	jobs := g.Group("/scan-jobs")
	jobs.POST("", h.StartScanJob)
	jobs.GET("/:id", h.GetScanJob)
	jobs.POST("/:id/cancel", h.CancelScanJob)

	g.GET("/aliases/:id", h.ListAliases)
	g.DELETE("/aliases/:id", h.DeleteAlias)
	g.GET("/activity", h.ListActivity)
}

// ScanDuplicates handles GET /duplicates/:kind/scan
func (h *Handler) ScanDuplicates(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.ScanDuplicates")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}

	result, err := h.service.ScanDuplicates(ctx, orgID, kindParam(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// FindDuplicatesFor handles GET /duplicates/:kind/:id
func (h *Handler) FindDuplicatesFor(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.FindDuplicatesFor")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}

	candidates, err := h.service.FindDuplicatesFor(ctx, orgID, kindParam(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, candidates)
}

// MergeEntities handles POST /duplicates/:kind/merge
func (h *Handler) MergeEntities(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.MergeEntities")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}
	req, err := validation.BindRequest[MergeRequest](c)
	if err != nil {
		return err
	}

	summary, err := h.service.MergeEntities(ctx, kindParam(c), orgID, context.GetUserID(ctx), req.KeepID, req.MergeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// MergeAndApprove handles POST /duplicates/:kind/merge-and-approve
func (h *Handler) MergeAndApprove(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.MergeAndApprove")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}
	req, err := validation.BindRequest[MergeAndApproveRequest](c)
	if err != nil {
		return err
	}

	summary, err := h.service.MergeAndApprove(ctx, kindParam(c), orgID, context.GetUserID(ctx), req.PendingID, req.MergeIntoID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// DismissDuplicate handles POST /duplicates/:kind/dismiss
func (h *Handler) DismissDuplicate(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.DismissDuplicate")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}
	req, err := validation.BindRequest[DismissRequest](c)
	if err != nil {
		return err
	}

	result, err := h.service.DismissDuplicate(ctx, kindParam(c), orgID, context.GetUserID(ctx), req.IDA, req.IDB)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ListPendingSuggestions handles GET /suggestions
func (h *Handler) ListPendingSuggestions(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.ListPendingSuggestions")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}

	var filter models.SuggestionFilter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filter); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid suggestion filter")
	}

	views, err := h.service.ListPendingSuggestions(ctx, orgID, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views)
}

// CreateSuggestion handles POST /suggestions
func (h *Handler) CreateSuggestion(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.CreateSuggestion")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}
	req, err := validation.BindRequest[suggestions.CreateRequest](c)
	if err != nil {
		return err
	}

	sg, created, err := h.service.CreateSuggestion(ctx, orgID, req)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, CreateSuggestionResponse{Suggestion: sg, Created: created})
}

// ApproveSuggestion handles POST /suggestions/:id/approve
func (h *Handler) ApproveSuggestion(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.ApproveSuggestion")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}

	result, err := h.service.ApproveSuggestion(ctx, orgID, context.GetUserID(ctx), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// RejectSuggestion handles POST /suggestions/:id/reject
func (h *Handler) RejectSuggestion(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.RejectSuggestion")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}

	result, err := h.service.RejectSuggestion(ctx, orgID, context.GetUserID(ctx), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// BulkApprove handles POST /suggestions/bulk-approve
func (h *Handler) BulkApprove(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.BulkApprove")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}
	req, err := validation.BindRequest[BulkRequest](c)
	if err != nil {
		return err
	}

	result, err := h.service.BulkApprove(ctx, orgID, context.GetUserID(ctx), req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// BulkReject handles POST /suggestions/bulk-reject
func (h *Handler) BulkReject(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.BulkReject")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}
	req, err := validation.BindRequest[BulkRequest](c)
	if err != nil {
		return err
	}

	result, err := h.service.BulkReject(ctx, orgID, context.GetUserID(ctx), req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// StartScanJob handles POST /scan-jobs
func (h *Handler) StartScanJob(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.StartScanJob")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}
	req, err := validation.BindRequest[ScanJobRequest](c)
	if err != nil {
		return err
	}

	job, err := h.service.StartScanJob(ctx, orgID, context.GetUserID(ctx), req.Kind)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, job)
}

// GetScanJob handles GET /scan-jobs/:id
func (h *Handler) GetScanJob(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.GetScanJob")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}

	job, err := h.service.GetScanJob(ctx, orgID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

// CancelScanJob handles POST /scan-jobs/:id/cancel
func (h *Handler) CancelScanJob(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.CancelScanJob")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}

	if err := h.service.CancelScanJob(ctx, orgID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

// ListAliases handles GET /aliases/:id where id is the canonical entity
func (h *Handler) ListAliases(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.ListAliases")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}

	aliases, err := h.service.ListAliases(ctx, orgID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, aliases)
}

// DeleteAlias handles DELETE /aliases/:id
func (h *Handler) DeleteAlias(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.DeleteAlias")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteAlias(ctx, orgID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListActivity handles GET /activity
func (h *Handler) ListActivity(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ResolutionHandler.ListActivity")
	defer span.End()

	orgID, err := requireOrg(c)
	if err != nil {
		return err
	}

	filter := models.AuditFilter{
		EntityID: c.QueryParam("entity_id"),
		Action:   models.AuditAction(c.QueryParam("action")),
	}
	if err := echo.QueryParamsBinder(c).Int("limit", &filter.Limit).BindError(); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a number")
	}

	entries, err := h.service.ListActivity(ctx, orgID, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func requireOrg(c echo.Context) (string, error) {
	orgID := context.GetOrgID(c.Request().Context())
	if orgID == "" {
		return "", httperror.NewHTTPError(http.StatusUnauthorized, "org ID required")
	}
	return orgID, nil
}

func kindParam(c echo.Context) models.EntityKind {
	switch c.Param("kind") {
	case "contacts":
		return models.EntityKindContact
	case "companies":
		return models.EntityKindCompany
	}
	return models.EntityKind(c.Param("kind"))
}
