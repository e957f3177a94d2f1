package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"gl-reconciler/internal/api/dto"
	"gl-reconciler/internal/domain"
	"gl-reconciler/internal/ingest"
	"gl-reconciler/internal/recon"
	"gl-reconciler/internal/report"
)

// ReconcileHandler runs reconciliations over uploaded extracts.
type ReconcileHandler struct {
	pipeline *recon.Pipeline
	cache    *recon.ReportCache
	logger   *slog.Logger
}

// NewReconcileHandler creates a reconcile handler. The cache may be nil.
func NewReconcileHandler(pipeline *recon.Pipeline, cache *recon.ReportCache, logger *slog.Logger) *ReconcileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileHandler{pipeline: pipeline, cache: cache, logger: logger}
}

// Handle accepts a multipart upload with two CSV parts, "excel" and "sql",
// reconciles them and returns the report. The format query parameter selects
// json (default) or csv output.
func (h *ReconcileHandler) Handle(c *gin.Context) {
	format, err := report.ParseFormat(c.DefaultQuery("format", "json"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	excel, apiErr := h.loadPart(c, "excel", domain.SourceExcel)
	if apiErr != nil {
		c.JSON(http.StatusBadRequest, *apiErr)
		return
	}
	sqlDS, apiErr := h.loadPart(c, "sql", domain.SourceSQL)
	if apiErr != nil {
		c.JSON(http.StatusBadRequest, *apiErr)
		return
	}

	rep, err := h.pipeline.Run(c.Request.Context(), excel, sqlDS)
	if err != nil {
		h.logger.Error("reconciliation failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	if format == report.FormatCSV {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=reconciliation-%s.csv", rep.Summary.RunID))
		if err := report.WriteCSV(c.Writer, rep); err != nil {
			h.logger.Error("csv export failed", "error", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h *ReconcileHandler) loadPart(c *gin.Context, field string, source domain.Source) (*domain.Dataset, *dto.APIError) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		e := dto.BadRequestError(fmt.Sprintf("missing %q file part", field))
		return nil, &e
	}

	file, err := fileHeader.Open()
	if err != nil {
		e := dto.BadRequestError(fmt.Sprintf("unreadable %q file part", field))
		return nil, &e
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	ds, err := ingest.LoadCSVReader(file, source)
	if err != nil {
		if errors.Is(err, ingest.ErrBadHeader) {
			e := dto.ValidationError(fmt.Sprintf("%s extract: %s", source, err.Error()))
			return nil, &e
		}
		e := dto.BadRequestError(fmt.Sprintf("%s extract: %s", source, err.Error()))
		return nil, &e
	}
	return ds, nil
}

// CacheStats reports the number of cached reports.
func (h *ReconcileHandler) CacheStats(c *gin.Context) {
	size := 0
	if h.cache != nil {
		size = h.cache.Size()
	}
	c.JSON(http.StatusOK, dto.CacheResponse{Entries: size})
}

// ClearCache drops all cached reports.
func (h *ReconcileHandler) ClearCache(c *gin.Context) {
	if h.cache != nil {
		h.cache.Clear()
	}
	c.JSON(http.StatusOK, dto.CacheResponse{Entries: 0})
}
