package simapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/llmsimlab/simcore/internal/audit"
	"github.com/llmsimlab/simcore/internal/metricsstream"
	"github.com/llmsimlab/simcore/internal/simerrors"
)

// MetricsSnapshot implements GET /v1/management/metrics, a dashboard-
// friendly JSON snapshot of the in-memory sliding-window metrics (the
// /metrics/prometheus path serves the same data in Prometheus
// exposition format via promhttp).
func (d *Deps) MetricsSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, d.Metrics.Snapshot())
}

// MetricsWS upgrades the connection and attaches it to the metrics
// broadcast hub. Filtering is negotiated over the socket itself via
// {type:"subscribe",filters:{...}} messages, not query parameters.
func (d *Deps) MetricsWS(hub *metricsstream.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := hub.ServeWS(c.Writer, c.Request); err != nil {
			writeSimError(c, simerrors.New(simerrors.KindServerError, err.Error()))
		}
	}
}

// RateLimitStats implements GET /v1/management/rate-limit-stats.
func (d *Deps) RateLimitStats(c *gin.Context) {
	c.JSON(http.StatusOK, d.RateLimiter.Stats())
}

// ListAuditEntries implements GET /v1/management/audit: query params
// model, api_key_id, errors_only, min_latency_ms, limit filter the
// in-memory log.
func (d *Deps) ListAuditEntries(c *gin.Context) {
	filter := audit.Filter{
		Model:    c.Query("model"),
		APIKeyID: c.Query("api_key_id"),
	}
	if c.Query("errors_only") == "true" {
		filter.ErrorsOnly = true
	}
	if v, err := strconv.ParseInt(c.Query("min_latency_ms"), 10, 64); err == nil {
		filter.MinLatencyMs = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = v
	}
	c.JSON(http.StatusOK, d.Audit.GetEntries(filter))
}

// AuditStats implements GET /v1/management/audit/stats.
func (d *Deps) AuditStats(c *gin.Context) {
	c.JSON(http.StatusOK, d.Audit.GetStats())
}

// ClearAudit implements DELETE /v1/management/audit.
func (d *Deps) ClearAudit(c *gin.Context) {
	d.Audit.Clear()
	c.Status(http.StatusNoContent)
}

// ExportAudit implements GET /v1/management/audit/export, streaming the
// full log back as a JSON array attachment.
func (d *Deps) ExportAudit(c *gin.Context) {
	data, err := d.Audit.Export()
	if err != nil {
		writeSimError(c, simerrors.New(simerrors.KindServerError, err.Error()))
		return
	}
	c.Header("Content-Disposition", "attachment; filename=audit-export.json")
	c.Data(http.StatusOK, "application/json", data)
}

// uploadFileRequest is a minimal stand-in for a multipart /v1/files
// upload: the content itself is never stored, only its declared size.
type uploadFileRequest struct {
	Filename string `form:"filename"`
	Purpose  string `form:"purpose"`
}

// CreateFile implements POST /v1/files.
func (d *Deps) CreateFile(c *gin.Context) {
	purpose := c.PostForm("purpose")
	var filename string
	var size int64
	if fh, err := c.FormFile("file"); err == nil {
		filename = fh.Filename
		size = fh.Size
	}
	if filename == "" {
		filename = "upload.bin"
	}

	obj := FileObject{
		ID:        "file-" + uuid.NewString(),
		Object:    "file",
		Filename:  filename,
		Purpose:   purpose,
		Bytes:     size,
		CreatedAt: time.Now().Unix(),
	}
	d.Files.Put(obj.ID, obj)
	c.JSON(http.StatusOK, obj)
}

// ListFiles implements GET /v1/files.
func (d *Deps) ListFiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": d.Files.List()})
}

// GetFile implements GET /v1/files/:id.
func (d *Deps) GetFile(c *gin.Context) {
	obj, ok := d.Files.Get(c.Param("id"))
	if !ok {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, "file not found"))
		return
	}
	c.JSON(http.StatusOK, obj)
}

// DeleteFile implements DELETE /v1/files/:id.
func (d *Deps) DeleteFile(c *gin.Context) {
	id := c.Param("id")
	deleted := d.Files.Delete(id)
	c.JSON(http.StatusOK, gin.H{"id": id, "object": "file", "deleted": deleted})
}

type createBatchRequest struct {
	Endpoint string `json:"endpoint"`
	InputFileID string `json:"input_file_id"`
}

// CreateBatch implements POST /v1/batches. The batch is marked completed
// immediately: there is no real job queue behind it, only the object
// shape clients expect to poll.
func (d *Deps) CreateBatch(c *gin.Context) {
	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, err.Error()))
		return
	}

	now := time.Now().Unix()
	obj := BatchObject{
		ID:          "batch-" + uuid.NewString(),
		Object:      "batch",
		Endpoint:    req.Endpoint,
		Status:      "completed",
		CreatedAt:   now,
		CompletedAt: now,
	}
	obj.RequestCounts.Total = 1
	obj.RequestCounts.Completed = 1
	d.Batches.Put(obj.ID, obj)
	c.JSON(http.StatusOK, obj)
}

// ListBatches implements GET /v1/batches.
func (d *Deps) ListBatches(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"object": "list", "data": d.Batches.List()})
}

// GetBatch implements GET /v1/batches/:id.
func (d *Deps) GetBatch(c *gin.Context) {
	obj, ok := d.Batches.Get(c.Param("id"))
	if !ok {
		writeSimError(c, simerrors.New(simerrors.KindInvalidRequest, "batch not found"))
		return
	}
	c.JSON(http.StatusOK, obj)
}
