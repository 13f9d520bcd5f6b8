package server

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"contractiq/internal/controller"
	"contractiq/internal/database"
	"contractiq/internal/model"
)

// ContractSummary is the list-view projection of a job record
type ContractSummary struct {
	ID        string          `json:"id"`
	Filename  string          `json:"filename"`
	Status    model.JobStatus `json:"status"`
	Progress  int             `json:"progress"`
	Score     float64         `json:"score"`
	Customer  string          `json:"customer,omitempty"`
	Vendor    string          `json:"vendor,omitempty"`
	CreatedAt string          `json:"created_at"`
}

// UploadContractHandler admits a contract PDF and responds 202 with the
// job id for polling.
func (s *Server) UploadContractHandler(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field: " + err.Error()})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file: " + err.Error()})
		return
	}
	defer src.Close()

	job, err := s.cc.Upload(c.Request.Context(), file.Filename, file.Header.Get("Content-Type"), file.Size, src)
	if err != nil {
		switch {
		case errors.Is(err, controller.ErrFileTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		case errors.Is(err, controller.ErrUnsupportedType):
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		case errors.Is(err, controller.ErrEmptyFile):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Error().Err(err).Str("filename", file.Filename).Msg("Upload failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to admit contract"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":         job.ID,
		"status":     job.Status,
		"created_at": job.CreatedAt,
	})
}

// ContractStatusHandler serves the lightweight polling endpoint
func (s *Server) ContractStatusHandler(c *gin.Context) {
	snap, err := s.cc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "contract not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get status"})
		return
	}

	c.JSON(http.StatusOK, snap)
}

// GetContractHandler returns the full record. In-flight jobs respond 202
// so clients can distinguish "still working" from "done" by status code.
func (s *Server) GetContractHandler(c *gin.Context) {
	job, err := s.cc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "contract not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get contract"})
		return
	}

	status := http.StatusOK
	if !job.Status.Terminal() {
		status = http.StatusAccepted
	}
	c.JSON(status, job)
}

// ListContractsHandler returns a filtered, paginated list
func (s *Server) ListContractsHandler(c *gin.Context) {
	filter := database.JobFilter{
		Status:   model.JobStatus(c.Query("status")),
		Search:   c.Query("search"),
		SortBy:   c.Query("sort_by"),
		SortDesc: c.Query("sort_desc") != "false",
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if v := c.Query("min_score"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MinScore = &f
		}
	}
	if v := c.Query("max_score"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxScore = &f
		}
	}

	jobs, total, err := s.cc.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list contracts"})
		return
	}

	summaries := make([]ContractSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, convertToSummary(job))
	}

	c.JSON(http.StatusOK, gin.H{
		"contracts": summaries,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

// CancelContractHandler flags a job for cancellation
func (s *Server) CancelContractHandler(c *gin.Context) {
	id := c.Param("id")

	err := s.cc.Cancel(c.Request.Context(), id)
	if err == nil {
		c.JSON(http.StatusAccepted, gin.H{"id": id, "cancel_requested": true})
		return
	}
	if !errors.Is(err, database.ErrJobNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel contract"})
		return
	}

	// Distinguish an unknown id from a job that already finished
	job, getErr := s.cc.Get(c.Request.Context(), id)
	if getErr == nil && job.Status.Terminal() {
		c.JSON(http.StatusConflict, gin.H{"error": "contract processing already finished", "status": job.Status})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "contract not found"})
}

// DownloadContractHandler streams back the original uploaded document
func (s *Server) DownloadContractHandler(c *gin.Context) {
	doc, filename, err := s.cc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "contract not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to download contract"})
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, "application/pdf", doc)
}

// ContractStatsHandler returns job counts per status
func (s *Server) ContractStatsHandler(c *gin.Context) {
	stats, err := s.cc.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func convertToSummary(job *model.JobRecord) ContractSummary {
	summary := ContractSummary{
		ID:        job.ID,
		Filename:  job.Filename,
		Status:    job.Status,
		Progress:  job.Progress,
		Score:     job.Score,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
	}
	if job.ContractData != nil {
		if job.ContractData.Customer != nil {
			summary.Customer = job.ContractData.Customer.Name
		}
		if job.ContractData.Vendor != nil {
			summary.Vendor = job.ContractData.Vendor.Name
		}
	}
	return summary
}
