package commission

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"bitbucket.org/mmdatafocus/salesops_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var periodPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

type calculateRequest struct {
	Period string `json:"period" binding:"required"`
}

// CalculateHandler starts a period recompute in the background and returns
// the job id to poll.
func CalculateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req calculateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "period is required"})
			return
		}
		if !periodPattern.MatchString(req.Period) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "period must be YYYY-MM"})
			return
		}

		jobID := uuid.NewString()
		period := req.Period
		go func() {
			ctx := context.Background()
			if err := RunPeriod(ctx, period, jobID); err != nil {
				config.LogError(config.GetLogger(), "handlers.go", "CalculateHandler", "period recompute failed", period, err)
			}
		}()

		c.JSON(http.StatusAccepted, gin.H{
			"jobId":  jobID,
			"period": period,
			"status": models.ImportStatusProcessing,
		})
	}
}

// ProgressHandler serves the job record for polling.
func ProgressHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("jobId")
		job, err := models.GetCommissionJob(c.Request.Context(), jobID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown jobId"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

// SummaryHandler returns the per-rep rollups for a period.
func SummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		period := c.Param("period")
		if !periodPattern.MatchString(period) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "period must be YYYY-MM"})
			return
		}
		summaries, err := models.ListCommissionSummaries(c.Request.Context(), period)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"period": period, "summaries": summaries})
	}
}

// ExportHandler builds the diagnostic workbook and returns its download URL.
func ExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		period := c.Param("period")
		if !periodPattern.MatchString(period) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "period must be YYYY-MM"})
			return
		}
		url, err := ExportPeriodWorkbook(c.Request.Context(), period)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"period": period, "url": url})
	}
}
