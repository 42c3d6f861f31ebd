package importer

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"bitbucket.org/mmdatafocus/salesops_backend/models"
	"bitbucket.org/mmdatafocus/salesops_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type importJSONRequest struct {
	FileID   string `json:"fileId"`
	Filename string `json:"filename"`
	Payload  string `json:"payload" binding:"required"` // base64
}

// ImportHandler accepts a whole file, multipart or JSON/base64, and starts
// the import in the background. The response carries the fileId to poll.
func ImportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			fileID   string
			filename string
			data     []byte
		)

		if strings.HasPrefix(c.ContentType(), "multipart/") {
			file, header, err := c.Request.FormFile("file")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
				return
			}
			defer file.Close()
			data, err = io.ReadAll(file)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
				return
			}
			filename = header.Filename
			fileID = c.PostForm("fileId")
		} else {
			var req importJSONRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
			decoded, err := base64.StdEncoding.DecodeString(req.Payload)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "payload must be base64"})
				return
			}
			data = decoded
			filename = req.Filename
			fileID = req.FileID
		}

		if fileID == "" {
			fileID = uuid.NewString()
		}
		triggeredBy := requestUserName(c)

		go runImportDetached(fileID, filename, data, triggeredBy)

		c.JSON(http.StatusAccepted, gin.H{
			"fileId": fileID,
			"status": models.ImportStatusProcessing,
		})
	}
}

// ChunkHandler stores one chunk part; when the set completes, the import
// starts on the reassembled payload.
func ChunkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChunkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.ChunkIndex < 0 || req.ChunkIndex >= req.TotalChunks {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chunkIndex out of range"})
			return
		}

		complete, err := StoreChunk(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if !complete {
			c.JSON(http.StatusOK, gin.H{
				"fileId":   req.FileID,
				"received": req.ChunkIndex,
				"complete": false,
			})
			return
		}

		triggeredBy := requestUserName(c)
		filename := req.Filename
		fileID := req.FileID
		go func() {
			ctx := context.Background()
			logger := config.GetLogger()
			data, err := ReassembleChunks(ctx, fileID)
			if err != nil {
				config.LogError(logger, "handlers.go", "ChunkHandler", "reassembling chunks", fileID, err)
				failed := &models.ImportProgress{FileID: fileID, Status: models.ImportStatusFailed, Error: err.Error()}
				if serr := models.SaveImportProgress(ctx, failed); serr != nil {
					config.LogError(logger, "handlers.go", "ChunkHandler", "saving failed progress", fileID, serr)
				}
				return
			}
			runImportDetached(fileID, filename, data, triggeredBy)
		}()

		c.JSON(http.StatusAccepted, gin.H{
			"fileId":   fileID,
			"complete": true,
			"status":   models.ImportStatusProcessing,
		})
	}
}

// ProgressHandler serves the progress record for polling.
func ProgressHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fileID := c.Param("fileId")
		progress, err := models.GetImportProgress(c.Request.Context(), fileID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown fileId"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"fileId":     progress.FileID,
			"status":     progress.Status,
			"currentRow": progress.CurrentRow,
			"totalRows":  progress.TotalRows,
			"percentage": progress.Percentage,
			"stats":      progress.Stats(),
			"error":      progress.Error,
		})
	}
}

func runImportDetached(fileID, filename string, data []byte, triggeredBy string) {
	ctx := context.Background()
	logger := config.GetLogger()
	_, err := RunImport(ctx, ImportRequest{
		FileID:      fileID,
		Filename:    filename,
		Data:        data,
		TriggeredBy: triggeredBy,
	})
	if err != nil {
		config.LogError(logger, "handlers.go", "runImportDetached", "import run failed", fileID, err)
	}
}

func requestUserName(c *gin.Context) string {
	if name, ok := utils.GetUserNameFromContext(c.Request.Context()); ok && name != "" {
		return name
	}
	return "api"
}
