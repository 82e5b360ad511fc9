package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openskies/alpaca-console/internal/alpaca"
	"github.com/openskies/alpaca-console/internal/debayer"
	"github.com/openskies/alpaca-console/internal/models"
	"github.com/openskies/alpaca-console/internal/pipeline"
	"github.com/openskies/alpaca-console/internal/store"
	"github.com/openskies/alpaca-console/pkg/healthcheck"
)

// errorStatus maps a classified device error to an HTTP status.
func errorStatus(err error) int {
	switch alpaca.KindOf(err) {
	case alpaca.ErrorTimeout:
		return http.StatusGatewayTimeout
	case alpaca.ErrorNetwork:
		return http.StatusBadGateway
	case alpaca.ErrorServer:
		return http.StatusBadGateway
	case alpaca.ErrorDevice:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	result := s.health.CheckAll(c.Request.Context())

	status := http.StatusOK
	if result.OverallStatus == healthcheck.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}

func (s *Server) handleListDevices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"devices": s.controller.ListDevices()})
}

type addDeviceRequest struct {
	Name           string `json:"name" binding:"required"`
	Type           string `json:"type" binding:"required"`
	DeviceNumber   int    `json:"device_number"`
	APIBaseURL     string `json:"api_base_url"`
	PollIntervalMS int    `json:"poll_interval_ms"`
}

func (s *Server) handleAddDevice(c *gin.Context) {
	var req addDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deviceType, err := models.ParseDeviceType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device := &models.Device{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Type:         deviceType,
		DeviceNumber: req.DeviceNumber,
		APIBaseURL:   req.APIBaseURL,
		PollInterval: time.Duration(req.PollIntervalMS) * time.Millisecond,
	}

	if err := s.controller.AddDevice(device); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	if s.store != nil {
		if err := s.store.SaveDevice(store.RecordFromDevice(device)); err != nil {
			s.logger.Error("Failed to persist device", zap.String("device_id", device.ID), zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, s.controller.Snapshot(device.ID))
}

func (s *Server) handleGetDevice(c *gin.Context) {
	device := s.controller.Snapshot(c.Param("id"))
	if device == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	c.JSON(http.StatusOK, device)
}

func (s *Server) handleRemoveDevice(c *gin.Context) {
	id := c.Param("id")
	if err := s.controller.RemoveDevice(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if s.store != nil {
		if err := s.store.DeleteDevice(id); err != nil {
			s.logger.Error("Failed to delete persisted device", zap.String("device_id", id), zap.Error(err))
		}
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) handleConnect(c *gin.Context) {
	id := c.Param("id")
	if err := s.controller.Connect(c.Request.Context(), id); err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.controller.Snapshot(id))
}

func (s *Server) handleDisconnect(c *gin.Context) {
	id := c.Param("id")
	if err := s.controller.Disconnect(c.Request.Context(), id); err != nil {
		// Local state is already cleared; report the device-side failure
		// alongside the snapshot.
		c.JSON(errorStatus(err), gin.H{
			"error":  err.Error(),
			"device": s.controller.Snapshot(id),
		})
		return
	}
	c.JSON(http.StatusOK, s.controller.Snapshot(id))
}

func (s *Server) handleCallMethod(c *gin.Context) {
	params := make(map[string]interface{})
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := s.controller.CallDeviceMethod(c.Request.Context(), c.Param("id"), c.Param("method"), params)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"value": result})
}

type refreshRequest struct {
	Names []string `json:"names" binding:"required"`
}

func (s *Server) handleRefreshProperties(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	if err := s.controller.FetchDeviceProperties(c.Request.Context(), id, req.Names); err != nil {
		c.JSON(errorStatus(err), gin.H{
			"error":  err.Error(),
			"device": s.controller.Snapshot(id),
		})
		return
	}
	c.JSON(http.StatusOK, s.controller.Snapshot(id))
}

func (s *Server) handleStartPolling(c *gin.Context) {
	if err := s.controller.StartPolling(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) handleStopPolling(c *gin.Context) {
	if err := s.controller.StopPolling(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

// imageResponse summarizes a decoded exposure. Pixel payloads stay server
// side; clients fetch the rendered form separately if they need it.
type imageResponse struct {
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Channels       int     `json:"channels"`
	ImageType      string  `json:"image_type"`
	IsDebayered    bool    `json:"is_debayered"`
	BitsPerPixel   int     `json:"bits_per_pixel"`
	MinPixelValue  uint32  `json:"min_pixel_value"`
	MaxPixelValue  uint32  `json:"max_pixel_value"`
	MeanPixelValue float64 `json:"mean_pixel_value"`
}

func imageSummary(img *pipeline.ProcessedImageData) imageResponse {
	return imageResponse{
		Width:          img.Width,
		Height:         img.Height,
		Channels:       img.Channels,
		ImageType:      string(img.ImageType),
		IsDebayered:    img.IsDebayered,
		BitsPerPixel:   img.BitsPerPixel,
		MinPixelValue:  img.MinPixelValue,
		MaxPixelValue:  img.MaxPixelValue,
		MeanPixelValue: img.MeanPixelValue,
	}
}

// patternFromQuery reads the optional ?pattern= parameter. The zero pattern
// means no debayering.
func patternFromQuery(c *gin.Context) (debayer.Pattern, bool) {
	raw := c.Query("pattern")
	if raw == "" {
		return "", true
	}
	p, err := debayer.ParsePattern(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return p, true
}

func (s *Server) handleDownloadImage(c *gin.Context) {
	id := c.Param("id")

	pattern, ok := patternFromQuery(c)
	if !ok {
		return
	}

	transport, err := s.controller.Transport(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	camera := alpaca.Camera{Transport: transport}
	buf, err := camera.DownloadImage(c.Request.Context())
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	img, err := pipeline.Decode(buf, pattern)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, imageSummary(img))
}

// handleRenderImage downloads the current exposure and returns it as raw
// 8-bit RGBA rows, linearly stretched, for direct display.
func (s *Server) handleRenderImage(c *gin.Context) {
	id := c.Param("id")

	pattern, ok := patternFromQuery(c)
	if !ok {
		return
	}

	transport, err := s.controller.Transport(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	camera := alpaca.Camera{Transport: transport}
	buf, err := camera.DownloadImage(c.Request.Context())
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}

	img, err := pipeline.Decode(buf, pattern)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	rgba := pipeline.RenderDisplay(img, pipeline.LinearLUT(img.BitsPerPixel))
	c.Header("X-Image-Width", strconv.Itoa(img.Width))
	c.Header("X-Image-Height", strconv.Itoa(img.Height))
	c.Data(http.StatusOK, "application/octet-stream", rgba)
}

// handleDecodeImage decodes an ImageBytes payload posted by the client, for
// inspecting saved exposures without a connected camera.
func (s *Server) handleDecodeImage(c *gin.Context) {
	pattern, ok := patternFromQuery(c)
	if !ok {
		return
	}

	buf, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	img, err := pipeline.Decode(buf, pattern)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, imageSummary(img))
}
