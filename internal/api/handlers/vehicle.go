package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/visutech/vims/internal/models"
	"github.com/visutech/vims/internal/repository"
	"github.com/visutech/vims/internal/service"
)

// createVehicleRequest 创建车辆请求体
type createVehicleRequest struct {
	LicensePlate     string `json:"license_plate" binding:"required"`
	Category         string `json:"category" binding:"required"`
	VehicleType      string `json:"vehicle_type" binding:"required"`
	CustomerName     string `json:"customer_name" binding:"required"`
	CustomerPhone    string `json:"customer_phone" binding:"required"`
	CustomerEmail    string `json:"customer_email" binding:"required"`
	CustomerWhatsApp string `json:"customer_whatsapp"`
}

// CreateVehicle 创建车辆
// POST /api/vehicles
func (h *Handler) CreateVehicle(c *gin.Context) {
	var req createVehicleRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	// 车牌唯一
	if _, err := h.vehicleRepo.GetByPlate(c.Request.Context(), req.LicensePlate); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vehicle with this license plate already exists"})
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		h.logger.Error("Failed to check license plate", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create vehicle"})
		return
	}

	vehicle := &models.Vehicle{
		LicensePlate:     req.LicensePlate,
		Category:         req.Category,
		VehicleType:      req.VehicleType,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		CustomerEmail:    req.CustomerEmail,
		CustomerWhatsApp: req.CustomerWhatsApp,
	}
	if err := h.vehicleRepo.Create(c.Request.Context(), vehicle); err != nil {
		// 预检和插入之间有并发窗口，唯一约束兜底
		if errors.Is(err, repository.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Vehicle with this license plate already exists"})
			return
		}
		h.logger.Error("Failed to create vehicle", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create vehicle"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": vehicle})
}

// ListVehicles 获取车辆列表（支持车牌检索）
// GET /api/vehicles?search=
func (h *Handler) ListVehicles(c *gin.Context) {
	vehicles, err := h.vehicleRepo.Search(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.logger.Error("Failed to list vehicles", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list vehicles"})
		return
	}
	if vehicles == nil {
		vehicles = []*models.Vehicle{}
	}

	c.JSON(http.StatusOK, gin.H{"data": vehicles})
}

// GetVehicle 获取车辆详情
// GET /api/vehicles/:id
func (h *Handler) GetVehicle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle ID"})
		return
	}

	vehicle, err := h.vehicleRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vehicle})
}

// updateVehicleCustomerRequest 更新车主联系信息请求体
type updateVehicleCustomerRequest struct {
	CustomerName     string `json:"customer_name" binding:"required"`
	CustomerPhone    string `json:"customer_phone" binding:"required"`
	CustomerEmail    string `json:"customer_email" binding:"required"`
	CustomerWhatsApp string `json:"customer_whatsapp"`
}

// UpdateVehicleCustomer 更新车主联系信息
// PUT /api/vehicles/:id
// 车牌和车辆属性不可改，改错车牌等于丢失整条检测历史。
func (h *Handler) UpdateVehicleCustomer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle ID"})
		return
	}

	var req updateVehicleCustomerRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	vehicle, err := h.vehicleRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return
	}

	vehicle.CustomerName = req.CustomerName
	vehicle.CustomerPhone = req.CustomerPhone
	vehicle.CustomerEmail = req.CustomerEmail
	vehicle.CustomerWhatsApp = req.CustomerWhatsApp

	if err := h.vehicleRepo.UpdateCustomer(c.Request.Context(), vehicle); err != nil {
		h.logger.Error("Failed to update vehicle", zap.Error(err), zap.Int64("vehicle_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update vehicle"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vehicle})
}

// ListVehicleInspections 获取车辆检测历史
// GET /api/vehicles/:id/inspections
func (h *Handler) ListVehicleInspections(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle ID"})
		return
	}

	inspections, err := h.inspectionRepo.ListByVehicleID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list inspections", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list inspections"})
		return
	}
	if inspections == nil {
		inspections = []*models.Inspection{}
	}

	c.JSON(http.StatusOK, gin.H{"data": inspections})
}

// SendManualReminder 手动给一辆车发送到期提醒
// POST /api/vehicles/:id/remind
// 任一渠道成功即算成功；没有有效检测历史返回 400。
func (h *Handler) SendManualReminder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle ID"})
		return
	}

	result, err := h.reminderService.SendReminder(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"message": "Manual reminder sent successfully.",
			"data":    result,
		})
	case errors.Is(err, service.ErrVehicleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
	case errors.Is(err, service.ErrNoInspectionHistory):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAllChannelsFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "data": result})
	default:
		h.logger.Error("Failed to send manual reminder", zap.Error(err), zap.Int64("vehicle_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send reminder"})
	}
}
