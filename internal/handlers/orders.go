package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/events"
	"storefront/internal/logger"
	"storefront/internal/models"
)

type changeStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

func orderNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Order not found!!", apperr.OrderNotFound)
	}
	return err
}

func invalidStatus() error {
	return apperr.Unprocessable("Unprocessable entity", []apperr.FieldError{{
		Field: "status", Rule: "oneof",
		Param: strings.Join([]string{
			string(models.OrderPending), string(models.OrderAccepted), string(models.OrderOutForDelivery),
			string(models.OrderDelivered), string(models.OrderCancelled),
		}, " "),
	}})
}

// visibleOrder scopes q to orders the caller may act on: their own, or any for admins.
func visibleOrder(q *gorm.DB, me *models.User) *gorm.DB {
	if me.Role.IsAdmin() {
		return q
	}
	return q.Where("user_id = ?", me.ID)
}

// publish is best-effort; the database is the source of truth.
func (h *Handler) publish(c *gin.Context, o *models.Order) {
	if err := h.events.Publish(c.Request.Context(), events.FromOrder(o, h.now())); err != nil {
		logger.For(c, h.log).Warn("failed to publish order event",
			zap.Uint("order_id", o.ID), zap.String("status", string(o.Status)), zap.Error(err))
	}
}

// setStatus moves order id to status and appends the matching event, inside tx.
func setStatus(tx *gorm.DB, o *models.Order, status models.OrderStatus) error {
	if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).Update("status", status).Error; err != nil {
		return err
	}
	if err := tx.Create(&models.OrderEvent{OrderID: o.ID, Status: status}).Error; err != nil {
		return err
	}
	o.Status = status
	return nil
}

// CreateOrder turns the caller's cart into an order in one transaction:
// total the cart, snapshot the default shipping address, write the order with
// its products and first event, then empty the cart.
func (h *Handler) CreateOrder(c *gin.Context) {
	me := user(c)

	var order models.Order
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := tx.Preload("Product").Where("user_id = ?", me.ID).Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return apperr.BadRequest("Cart is empty", apperr.CartEmpty)
		}

		total, err := cartAmount(items)
		if err != nil {
			return err
		}

		if me.DefaultShippingAddress == nil {
			return apperr.BadRequest("No default shipping address", apperr.NoShippingAddress)
		}
		var addr models.Address
		if err := tx.Where("id = ? AND user_id = ?", *me.DefaultShippingAddress, me.ID).First(&addr).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.BadRequest("No default shipping address", apperr.NoShippingAddress)
			}
			return err
		}

		order = models.Order{
			UserID:    me.ID,
			NetAmount: total,
			Address:   addr.Format(),
			Status:    models.OrderPending,
		}
		for _, it := range items {
			order.Products = append(order.Products, models.OrderProduct{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		event := models.OrderEvent{OrderID: order.ID, Status: models.OrderPending}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		order.Events = []models.OrderEvent{event}

		return tx.Where("user_id = ?", me.ID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		fail(c, err)
		return
	}

	logger.For(c, h.log).Info("order placed", zap.Uint("order_id", order.ID), zap.String("net_amount", order.NetAmount.String()))
	h.publish(c, &order)
	c.JSON(http.StatusOK, order)
}

func (h *Handler) ListOrders(c *gin.Context) {
	orders := []models.Order{}
	if err := h.db.WithContext(c.Request.Context()).Where("user_id = ?", user(c).ID).
		Order("id desc").Find(&orders).Error; err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// CancelOrder cancels one of the caller's orders (admins: any) unless it is
// already delivered or cancelled.
func (h *Handler) CancelOrder(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	me := user(c)

	var order models.Order
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := visibleOrder(tx.Where("id = ?", id), me).First(&order).Error; err != nil {
			return orderNotFound(err)
		}
		if !order.Status.Cancellable() {
			return apperr.BadRequest("Order can no longer be cancelled", apperr.OrderNotCancellable)
		}
		return setStatus(tx, &order, models.OrderCancelled)
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, &order)
	c.JSON(http.StatusOK, order)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	db := h.db.WithContext(c.Request.Context())

	var order models.Order
	q := db.Preload("Products").Preload("Events", func(tx *gorm.DB) *gorm.DB { return tx.Order("id asc") }).Where("id = ?", id)
	if err := visibleOrder(q, user(c)).First(&order).Error; err != nil {
		fail(c, orderNotFound(err))
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListAllOrders pages through every order, optionally filtered by ?status=.
func (h *Handler) ListAllOrders(c *gin.Context) {
	h.listOrders(c, 0)
}

// ListUserOrders pages through user :id's orders, optionally filtered by ?status=.
func (h *Handler) ListUserOrders(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	h.listOrders(c, id)
}

func (h *Handler) listOrders(c *gin.Context, userID uint) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Order{})
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if s := c.Query("status"); s != "" {
		status := models.OrderStatus(strings.ToUpper(s))
		if !status.Valid() {
			fail(c, invalidStatus())
			return
		}
		q = q.Where("status = ?", status)
	}

	orders := []models.Order{}
	if err := q.Order("id desc").Offset(skip(c)).Limit(h.pageSize).Find(&orders).Error; err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// ChangeOrderStatus sets any status and records it as an order event.
func (h *Handler) ChangeOrderStatus(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	status := models.OrderStatus(strings.ToUpper(string(req.Status)))
	if !status.Valid() {
		fail(c, invalidStatus())
		return
	}

	var order models.Order
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, id).Error; err != nil {
			return orderNotFound(err)
		}
		return setStatus(tx, &order, status)
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(c, &order)
	c.JSON(http.StatusOK, order)
}
