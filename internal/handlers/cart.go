package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/payments"
)

// maxQuantity caps a single cart line, including merged adds.
const maxQuantity = 10000

type addCartItemRequest struct {
	ProductID uint `json:"productId" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0,lte=10000"`
}

type changeQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0,lte=10000"`
}

var (
	hundred = decimal.NewFromInt(100)
	// maxAmount is the largest value a numeric(10,2) amount column holds.
	maxAmount = decimal.RequireFromString("99999999.99")
)

func quantityTooLarge() error {
	return apperr.Unprocessable("Unprocessable entity", []apperr.FieldError{{
		Field: "quantity", Rule: "lte", Param: strconv.Itoa(maxQuantity),
	}})
}

// cartAmount totals items and rejects totals an order could not store.
func cartAmount(items []models.CartItem) (decimal.Decimal, error) {
	total := models.CartTotal(items)
	if total.GreaterThan(maxAmount) {
		return decimal.Zero, apperr.Unprocessable("Cart total too large", []apperr.FieldError{{
			Field: "netAmount", Rule: "lte", Param: maxAmount.String(),
		}})
	}
	return total, nil
}

// findCartItem loads line :id of the caller's cart.
func findCartItem(tx *gorm.DB, id, userID uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := tx.Preload("Product").Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Cart item not found!!", apperr.CartItemNotFound)
		}
		return nil, err
	}
	return &item, nil
}

// AddCartItem adds quantity to the caller's line for the product, creating it if needed.
func (h *Handler) AddCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	me := user(c)

	var item models.CartItem
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, req.ProductID).Error; err != nil {
			return productNotFound(err)
		}

		err := tx.Where("user_id = ? AND product_id = ?", me.ID, p.ID).First(&item).Error
		switch {
		case err == nil:
			if item.Quantity > maxQuantity-req.Quantity {
				return quantityTooLarge()
			}
			item.Quantity += req.Quantity
			if err := tx.Model(&models.CartItem{}).Where("id = ?", item.ID).Update("quantity", item.Quantity).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.CartItem{UserID: me.ID, ProductID: p.ID, Quantity: req.Quantity}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		default:
			return err
		}
		item.Product = p
		return nil
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) GetCart(c *gin.Context) {
	items := []models.CartItem{}
	if err := h.db.WithContext(c.Request.Context()).Preload("Product").
		Where("user_id = ?", user(c).ID).Order("id asc").Find(&items).Error; err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) DeleteCartItem(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	db := h.db.WithContext(c.Request.Context())

	item, err := findCartItem(db, id, user(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	if err := db.Delete(&models.CartItem{}, item.ID).Error; err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deletedItem": item})
}

func (h *Handler) ChangeQuantity(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req changeQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	db := h.db.WithContext(c.Request.Context())

	item, err := findCartItem(db, id, user(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	if err := db.Model(&models.CartItem{}).Where("id = ?", item.ID).Update("quantity", req.Quantity).Error; err != nil {
		fail(c, err)
		return
	}
	item.Quantity = req.Quantity
	c.JSON(http.StatusOK, item)
}

// CheckoutCart opens a payment intent for the cart total. The order itself is
// placed separately through POST /orders once the client confirms payment.
func (h *Handler) CheckoutCart(c *gin.Context) {
	me := user(c)
	ctx := c.Request.Context()

	var items []models.CartItem
	if err := h.db.WithContext(ctx).Preload("Product").Where("user_id = ?", me.ID).Find(&items).Error; err != nil {
		fail(c, err)
		return
	}
	if len(items) == 0 {
		fail(c, apperr.BadRequest("Cart is empty", apperr.CartEmpty))
		return
	}

	total, err := cartAmount(items)
	if err != nil {
		fail(c, err)
		return
	}
	amount := total.Mul(hundred).Round(0).IntPart()
	intent, err := h.payments.Create(ctx, amount, h.currency, map[string]string{
		"userId": strconv.FormatUint(uint64(me.ID), 10),
	})
	if err != nil {
		if errors.Is(err, payments.ErrNotConfigured) {
			fail(c, apperr.New(http.StatusServiceUnavailable, apperr.PaymentUnavailable, "Payments are not available"))
			return
		}
		logger.For(c, h.log).Error("payment intent failed", zap.Uint("user_id", me.ID), zap.Error(err))
		e := apperr.New(http.StatusBadGateway, apperr.PaymentUnavailable, "Payment provider error")
		e.Err = err
		fail(c, e)
		return
	}
	c.JSON(http.StatusOK, intent)
}
