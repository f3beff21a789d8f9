package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/storage"
)

type addressRequest struct {
	LineOne string  `json:"lineOne" binding:"required"`
	LineTwo *string `json:"lineTwo"`
	Pincode string  `json:"pincode" binding:"required,pincode"`
	Country string  `json:"country" binding:"required"`
	City    string  `json:"city" binding:"required"`
}

type updateUserRequest struct {
	Name                   *string    `json:"name" form:"name"`
	Phone                  *string    `json:"phone" form:"phone"`
	DefaultShippingAddress *uint      `json:"defaultShippingAddress" form:"defaultShippingAddress"`
	DefaultBillingAddress  *uint      `json:"defaultBillingAddress" form:"defaultBillingAddress"`
	Status                 *bool      `json:"status" form:"status"`
	LastLogin              *time.Time `json:"lastLogin" form:"lastLogin" time_format:"2006-01-02T15:04:05Z07:00"`
	ProfilePicture         *string    `json:"profilePicture" form:"-" binding:"omitempty,url"`
}

type changeRoleRequest struct {
	Role   models.Role `json:"role" binding:"required,oneof=USER ADMIN"`
	Status *bool       `json:"status"`
}

type addressSummary struct {
	ID      uint   `json:"id"`
	City    string `json:"city"`
	Country string `json:"country"`
	Pincode string `json:"pincode"`
}

type userDetail struct {
	models.User
	Addresses []addressSummary `json:"addresses"`
}

func userNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("User not found!!", apperr.UserNotFound)
	}
	return err
}

func addressNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Address not found!!", apperr.AddressNotFound)
	}
	return err
}

func (h *Handler) AddAddress(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	a := models.Address{
		LineOne: h.clean(req.LineOne),
		LineTwo: req.LineTwo,
		Pincode: req.Pincode,
		Country: h.clean(req.Country),
		City:    h.clean(req.City),
		UserID:  user(c).ID,
	}
	if a.LineTwo != nil {
		v := h.clean(*a.LineTwo)
		a.LineTwo = &v
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&a).Error; err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAddress removes one of the caller's addresses (admins may remove any)
// and clears it from the owner's defaults.
func (h *Handler) DeleteAddress(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	me := user(c)

	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("id = ?", id)
		if !me.Role.IsAdmin() {
			q = q.Where("user_id = ?", me.ID)
		}
		var a models.Address
		if err := q.First(&a).Error; err != nil {
			return addressNotFound(err)
		}
		if err := tx.Model(&models.User{}).Where("id = ? AND default_shipping_address = ?", a.UserID, a.ID).
			Update("default_shipping_address", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ? AND default_billing_address = ?", a.UserID, a.ID).
			Update("default_billing_address", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&a).Error
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ListAddresses(c *gin.Context) {
	addresses := []models.Address{}
	if err := h.db.WithContext(c.Request.Context()).Where("user_id = ?", user(c).ID).Order("id asc").Find(&addresses).Error; err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, addresses)
}

// UpdateUser updates only the provided fields of user :id. Default addresses
// must exist and belong to that user.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req updateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()

	var target models.User
	if err := h.db.WithContext(ctx).First(&target, id).Error; err != nil {
		fail(c, userNotFound(err))
		return
	}

	for _, addrID := range []*uint{req.DefaultShippingAddress, req.DefaultBillingAddress} {
		if addrID == nil {
			continue
		}
		var a models.Address
		if err := h.db.WithContext(ctx).First(&a, *addrID).Error; err != nil {
			fail(c, addressNotFound(err))
			return
		}
		if a.UserID != target.ID {
			fail(c, apperr.BadRequest("Address does not belong to user", apperr.AddressNotBelong))
			return
		}
	}

	picture, err := storage.SaveImage(c, h.uploads, "profilePicture", h.uploadMax)
	if err != nil {
		fail(c, err)
		return
	}
	if picture != "" {
		req.ProfilePicture = &picture
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = h.clean(*req.Name)
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.DefaultShippingAddress != nil {
		updates["default_shipping_address"] = *req.DefaultShippingAddress
	}
	if req.DefaultBillingAddress != nil {
		updates["default_billing_address"] = *req.DefaultBillingAddress
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.LastLogin != nil {
		updates["last_login"] = *req.LastLogin
	}
	if req.ProfilePicture != nil {
		updates["profile_picture"] = *req.ProfilePicture
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(&target).Updates(updates).Error; err != nil {
			fail(c, err)
			return
		}
		if err := h.db.WithContext(ctx).First(&target, id).Error; err != nil {
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, target)
}

func (h *Handler) ChangeUserRole(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req changeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()

	var target models.User
	if err := h.db.WithContext(ctx).First(&target, id).Error; err != nil {
		fail(c, userNotFound(err))
		return
	}
	updates := map[string]any{"role": req.Role}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if err := h.db.WithContext(ctx).Model(&target).Updates(updates).Error; err != nil {
		fail(c, err)
		return
	}
	if err := h.db.WithContext(ctx).First(&target, id).Error; err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, target)
}

func (h *Handler) ListUsers(c *gin.Context) {
	users := []models.User{}
	if err := h.db.WithContext(c.Request.Context()).Order("id asc").Find(&users).Error; err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser returns user :id with a short form of each address.
func (h *Handler) GetUser(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()

	var detail userDetail
	if err := h.db.WithContext(ctx).First(&detail.User, id).Error; err != nil {
		fail(c, userNotFound(err))
		return
	}
	detail.Addresses = []addressSummary{}
	if err := h.db.WithContext(ctx).Model(&models.Address{}).
		Select("id", "city", "country", "pincode").
		Where("user_id = ?", id).Order("id asc").
		Scan(&detail.Addresses).Error; err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// DeleteUser removes the user together with everything hanging off it.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var target models.User
		if err := tx.First(&target, id).Error; err != nil {
			return userNotFound(err)
		}
		orders := tx.Model(&models.Order{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("order_id IN (?)", orders).Delete(&models.OrderEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id IN (?)", orders).Delete(&models.OrderProduct{}).Error; err != nil {
			return err
		}
		for _, m := range []any{&models.Order{}, &models.CartItem{}, &models.Address{}} {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&target).Error
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
