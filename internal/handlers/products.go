package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

type productRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Tags        []string         `json:"tags"`
}

// validate checks present fields; create additionally requires name, description and price.
func (r *productRequest) validate(create bool) error {
	var errs []apperr.FieldError
	if create {
		required := []struct {
			field   string
			missing bool
		}{
			{"name", r.Name == nil || strings.TrimSpace(*r.Name) == ""},
			{"description", r.Description == nil},
			{"price", r.Price == nil},
		}
		for _, f := range required {
			if f.missing {
				errs = append(errs, apperr.FieldError{Field: f.field, Rule: "required"})
			}
		}
	}
	if r.Price != nil && !r.Price.IsPositive() {
		errs = append(errs, apperr.FieldError{Field: "price", Rule: "gt", Param: "0"})
	}
	if r.Price != nil && r.Price.Round(2).GreaterThan(maxAmount) {
		errs = append(errs, apperr.FieldError{Field: "price", Rule: "lte", Param: maxAmount.String()})
	}
	if len(errs) > 0 {
		return apperr.Unprocessable("Unprocessable entity", errs)
	}
	return nil
}

func productNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("Product not found", apperr.ProductNotFound)
	}
	return err
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	if err := req.validate(true); err != nil {
		fail(c, err)
		return
	}

	p := models.Product{
		Name:        h.clean(*req.Name),
		Description: h.clean(*req.Description),
		Price:       req.Price.Round(2),
		Tags:        h.cleanTags(req.Tags),
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&p).Error; err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateProduct applies only the fields present in the body.
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, err)
		return
	}
	if err := req.validate(false); err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()

	var p models.Product
	if err := h.db.WithContext(ctx).First(&p, id).Error; err != nil {
		fail(c, productNotFound(err))
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = h.clean(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = h.clean(*req.Description)
	}
	if req.Price != nil {
		updates["price"] = req.Price.Round(2)
	}
	if req.Tags != nil {
		updates["tags"] = h.cleanTags(req.Tags)
	}
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(&p).Updates(updates).Error; err != nil {
			fail(c, err)
			return
		}
		if err := h.db.WithContext(ctx).First(&p, id).Error; err != nil {
			fail(c, err)
			return
		}
		h.products.Invalidate(ctx, id)
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()

	var p models.Product
	if err := h.db.WithContext(ctx).First(&p, id).Error; err != nil {
		fail(c, productNotFound(err))
		return
	}
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
	if err != nil {
		fail(c, err)
		return
	}
	h.products.Invalidate(ctx, id)
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully", "product": p})
}

// ListProducts pages through the catalog with ?skip=.
func (h *Handler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()

	var count int64
	if err := h.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		fail(c, err)
		return
	}
	products := []models.Product{}
	if err := h.db.WithContext(ctx).Order("id asc").Offset(skip(c)).Limit(h.pageSize).Find(&products).Error; err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count, "data": products})
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	ctx := c.Request.Context()

	if p, ok := h.products.Get(ctx, id); ok {
		c.JSON(http.StatusOK, p)
		return
	}
	var p models.Product
	if err := h.db.WithContext(ctx).First(&p, id).Error; err != nil {
		fail(c, productNotFound(err))
		return
	}
	h.products.Set(ctx, &p)
	c.JSON(http.StatusOK, p)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchProducts matches ?q= case-insensitively against name, description and tags.
func (h *Handler) SearchProducts(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, apperr.Unprocessable("Unprocessable entity", []apperr.FieldError{{Field: "q", Rule: "required"}}))
		return
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
	ctx := c.Request.Context()

	matching := func() *gorm.DB {
		return h.db.WithContext(ctx).Model(&models.Product{}).Where(
			`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(tags) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}

	var count int64
	if err := matching().Count(&count).Error; err != nil {
		fail(c, err)
		return
	}
	products := []models.Product{}
	if err := matching().Order("id asc").Offset(skip(c)).Limit(h.pageSize).Find(&products).Error; err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count, "data": products})
}
