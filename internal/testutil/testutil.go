// Package testutil holds fixtures shared by handler and middleware tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront/internal/auth"
	"storefront/internal/db"
	"storefront/internal/models"
)

const Secret = "test-secret"

var seq atomic.Int64

// NewDB returns a migrated in-memory sqlite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:storefront_%d?mode=memory&cache=shared", seq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func Tokens() *auth.Tokens {
	return auth.NewTokens(Secret, time.Hour)
}

// CreateUser inserts an active user whose password is "secret1".
func CreateUser(t *testing.T, gdb *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	hash, err := models.HashPassword("secret1")
	require.NoError(t, err)
	u := &models.User{Name: email, Email: email, Password: hash, Role: role, Status: true}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

// Token signs an access token for u.
func Token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := Tokens().Sign(u.ID)
	require.NoError(t, err)
	return tok
}

func CreateProduct(t *testing.T, gdb *gorm.DB, name, price string, tags ...string) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Tags:        tags,
	}
	require.NoError(t, gdb.Create(p).Error)
	return p
}

func CreateAddress(t *testing.T, gdb *gorm.DB, userID uint) *models.Address {
	t.Helper()
	a := &models.Address{LineOne: "12 MG Road", City: "Pune", Country: "India", Pincode: "411001", UserID: userID}
	require.NoError(t, gdb.Create(a).Error)
	return a
}
