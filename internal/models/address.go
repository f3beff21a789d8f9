package models

import (
	"strings"

	"gorm.io/gorm"
)

type Address struct {
	Base
	LineOne string  `gorm:"not null" json:"lineOne"`
	LineTwo *string `json:"lineTwo"`
	City    string  `gorm:"not null" json:"city"`
	Country string  `gorm:"not null" json:"country"`
	Pincode string  `gorm:"type:varchar(6);not null" json:"pincode"`
	UserID  uint    `gorm:"index;not null" json:"userId"`

	FormattedAddress string `gorm:"-" json:"formattedAddress"`
}

// Format renders the single-line form stored on orders: "lineOne,lineTwo,city,country-pincode".
// An empty lineTwo is skipped.
func (a *Address) Format() string {
	parts := []string{a.LineOne}
	if a.LineTwo != nil && strings.TrimSpace(*a.LineTwo) != "" {
		parts = append(parts, *a.LineTwo)
	}
	parts = append(parts, a.City, a.Country)
	return strings.Join(parts, ",") + "-" + a.Pincode
}

func (a *Address) AfterFind(*gorm.DB) error {
	a.FormattedAddress = a.Format()
	return nil
}

func (a *Address) AfterSave(*gorm.DB) error {
	a.FormattedAddress = a.Format()
	return nil
}
