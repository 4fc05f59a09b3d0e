package model

import (
	"time"
)

// Symbol represents a tradable market symbol known to the service
type Symbol struct {
	Ticker    string     `json:"ticker" db:"ticker" binding:"required,ticker"`
	Name      string     `json:"name" db:"name"`
	Exchange  string     `json:"exchange" db:"exchange"`
	AssetType string     `json:"asset_type" db:"asset_type"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

