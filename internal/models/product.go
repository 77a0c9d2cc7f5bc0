package models

import "time"

type Product struct {
	ID         string    `json:"id"`
	MerchantID string    `json:"merchant_id"`
	Name       string    `json:"name"`
	Stock      int       `json:"stock"`
	UpdatedAt  time.Time `json:"updated_at"`
}
