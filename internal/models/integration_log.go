package models

import "time"

type IntegrationLog struct {
	ID         string         `json:"id"`
	MerchantID string         `json:"merchant_id"`
	Service    string         `json:"service"`
	Endpoint   string         `json:"endpoint"`
	StatusCode int            `json:"status_code"`
	Success    bool           `json:"success"`
	RequestID  string         `json:"request_id"`
	Payload    map[string]any `json:"payload"`
	CreatedAt  time.Time      `json:"created_at"`
}
