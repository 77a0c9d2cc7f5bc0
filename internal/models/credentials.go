package models

import "time"

type GatewayEnv string

const (
	EnvSandbox    GatewayEnv = "sandbox"
	EnvProduction GatewayEnv = "production"
)

// MerchantCredentials is one row of merchant_api_credentials. Secret fields
// may hold sealed values ("enc:..."); see internal/secrets.
type MerchantCredentials struct {
	MerchantID  string     `json:"merchant_id"`
	Environment GatewayEnv `json:"environment"`

	FasstapEnabled  bool   `json:"fasstap_enabled"`
	FasstapUsername string `json:"-"`
	FasstapPassword string `json:"-"`
	FasstapBaseURL  string `json:"fasstap_base_url,omitempty"`
	BridgeMode      bool   `json:"bridge_mode"`

	LynkEnabled           bool   `json:"lynk_enabled"`
	LynkClientID          string `json:"-"`
	LynkClientSecret      string `json:"-"`
	LynkMerchantAccountID string `json:"lynk_merchant_account_id,omitempty"`
	CBDCEnabled           bool   `json:"cbdc_enabled"`

	// APIKeyHash is the bcrypt hash of the key POS clients exchange for a
	// token. Empty means the merchant cannot log in outside dev.
	APIKeyHash string `json:"-"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (c *MerchantCredentials) HasFasstap() bool {
	return c.FasstapUsername != "" && c.FasstapPassword != ""
}

func (c *MerchantCredentials) HasLynk() bool {
	return c.LynkClientID != "" && c.LynkClientSecret != "" && c.LynkMerchantAccountID != ""
}
