package models

// AlpacaResponse is the standard response wrapper for all ASCOM Alpaca API calls.
type AlpacaResponse struct {
	ClientTransactionID int    `json:"ClientTransactionID"` // Client transaction ID
	ServerTransactionID int    `json:"ServerTransactionID"` // Server transaction ID
	ErrorNumber         int    `json:"ErrorNumber"`         // 0 = success, non-zero = error
	ErrorMessage        string `json:"ErrorMessage"`        // Error message if ErrorNumber != 0
}

// AlpacaValueResponse wraps a value with standard Alpaca response fields.
type AlpacaValueResponse struct {
	AlpacaResponse
	Value interface{} `json:"Value"` // The actual returned value
}
