package models

type TransactionStatus string

const (
	TransactionSuccess TransactionStatus = "success"
	TransactionFailed  TransactionStatus = "failed"
)

// Transaction is the simulated outcome of a charge. It is never persisted.
type Transaction struct {
	ID      string            `json:"transactionId"`
	Status  TransactionStatus `json:"status"`
	Amount  float64           `json:"amount"`
	Message string            `json:"message"`
}

// Refund is the simulated outcome of a refund. OriginalTransactionID is
// echoed from the request and not checked against any earlier charge.
type Refund struct {
	ID                    string            `json:"refundId"`
	OriginalTransactionID string            `json:"originalTransactionId"`
	Status                TransactionStatus `json:"status"`
	Amount                float64           `json:"amount"`
	Message               string            `json:"message"`
}
