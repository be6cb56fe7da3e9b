package proto

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/mockpay/internal/common"
	"github.com/go-playground/validator/v10"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Validation tags use gin's "binding" key so the HTTP API binds the same
// types with identical rules.

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ChargeRequest.Amount must be present but any value is accepted.
type ChargeRequest struct {
	Amount         *float64 `json:"amount" binding:"required"`
	CardNumber     string   `json:"cardNumber"`
	ExpirationDate string   `json:"expirationDate"`
	CVV            string   `json:"cvv"`
	CardholderName string   `json:"cardholderName"`
}

type RefundRequest struct {
	TransactionID string   `json:"transactionId" binding:"required"`
	Amount        *float64 `json:"amount" binding:"required"`
	Reason        string   `json:"reason"`
}

type TransactionResponse struct {
	TransactionID string  `json:"transactionId"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Message       string  `json:"message"`
}

type RefundResponse struct {
	RefundID              string  `json:"refundId"`
	OriginalTransactionID string  `json:"originalTransactionId"`
	Status                string  `json:"status"`
	Amount                float64 `json:"amount"`
	Message               string  `json:"message"`
}

type PingResponse struct {
	Status string `json:"status"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}

// Encode converts a message into a Struct through its JSON form.
func Encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return s, nil
}

// Decode fills v from s. Type mismatches are reported as
// common.ErrMalformedRequest.
func Decode(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrMalformedRequest, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrMalformedRequest, err)
	}
	return nil
}

// DecodeRequest is Decode followed by validation of the binding tags.
func DecodeRequest(s *structpb.Struct, v any) error {
	if err := Decode(s, v); err != nil {
		return err
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrMalformedRequest, err)
	}
	return nil
}
