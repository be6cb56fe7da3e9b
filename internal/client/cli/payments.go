package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/mockpay/internal/client/client"
)

var getAmount = GetAmount

func (a *App) Charge(ctx context.Context) error {
	if !a.isLoggedIn() {
		return client.ErrNotLoggedIn
	}

	amount, err := getAmount(a.reader, "Amount", a.out)
	if err != nil {
		return err
	}

	in := client.ChargeInput{Amount: amount}
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Card number", &in.CardNumber},
		{"Expiration date (MM/YY)", &in.ExpirationDate},
		{"CVV", &in.CVV},
		{"Cardholder name", &in.CardholderName},
	}
	for _, f := range fields {
		if *f.dst, err = getSimpleText(a.reader, f.prompt, a.out); err != nil {
			return err
		}
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	tx, err := a.api.Charge(ctx, in)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Transaction %s: %s (%.2f) %s\n", tx.TransactionID, tx.Status, tx.Amount, tx.Message)
	return nil
}

func (a *App) Refund(ctx context.Context) error {
	if !a.isLoggedIn() {
		return client.ErrNotLoggedIn
	}

	txID, err := getSimpleText(a.reader, "Transaction ID", a.out)
	if err != nil {
		return err
	}
	amount, err := getAmount(a.reader, "Amount", a.out)
	if err != nil {
		return err
	}
	reason, err := getSimpleText(a.reader, "Reason", a.out)
	if err != nil {
		return err
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	r, err := a.api.Refund(ctx, client.RefundInput{TransactionID: txID, Amount: amount, Reason: reason})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Refund %s for %s: %s (%.2f) %s\n", r.RefundID, r.OriginalTransactionID, r.Status, r.Amount, r.Message)
	return nil
}
