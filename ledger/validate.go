package ledger

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNoPosition        = errors.New("no open position")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateIntent rejects malformed intents. It is the caller's job to run
// this before handing an intent to the engine.
func ValidateIntent(in Intent) error {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid intent: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid intent: %w", err)
	}
	if math.IsInf(in.Price, 0) {
		return errors.New("invalid intent: Price is not finite")
	}
	return nil
}

// CheckFunds reports ErrInsufficientFunds when a buy costs more than the
// free balance. Sells always pass.
func CheckFunds(w Wallet, in Intent) error {
	if in.TransactionType != Buy {
		return nil
	}
	if cost := in.Value(); cost > w.Balance {
		return fmt.Errorf("buy %d %s needs %.2f, balance %.2f: %w",
			in.Quantity, in.Symbol, cost, w.Balance, ErrInsufficientFunds)
	}
	return nil
}
