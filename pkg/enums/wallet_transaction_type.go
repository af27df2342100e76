package enums

import "fmt"

// WalletTransactionType classifies ledger entries. The wallet balance is
// always the signed sum of its transactions: credits count positive,
// debits negative.
type WalletTransactionType string

const (
	WalletTransactionDeposit    WalletTransactionType = "DEPOSIT"
	WalletTransactionPayment    WalletTransactionType = "PAYMENT"
	WalletTransactionRefund     WalletTransactionType = "REFUND"
	WalletTransactionWithdrawal WalletTransactionType = "WITHDRAWAL"
	WalletTransactionAdjustment WalletTransactionType = "ADJUSTMENT"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionDeposit,
	WalletTransactionPayment,
	WalletTransactionRefund,
	WalletTransactionWithdrawal,
	WalletTransactionAdjustment,
}

// String implements fmt.Stringer.
func (t WalletTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known WalletTransactionType.
func (t WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Sign returns +1 for credit entries and -1 for debit entries.
func (t WalletTransactionType) Sign() int {
	switch t {
	case WalletTransactionPayment, WalletTransactionWithdrawal:
		return -1
	default:
		return 1
	}
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}
