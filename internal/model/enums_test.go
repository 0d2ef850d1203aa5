package model

import "testing"

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    PaymentMethod
		wantErr bool
	}{
		{"cash", MethodCash, false},
		{"MOBILE_WALLET_A", MethodWalletA, false},
		{"bKash", MethodWalletA, false},
		{"NAGAD", MethodWalletB, false},
		{"", "", false},
		{"CHEQUE", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePaymentMethod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParsePaymentMethod(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParsePaymentMethod(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTransactionTypeRequiresMethod(t *testing.T) {
	for _, tt := range TransactionTypes {
		want := tt == TxBookingPayment || tt == TxSlotPayment
		if tt.RequiresMethod() != want {
			t.Errorf("%s.RequiresMethod() = %v", tt, !want)
		}
	}
	if _, err := ParseTransactionType("refund"); err == nil {
		t.Error("unknown transaction type should fail to parse")
	}
}

func TestParseBookingKindLegacyNames(t *testing.T) {
	if k, _ := ParseBookingKind("academy"); k != KindRecurring {
		t.Errorf("ACADEMY should map to RECURRING, got %s", k)
	}
	if k, _ := ParseBookingKind(""); k != KindSingle {
		t.Errorf("empty kind should default to SINGLE, got %s", k)
	}
}
