package wallet

import "testing"

func TestReceiptVerify(t *testing.T) {
	secret := "shh"
	sig := Sign("order-1", "pay-1", secret)

	r := Receipt{OrderID: "order-1", PaymentID: "pay-1", Signature: sig}
	if !r.Verify(secret) {
		t.Fatal("expected valid signature to verify")
	}

	tampered := Receipt{OrderID: "order-1", PaymentID: "pay-2", Signature: sig}
	if tampered.Verify(secret) {
		t.Fatal("expected tampered payment id to fail verification")
	}

	wrongSecret := Receipt{OrderID: "order-1", PaymentID: "pay-1", Signature: sig}
	if wrongSecret.Verify("other") {
		t.Fatal("expected wrong secret to fail verification")
	}
}

func TestReceiptVerifyRejectsEmpty(t *testing.T) {
	r := Receipt{}
	if r.Verify("anything") {
		t.Fatal("expected empty receipt to fail verification")
	}
}

func TestKindIsCredit(t *testing.T) {
	credits := []Kind{KindDeposit, KindGameWinning, KindRefund, KindReferralBonus}
	for _, k := range credits {
		if !k.isCredit() {
			t.Errorf("expected %s to be a credit kind", k)
		}
	}
	debits := []Kind{KindWithdrawal, KindGameEntry}
	for _, k := range debits {
		if k.isCredit() {
			t.Errorf("expected %s to be a debit kind", k)
		}
	}
}
