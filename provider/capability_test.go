package provider

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mstgnz/unipay/infra/errs"
)

func TestTransactionRequest_Validate(t *testing.T) {
	card := &Card{Number: "4263970000005262", ExpMonth: 12, ExpYear: 2030}
	ten := decimal.NewFromInt(10)

	tests := []struct {
		name    string
		req     *TransactionRequest
		wantErr bool
	}{
		{name: "sale with card", req: &TransactionRequest{Type: TransactionSale, Amount: ten, Card: card}},
		{name: "sale with token", req: &TransactionRequest{Type: TransactionSale, Amount: ten, Token: "tok_1"}},
		{name: "capture with reference", req: &TransactionRequest{Type: TransactionCapture, TransactionID: "t1"}},
		{name: "balance", req: &TransactionRequest{Type: TransactionBalance}},
		{name: "nil", req: nil, wantErr: true},
		{name: "unknown type", req: &TransactionRequest{Type: "teleport"}, wantErr: true},
		{name: "sale without amount", req: &TransactionRequest{Type: TransactionSale, Card: card}, wantErr: true},
		{name: "sale without card or token", req: &TransactionRequest{Type: TransactionSale, Amount: ten}, wantErr: true},
		{name: "refund without reference", req: &TransactionRequest{Type: TransactionRefund, Amount: ten}, wantErr: true},
		{name: "negative amount", req: &TransactionRequest{Type: TransactionCapture, TransactionID: "t1", Amount: decimal.NewFromInt(-1)}, wantErr: true},
		{name: "bad currency", req: &TransactionRequest{Type: TransactionSale, Amount: ten, Card: card, Currency: "DOLLARS"}, wantErr: true},
		{name: "bad card number", req: &TransactionRequest{Type: TransactionSale, Amount: ten, Card: &Card{Number: "42x", ExpMonth: 1, ExpYear: 2030}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.True(t, errs.IsInvalidRequest(err), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRecurringRequest_Validate(t *testing.T) {
	assert.NoError(t, (&RecurringRequest{Action: RecurringCreate, Resource: ResourceCustomer}).Validate())
	assert.NoError(t, (&RecurringRequest{Action: RecurringDelete, Resource: ResourceSchedule, Key: "s1"}).Validate())
	assert.True(t, errs.IsInvalidRequest((&RecurringRequest{Action: RecurringEdit, Resource: ResourceCustomer}).Validate()))
	assert.True(t, errs.IsInvalidRequest((&RecurringRequest{Action: "archive", Resource: ResourceCustomer, Key: "k"}).Validate()))
}

func TestSecure3DRequest_Validate(t *testing.T) {
	assert.NoError(t, (&Secure3DRequest{Step: StepVerifySignature}).Validate())
	assert.True(t, errs.IsInvalidRequest((&Secure3DRequest{Step: "guess"}).Validate()))

	var nilReq *Secure3DRequest
	assert.True(t, errs.IsInvalidRequest(nilReq.Validate()))
}

func TestTransactionResult_Approved(t *testing.T) {
	var nilResult *TransactionResult
	assert.False(t, nilResult.Approved())
	assert.True(t, (&TransactionResult{Status: StatusApproved}).Approved())
	assert.False(t, (&TransactionResult{Status: StatusDeclined}).Approved())
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, "1050", MinorUnits(decimal.RequireFromString("10.5")))
	assert.Equal(t, "1", MinorUnits(decimal.RequireFromString("0.005")))
	assert.Equal(t, "0", MinorUnits(decimal.Zero))
}

func TestCard_BrandAndExpiry(t *testing.T) {
	tests := []struct {
		number string
		brand  string
	}{
		{"4263970000005262", "VISA"},
		{"5425230000004415", "MC"},
		{"2223000010005780", "MC"},
		{"374101000000608", "AMEX"},
		{"6011000000000004", "DISCOVER"},
		{"9999", "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.brand, (&Card{Number: tt.number}).Brand())
	}

	var nilCard *Card
	assert.Equal(t, "", nilCard.Brand())
	assert.Equal(t, "0730", (&Card{ExpMonth: 7, ExpYear: 2030}).ExpiryMMYY())
}
