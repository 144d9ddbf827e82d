package realex

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
	"github.com/mstgnz/unipay/provider"
)

const secret = "secret"

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

// gatewayStub decodes each request, hands it to reply and signs the response
// the way the gateway does.
func gatewayStub(t *testing.T, reply func(req request) response) (*httptest.Server, func() []request) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []request
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		require.NoError(t, xml.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()

		resp := reply(req)
		resp.Timestamp = req.Timestamp
		resp.MerchantID = req.MerchantID
		resp.OrderID = req.OrderID
		resp.SHA1Hash = sign(secret, resp.Timestamp, resp.MerchantID, resp.OrderID, resp.Result, resp.Message, resp.PasRef, resp.AuthCode)

		out, err := xml.Marshal(resp)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write(out)
	}))
	t.Cleanup(server.Close)
	return server, func() []request {
		mu.Lock()
		defer mu.Unlock()
		return append([]request(nil), seen...)
	}
}

func newConnector(t *testing.T, url string) *Connector {
	t.Helper()
	c, err := New(Config{
		MerchantID:     "merchant",
		AccountID:      "internet",
		SharedSecret:   secret,
		RebatePassword: "rebate",
		ServiceURL:     url,
		HostedPaymentConfig: config.HostedPaymentConfig{
			FraudFilterMode: "PASSIVE",
		},
	})
	require.NoError(t, err)
	c.now = func() time.Time { return fixedNow }
	return c
}

func testCard() *provider.Card {
	return &provider.Card{Number: "4263970000005262", ExpMonth: 12, ExpYear: 2030, CVN: "123", HolderName: "James Mason"}
}

func TestNew_RequiresServiceURL(t *testing.T) {
	_, err := New(Config{MerchantID: "m"})
	assert.True(t, errs.IsConfiguration(err))
}

func TestSign(t *testing.T) {
	a := sign("secret", "20260504103000", "merchant", "order", "1000", "EUR", "4263970000005262")
	b := sign("secret", "20260504103000", "merchant", "order", "1000", "EUR", "4263970000005262")
	c := sign("other", "20260504103000", "merchant", "order", "1000", "EUR", "4263970000005262")
	assert.Len(t, a, 40)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", sha1Hex(""))
}

func TestProcessTransaction_Sale(t *testing.T) {
	server, seen := gatewayStub(t, func(req request) response {
		return response{Result: "00", Message: "[ test system ] AUTHORISED", PasRef: "pas-1", AuthCode: "12345"}
	})
	c := newConnector(t, server.URL)

	result, err := c.ProcessTransaction(context.Background(), &provider.TransactionRequest{
		Type:     provider.TransactionSale,
		Amount:   decimal.RequireFromString("10.01"),
		Currency: "eur",
		OrderID:  "order-1",
		Card:     testCard(),
	})
	require.NoError(t, err)
	assert.True(t, result.Approved())
	assert.Equal(t, "pas-1", result.TransactionID)
	assert.Equal(t, "12345", result.AuthCode)
	assert.Equal(t, "order-1", result.OrderID)
	assert.Equal(t, providerName, result.Provider)

	require.Len(t, seen(), 1)
	req := seen()[0]
	assert.Equal(t, "auth", req.Type)
	assert.Equal(t, "20260504103000", req.Timestamp)
	assert.Equal(t, "internet", req.Account)
	require.NotNil(t, req.Amount)
	assert.Equal(t, "1001", req.Amount.Value)
	assert.Equal(t, "EUR", req.Amount.Currency)
	require.NotNil(t, req.Card)
	assert.Equal(t, "1230", req.Card.ExpDate)
	assert.Equal(t, "VISA", req.Card.Type)
	require.NotNil(t, req.AutoSettle)
	assert.Equal(t, "1", req.AutoSettle.Flag)
	require.NotNil(t, req.FraudFilter)
	assert.Equal(t, "PASSIVE", req.FraudFilter.Mode)
	assert.Equal(t, sign(secret, "20260504103000", "merchant", "order-1", "1001", "EUR", "4263970000005262"), req.SHA1Hash)
}

func TestProcessTransaction_Types(t *testing.T) {
	tests := []struct {
		name     string
		req      *provider.TransactionRequest
		wantType string
		check    func(t *testing.T, req request)
	}{
		{
			name:     "auth does not settle",
			req:      &provider.TransactionRequest{Type: provider.TransactionAuth, Amount: decimal.NewFromInt(5), Card: testCard()},
			wantType: "auth",
			check: func(t *testing.T, req request) {
				assert.Equal(t, "0", req.AutoSettle.Flag)
			},
		},
		{
			name:     "capture references the original",
			req:      &provider.TransactionRequest{Type: provider.TransactionCapture, TransactionID: "pas-9", OrderID: "o9"},
			wantType: "settle",
			check: func(t *testing.T, req request) {
				assert.Equal(t, "pas-9", req.PasRef)
				assert.Nil(t, req.Amount)
				assert.Nil(t, req.Card)
			},
		},
		{
			name:     "refund carries the rebate hash",
			req:      &provider.TransactionRequest{Type: provider.TransactionRefund, TransactionID: "pas-9", Amount: decimal.NewFromInt(1)},
			wantType: "rebate",
			check: func(t *testing.T, req request) {
				assert.Equal(t, sha1Hex("rebate"), req.RefundHash)
			},
		},
		{
			name:     "void",
			req:      &provider.TransactionRequest{Type: provider.TransactionVoid, TransactionID: "pas-9"},
			wantType: "void",
		},
		{
			name:     "verify",
			req:      &provider.TransactionRequest{Type: provider.TransactionVerify, Card: testCard()},
			wantType: "otb",
			check: func(t *testing.T, req request) {
				assert.Nil(t, req.AutoSettle)
			},
		},
		{
			name:     "stored card sale",
			req:      &provider.TransactionRequest{Type: provider.TransactionSale, Amount: decimal.NewFromInt(1), Token: "payer-1"},
			wantType: "receipt-in",
			check: func(t *testing.T, req request) {
				assert.Equal(t, "payer-1", req.PayerRef)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, seen := gatewayStub(t, func(request) response { return response{Result: "00"} })
			c := newConnector(t, server.URL)

			_, err := c.ProcessTransaction(context.Background(), tt.req)
			require.NoError(t, err)
			require.Len(t, seen(), 1)
			assert.Equal(t, tt.wantType, seen()[0].Type)
			if tt.check != nil {
				tt.check(t, seen()[0])
			}
		})
	}
}

func TestProcessTransaction_ResultCodes(t *testing.T) {
	tests := []struct {
		code string
		want provider.TransactionStatus
	}{
		{"00", provider.StatusApproved},
		{"101", provider.StatusDeclined},
		{"103", provider.StatusDeclined},
		{"205", provider.StatusError},
		{"508", provider.StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			server, _ := gatewayStub(t, func(request) response { return response{Result: tt.code} })
			c := newConnector(t, server.URL)

			result, err := c.ProcessTransaction(context.Background(), &provider.TransactionRequest{Type: provider.TransactionSale, Amount: decimal.NewFromInt(1), Card: testCard()})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Status)
			assert.Equal(t, tt.code, result.ResponseCode)
		})
	}
}

func TestProcessTransaction_Unsupported(t *testing.T) {
	c := newConnector(t, "https://example.invalid")
	assert.False(t, c.Supports(provider.TransactionReverse))
	assert.False(t, c.Supports(provider.TransactionBalance))

	_, err := c.ProcessTransaction(context.Background(), &provider.TransactionRequest{Type: provider.TransactionBalance})
	assert.True(t, errs.IsUnsupportedCapability(err))
}

func TestProcessTransaction_SignatureMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<response timestamp="1"><merchantid>merchant</merchantid><result>00</result><sha1hash>deadbeef</sha1hash></response>`)
	}))
	defer server.Close()
	c := newConnector(t, server.URL)

	_, err := c.ProcessTransaction(context.Background(), &provider.TransactionRequest{Type: provider.TransactionSale, Amount: decimal.NewFromInt(1), Card: testCard()})
	require.Error(t, err)
	assert.True(t, errs.IsGateway(err))
}

func TestProcessRecurring(t *testing.T) {
	tests := []struct {
		name     string
		req      *provider.RecurringRequest
		wantType string
	}{
		{"new payer", &provider.RecurringRequest{Action: provider.RecurringCreate, Resource: provider.ResourceCustomer, Key: "payer-1", Data: map[string]string{"firstName": "James"}}, "payer-new"},
		{"edit payer", &provider.RecurringRequest{Action: provider.RecurringEdit, Resource: provider.ResourceCustomer, Key: "payer-1"}, "payer-edit"},
		{"new card", &provider.RecurringRequest{Action: provider.RecurringCreate, Resource: provider.ResourcePaymentMethod, Key: "card-1", Card: testCard(), Data: map[string]string{"payerRef": "payer-1"}}, "card-new"},
		{"cancel card", &provider.RecurringRequest{Action: provider.RecurringDelete, Resource: provider.ResourcePaymentMethod, Key: "card-1", Data: map[string]string{"payerRef": "payer-1"}}, "card-cancel-card"},
		{"new schedule", &provider.RecurringRequest{Action: provider.RecurringCreate, Resource: provider.ResourceSchedule, Key: "s-1", Amount: decimal.NewFromInt(3), Data: map[string]string{"schedule": "monthly"}}, "schedule-new"},
		{"get schedule", &provider.RecurringRequest{Action: provider.RecurringGet, Resource: provider.ResourceSchedule, Key: "s-1"}, "schedule-get"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, seen := gatewayStub(t, func(request) response { return response{Result: "00", Message: "Successful"} })
			c := newConnector(t, server.URL)

			result, err := c.ProcessRecurring(context.Background(), tt.req)
			require.NoError(t, err)
			assert.True(t, result.Success)
			assert.Equal(t, tt.req.Key, result.Key)
			require.Len(t, seen(), 1)
			assert.Equal(t, tt.wantType, seen()[0].Type)
		})
	}
}

func TestProcessRecurring_GeneratesKeyOnCreate(t *testing.T) {
	server, seen := gatewayStub(t, func(request) response { return response{Result: "00"} })
	c := newConnector(t, server.URL)

	result, err := c.ProcessRecurring(context.Background(), &provider.RecurringRequest{Action: provider.RecurringCreate, Resource: provider.ResourceCustomer})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Key)
	require.NotNil(t, seen()[0].Payer)
	assert.Equal(t, result.Key, seen()[0].Payer.Ref)
}

func TestProcessRecurring_Unsupported(t *testing.T) {
	c := newConnector(t, "https://example.invalid")
	_, err := c.ProcessRecurring(context.Background(), &provider.RecurringRequest{Action: provider.RecurringDelete, Resource: provider.ResourceCustomer, Key: "p"})
	assert.True(t, errs.IsUnsupportedCapability(err))
}

func TestProcessSecure3D_CheckEnrollment(t *testing.T) {
	server, seen := gatewayStub(t, func(request) response {
		return response{Result: "00", Enrolled: "Y", URL: "https://acs.example.com", PaReq: "pareq-data"}
	})
	c := newConnector(t, server.URL)
	assert.Equal(t, config.Secure3dOne, c.Version())

	result, err := c.ProcessSecure3D(context.Background(), &provider.Secure3DRequest{
		Step:   provider.StepCheckEnrollment,
		Amount: decimal.NewFromInt(10),
		Card:   testCard(),
	})
	require.NoError(t, err)
	assert.True(t, result.Enrolled)
	assert.Equal(t, config.Secure3dOne, result.Version)
	assert.Equal(t, "https://acs.example.com", result.IssuerACSURL)
	assert.Equal(t, "pareq-data", result.PayerAuthRequest)
	assert.Equal(t, "3ds-verifyenrolled", seen()[0].Type)
}

func TestProcessSecure3D_NotEnrolled(t *testing.T) {
	server, _ := gatewayStub(t, func(request) response { return response{Result: "110", Enrolled: "N"} })
	c := newConnector(t, server.URL)

	result, err := c.ProcessSecure3D(context.Background(), &provider.Secure3DRequest{Step: provider.StepCheckEnrollment, Amount: decimal.NewFromInt(10), Card: testCard()})
	require.NoError(t, err)
	assert.False(t, result.Enrolled)
	assert.Equal(t, "N", result.Status)
}

func TestProcessSecure3D_VerifySignature(t *testing.T) {
	server, seen := gatewayStub(t, func(request) response {
		return response{Result: "00", ThreeDSecure: &threeDSecure{Status: "Y", ECI: "5", XID: "xid-1", CAVV: "cavv-1"}}
	})
	c := newConnector(t, server.URL)

	result, err := c.ProcessSecure3D(context.Background(), &provider.Secure3DRequest{
		Step:              provider.StepVerifySignature,
		Amount:            decimal.NewFromInt(10),
		Card:              testCard(),
		PayerAuthResponse: "pares-data",
	})
	require.NoError(t, err)
	assert.Equal(t, "Y", result.Status)
	assert.Equal(t, "5", result.ECI)
	assert.Equal(t, "cavv-1", result.AuthenticationValue)
	assert.Equal(t, "xid-1", result.ServerTransactionID)
	assert.Equal(t, "pares-data", seen()[0].PaRes)
}

func TestProcessSecure3D_InvalidStep(t *testing.T) {
	c := newConnector(t, "https://example.invalid")

	_, err := c.ProcessSecure3D(context.Background(), &provider.Secure3DRequest{Step: provider.StepInitiateAuthentication, Card: testCard()})
	assert.True(t, errs.IsInvalidRequest(err))

	_, err = c.ProcessSecure3D(context.Background(), &provider.Secure3DRequest{Step: provider.StepCheckEnrollment})
	assert.True(t, errs.IsInvalidRequest(err))
}

func TestConnector_ImplementsCapabilities(t *testing.T) {
	var _ provider.PaymentGateway = (*Connector)(nil)
	var _ provider.RecurringService = (*Connector)(nil)
	var _ provider.Secure3DProvider = (*Connector)(nil)
}
