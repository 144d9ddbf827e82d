package portico

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
	"github.com/mstgnz/unipay/provider"
)

type capturedRequest struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Request struct {
			XMLName xml.Name
			Ver     struct {
				Header      header `xml:"Header"`
				Transaction struct {
					Element struct {
						XMLName      xml.Name
						GatewayTxnID string `xml:"GatewayTxnId"`
						Block1       *struct {
							AllowDup     string       `xml:"AllowDup"`
							Amt          string       `xml:"Amt"`
							GatewayTxnID string       `xml:"GatewayTxnId"`
							ManualEntry  *manualEntry `xml:"CardData>ManualEntry"`
							TokenValue   string       `xml:"CardData>TokenData>TokenValue"`
						} `xml:"Block1"`
					} `xml:",any"`
				} `xml:"Transaction"`
			} `xml:"Ver1.0"`
		} `xml:"PosRequest"`
	} `xml:"Body"`
}

func posResponse(gatewayCode, gatewayMsg, element, inner string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <PosResponse rootUrl="https://cert.api2.heartlandportico.com" xmlns="http://Hps.Exchange.PosGateway">
      <Ver1.0>
        <Header>
          <GatewayTxnId>1234567890</GatewayTxnId>
          <GatewayRspCode>%s</GatewayRspCode>
          <GatewayRspMsg>%s</GatewayRspMsg>
        </Header>
        <Transaction><%s>%s</%[3]s></Transaction>
      </Ver1.0>
    </PosResponse>
  </soap:Body>
</soap:Envelope>`, gatewayCode, gatewayMsg, element, inner)
}

func newStub(t *testing.T, body string, seen *capturedRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, xml.NewDecoder(r.Body).Decode(seen))
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newConnector(t *testing.T, cfg Config) *Connector {
	t.Helper()
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	_, err := New(Config{SecretAPIKey: "skapi_cert_x"})
	assert.True(t, errs.IsConfiguration(err))

	url := config.PorticoTest + config.PorticoGatewayPath
	c := newConnector(t, Config{SecretAPIKey: "skapi_cert_x", DeveloperID: "002914", VersionNumber: "1983", ServiceURL: url})
	assert.Equal(t, url, c.ServiceURL())
	assert.Equal(t, "002914", c.Config().DeveloperID)
	assert.Equal(t, "1983", c.Config().VersionNumber)
}

func TestProcessTransaction_SaleWithAPIKey(t *testing.T) {
	var seen capturedRequest
	server := newStub(t, posResponse("0", "Success", "CreditSale", "<RspCode>00</RspCode><RspText>APPROVAL</RspText><AuthCode>12345A</AuthCode>"), &seen)

	c := newConnector(t, Config{SecretAPIKey: "skapi_cert_MTyMAQBiHVEA", DeveloperID: "002914", VersionNumber: "1983", ServiceURL: server.URL})
	result, err := c.ProcessTransaction(context.Background(), &provider.TransactionRequest{
		Type:    provider.TransactionSale,
		Amount:  decimal.NewFromInt(15),
		OrderID: "client-1",
		Card:    &provider.Card{Number: "4012002000060016", ExpMonth: 12, ExpYear: 2030, CVN: "123"},
	})
	require.NoError(t, err)

	assert.Equal(t, provider.StatusApproved, result.Status)
	assert.Equal(t, "1234567890", result.TransactionID)
	assert.Equal(t, "12345A", result.AuthCode)
	assert.Equal(t, "00", result.ResponseCode)
	assert.Equal(t, "APPROVAL", result.ResponseMessage)
	assert.Equal(t, "client-1", result.OrderID)

	req := seen.Body.Request
	assert.Equal(t, "http://Hps.Exchange.PosGateway", req.XMLName.Space)
	h := req.Ver.Header
	assert.Equal(t, "skapi_cert_MTyMAQBiHVEA", h.SecretAPIKey)
	assert.Empty(t, h.SiteID)
	assert.Equal(t, "002914", h.DeveloperID)
	assert.Equal(t, "1983", h.VersionNbr)
	assert.Equal(t, "client-1", h.ClientTxnID)

	el := req.Ver.Transaction.Element
	assert.Equal(t, "CreditSale", el.XMLName.Local)
	require.NotNil(t, el.Block1)
	assert.Equal(t, "Y", el.Block1.AllowDup)
	assert.Equal(t, "15.00", el.Block1.Amt)
	require.NotNil(t, el.Block1.ManualEntry)
	assert.Equal(t, "4012002000060016", el.Block1.ManualEntry.CardNbr)
	assert.Equal(t, 2030, el.Block1.ManualEntry.ExpYear)
}

func TestProcessTransaction_LegacyCredentials(t *testing.T) {
	var seen capturedRequest
	server := newStub(t, posResponse("0", "Success", "CreditVoid", ""), &seen)

	c := newConnector(t, Config{
		SiteID:     "12345",
		LicenseID:  "67890",
		DeviceID:   "1234567",
		Username:   "user",
		Password:   "pass",
		ServiceURL: server.URL,
	})
	result, err := c.ProcessTransaction(context.Background(), &provider.TransactionRequest{
		Type:          provider.TransactionVoid,
		TransactionID: "999",
	})
	require.NoError(t, err)
	assert.Equal(t, provider.StatusApproved, result.Status)
	assert.Equal(t, "00", result.ResponseCode)
	assert.Equal(t, "Success", result.ResponseMessage)

	h := seen.Body.Request.Ver.Header
	assert.Empty(t, h.SecretAPIKey)
	assert.Equal(t, "12345", h.SiteID)
	assert.Equal(t, "67890", h.LicenseID)
	assert.Equal(t, "1234567", h.DeviceID)
	assert.Equal(t, "user", h.UserName)
	assert.NotEmpty(t, h.ClientTxnID)

	el := seen.Body.Request.Ver.Transaction.Element
	assert.Equal(t, "CreditVoid", el.XMLName.Local)
	assert.Equal(t, "999", el.GatewayTxnID)
	assert.Nil(t, el.Block1)
}

func TestProcessTransaction_Token(t *testing.T) {
	var seen capturedRequest
	server := newStub(t, posResponse("0", "Success", "CreditAuth", "<RspCode>00</RspCode>"), &seen)

	c := newConnector(t, Config{SecretAPIKey: "skapi_cert_x", ServiceURL: server.URL})
	_, err := c.ProcessTransaction(context.Background(), &provider.TransactionRequest{
		Type:   provider.TransactionAuth,
		Amount: decimal.NewFromInt(1),
		Token:  "supt_abc",
	})
	require.NoError(t, err)

	el := seen.Body.Request.Ver.Transaction.Element
	require.NotNil(t, el.Block1)
	assert.Nil(t, el.Block1.ManualEntry)
	assert.Equal(t, "supt_abc", el.Block1.TokenValue)
}

func TestProcessTransaction_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		gatewayCode string
		gatewayMsg  string
		inner       string
		status      provider.TransactionStatus
		code        string
	}{
		{name: "partial_approval", gatewayCode: "0", gatewayMsg: "Success", inner: "<RspCode>10</RspCode>", status: provider.StatusApproved, code: "10"},
		{name: "declined", gatewayCode: "0", gatewayMsg: "Success", inner: "<RspCode>05</RspCode><RspText>DECLINE</RspText>", status: provider.StatusDeclined, code: "05"},
		{name: "gateway_error", gatewayCode: "-2", gatewayMsg: "Authentication Error", status: provider.StatusError, code: "-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen capturedRequest
			server := newStub(t, posResponse(tt.gatewayCode, tt.gatewayMsg, "CreditReturn", tt.inner), &seen)

			c := newConnector(t, Config{SecretAPIKey: "skapi_cert_x", ServiceURL: server.URL})
			result, err := c.ProcessTransaction(context.Background(), &provider.TransactionRequest{
				Type:          provider.TransactionRefund,
				Amount:        decimal.NewFromInt(2),
				TransactionID: "555",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.status, result.Status)
			assert.Equal(t, tt.code, result.ResponseCode)

			el := seen.Body.Request.Ver.Transaction.Element
			require.NotNil(t, el.Block1)
			assert.Equal(t, "555", el.Block1.GatewayTxnID)
			assert.Empty(t, el.Block1.AllowDup)
		})
	}
}

func TestProcessTransaction_MalformedResponse(t *testing.T) {
	var seen capturedRequest
	server := newStub(t, `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body/></soap:Envelope>`, &seen)

	c := newConnector(t, Config{SecretAPIKey: "skapi_cert_x", ServiceURL: server.URL})
	_, err := c.ProcessTransaction(context.Background(), &provider.TransactionRequest{
		Type:          provider.TransactionCapture,
		TransactionID: "1",
	})
	assert.True(t, errs.IsGateway(err))
}

func TestSupports(t *testing.T) {
	c := newConnector(t, Config{SecretAPIKey: "skapi_cert_x", ServiceURL: config.PorticoTest})
	assert.True(t, c.Supports(provider.TransactionReverse))
	assert.True(t, c.Supports(provider.TransactionVerify))
	assert.False(t, c.Supports(provider.TransactionBalance))

	_, err := c.ProcessTransaction(context.Background(), &provider.TransactionRequest{Type: provider.TransactionBalance})
	assert.True(t, errs.IsUnsupportedCapability(err))
}

func TestConnector_ImplementsPaymentGateway(t *testing.T) {
	var _ provider.PaymentGateway = (*Connector)(nil)
}
