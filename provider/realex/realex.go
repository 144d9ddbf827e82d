// Package realex implements the ecom gateway connector. One Connector serves
// payments, recurring billing and version one 3-D Secure.
package realex

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
	"github.com/mstgnz/unipay/provider"
)

const (
	providerName = string(config.ProviderEcom)

	timestampLayout = "20060102150405"
	defaultCurrency = "EUR"

	resultApproved = "00"
)

var requestTypes = map[provider.TransactionType]string{
	provider.TransactionSale:    "auth",
	provider.TransactionAuth:    "auth",
	provider.TransactionCapture: "settle",
	provider.TransactionRefund:  "rebate",
	provider.TransactionVoid:    "void",
	provider.TransactionVerify:  "otb",
}

// Config is the credential set and endpoint a Connector is bound to
type Config struct {
	MerchantID          string
	AccountID           string
	Channel             string
	SharedSecret        string
	RebatePassword      string
	RefundPassword      string
	HostedPaymentConfig config.HostedPaymentConfig
	ServiceURL          string
	Timeout             time.Duration
	Transport           config.TransportOptions
}

// Connector talks to the ecom gateway's XML API
type Connector struct {
	cfg  Config
	http *provider.HTTPClient
	now  func() time.Time
}

// New binds a connector to cfg
func New(cfg Config) (*Connector, error) {
	if cfg.ServiceURL == "" {
		return nil, errs.MissingField(providerName, "serviceUrl")
	}

	client, err := provider.NewHTTPClient(provider.NewHTTPClientConfig(providerName, cfg.ServiceURL, cfg.Timeout, cfg.Transport))
	if err != nil {
		return nil, err
	}

	return &Connector{
		cfg:  cfg,
		http: client,
		now:  time.Now,
	}, nil
}

// Config returns the binding of the connector
func (c *Connector) Config() Config {
	return c.cfg
}

// ServiceURL returns the endpoint the connector is bound to
func (c *Connector) ServiceURL() string {
	return c.cfg.ServiceURL
}

// Supports reports whether the gateway handles t
func (c *Connector) Supports(t provider.TransactionType) bool {
	_, ok := requestTypes[t]
	return ok
}

// ProcessTransaction sends a payment request
func (c *Connector) ProcessTransaction(ctx context.Context, req *provider.TransactionRequest) (*provider.TransactionResult, error) {
	requestType, ok := requestTypes[req.Type]
	if !ok {
		return nil, errs.Unsupported(providerName, string(req.Type))
	}

	timestamp := c.now().Format(timestampLayout)
	orderID := lo.Ternary(req.OrderID != "", req.OrderID, newOrderID())
	currency := currencyOrDefault(req.Currency)
	minor := ""
	if !req.Amount.IsZero() {
		minor = provider.MinorUnits(req.Amount)
	}

	msg := &request{
		Type:       requestType,
		Timestamp:  timestamp,
		MerchantID: c.cfg.MerchantID,
		Account:    c.cfg.AccountID,
		Channel:    c.cfg.Channel,
		OrderID:    orderID,
		PasRef:     req.TransactionID,
	}
	if minor != "" {
		msg.Amount = &amount{Currency: currency, Value: minor}
	}
	if req.Description != "" {
		msg.Comments = &comments{Comment: []comment{{ID: 1, Value: req.Description}}}
	}

	cardNumber := ""
	switch req.Type {
	case provider.TransactionSale, provider.TransactionAuth, provider.TransactionVerify:
		if req.Card != nil {
			msg.Card = toCard(req.Card)
			cardNumber = req.Card.Number
		} else {
			msg.PayerRef = req.Token
			msg.PaymentMethod = req.Token
			msg.Type = "receipt-in"
		}
		if req.Type != provider.TransactionVerify {
			msg.AutoSettle = &autoSettle{Flag: lo.Ternary(req.Type == provider.TransactionSale, "1", "0")}
		}
		if mode := c.cfg.HostedPaymentConfig.FraudFilterMode; mode != "" {
			msg.FraudFilter = &fraudFilter{Mode: mode}
		}
	case provider.TransactionRefund:
		msg.RefundHash = sha1Hex(c.cfg.RebatePassword)
	}

	reference := lo.Ternary(msg.Type == "receipt-in", req.Token, cardNumber)
	msg.SHA1Hash = sign(c.cfg.SharedSecret, timestamp, c.cfg.MerchantID, orderID, minor, lo.Ternary(minor != "", currency, ""), reference)

	resp, err := c.send(ctx, msg)
	if err != nil {
		return nil, err
	}

	return &provider.TransactionResult{
		Status:          status(resp.Result),
		TransactionID:   resp.PasRef,
		OrderID:         lo.Ternary(resp.OrderID != "", resp.OrderID, orderID),
		AuthCode:        resp.AuthCode,
		ResponseCode:    resp.Result,
		ResponseMessage: resp.Message,
		Amount:          req.Amount,
		Provider:        providerName,
	}, nil
}

func (c *Connector) send(ctx context.Context, msg *request) (*response, error) {
	httpResp, err := c.http.SendXML(ctx, &provider.HTTPRequest{
		Method: http.MethodPost,
		Body:   msg,
	})
	if err != nil {
		return nil, err
	}

	var resp response
	if err := c.http.ParseXMLResponse(httpResp, &resp); err != nil {
		return nil, err
	}
	if err := c.verify(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// verify checks the response signature when the gateway sends one
func (c *Connector) verify(resp *response) error {
	if resp.SHA1Hash == "" {
		return nil
	}
	expected := sign(c.cfg.SharedSecret, resp.Timestamp, resp.MerchantID, resp.OrderID, resp.Result, resp.Message, resp.PasRef, resp.AuthCode)
	if !strings.EqualFold(expected, resp.SHA1Hash) {
		return errs.Gateway(errors.New("response signature mismatch"), providerName)
	}
	return nil
}

func toCard(c *provider.Card) *card {
	out := &card{
		Number:     c.Number,
		ExpDate:    c.ExpiryMMYY(),
		HolderName: c.HolderName,
		Type:       c.Brand(),
	}
	if c.CVN != "" {
		out.CVN = &cvn{Number: c.CVN, PresInd: "1"}
	}
	return out
}

// status maps a gateway result code: 00 approves, 1xx declines
func status(result string) provider.TransactionStatus {
	switch {
	case result == resultApproved:
		return provider.StatusApproved
	case strings.HasPrefix(result, "1"):
		return provider.StatusDeclined
	}
	return provider.StatusError
}

func currencyOrDefault(currency string) string {
	return lo.Ternary(currency != "", strings.ToUpper(currency), defaultCurrency)
}

func newOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
