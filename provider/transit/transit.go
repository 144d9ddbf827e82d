// Package transit implements the transit gateway connector. Requests are JSON
// documents keyed by the operation name.
package transit

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
	"github.com/mstgnz/unipay/infra/logger"
	"github.com/mstgnz/unipay/provider"
)

const (
	providerName = string(config.ProviderTransit)

	opGenerateKey = "GenerateKey"
	statusPass    = "PASS"
)

var operations = map[provider.TransactionType]string{
	provider.TransactionSale:    "Sale",
	provider.TransactionAuth:    "Auth",
	provider.TransactionCapture: "Capture",
	provider.TransactionRefund:  "Return",
	provider.TransactionVoid:    "Void",
	provider.TransactionVerify:  "CardAuthentication",
}

// Config is the credential set and endpoint a Connector is bound to. When
// TransactionKey is empty the connector generates one from Username and
// Password on first use.
type Config struct {
	DeviceID       string
	MerchantID     string
	TransactionKey string
	Manifest       string
	Username       string
	Password       string
	DeveloperID    string
	AcceptorConfig config.AcceptorConfig
	ServiceURL     string
	Timeout        time.Duration
	Transport      config.TransportOptions
}

// Connector talks to the transit gateway
type Connector struct {
	cfg  Config
	http *provider.HTTPClient

	mu  sync.Mutex
	key string
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

	return &Connector{cfg: cfg, http: client, key: cfg.TransactionKey}, nil
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
	_, ok := operations[t]
	return ok
}

type transactionBody struct {
	DeviceID          string `json:"deviceID"`
	TransactionKey    string `json:"transactionKey"`
	DeveloperID       string `json:"developerID,omitempty"`
	CardNumber        string `json:"cardNumber,omitempty"`
	ExpirationDate    string `json:"expirationDate,omitempty"`
	CVV2              string `json:"cvv2,omitempty"`
	CardHolderName    string `json:"cardHolderName,omitempty"`
	CardOnFileToken   string `json:"cardOnFileTransactionIdentifier,omitempty"`
	TransactionAmount string `json:"transactionAmount,omitempty"`
	TransactionID     string `json:"transactionID,omitempty"`
	OrderNumber       string `json:"orderNumber,omitempty"`
	InvoiceNumber     string `json:"invoiceNumber,omitempty"`
	Notes             string `json:"notes,omitempty"`

	TerminalCapability             string `json:"terminalCapability,omitempty"`
	TerminalOperatingEnvironment   string `json:"terminalOperatingEnvironment,omitempty"`
	CardholderAuthenticationMethod string `json:"cardholderAuthenticationMethod,omitempty"`
	TerminalOutputCapability       string `json:"terminalOutputCapability,omitempty"`
}

type generateKeyBody struct {
	MID         string `json:"mid"`
	UserID      string `json:"userID"`
	Password    string `json:"password"`
	DeveloperID string `json:"developerID,omitempty"`
}

type apiResponse struct {
	Status          string `json:"status"`
	ResponseCode    string `json:"responseCode"`
	ResponseMessage string `json:"responseMessage"`
	AuthCode        string `json:"authCode"`
	TransactionID   string `json:"transactionID"`
	TransactionKey  string `json:"transactionKey"`
	OrderNumber     string `json:"orderNumber"`
}

// ProcessTransaction sends a payment request
func (c *Connector) ProcessTransaction(ctx context.Context, req *provider.TransactionRequest) (*provider.TransactionResult, error) {
	name, ok := operations[req.Type]
	if !ok {
		return nil, errs.Unsupported(providerName, string(req.Type))
	}

	key, err := c.transactionKey(ctx)
	if err != nil {
		return nil, err
	}

	body := transactionBody{
		DeviceID:       c.cfg.DeviceID,
		TransactionKey: key,
		DeveloperID:    c.cfg.DeveloperID,
		TransactionID:  req.TransactionID,
		OrderNumber:    req.OrderID,
		InvoiceNumber:  req.InvoiceNumber,
		Notes:          req.Description,

		TerminalCapability:             c.cfg.AcceptorConfig.CardDataInputCapability,
		TerminalOperatingEnvironment:   c.cfg.AcceptorConfig.OperatingEnvironment,
		CardholderAuthenticationMethod: c.cfg.AcceptorConfig.CardHolderAuthenticationCapability,
		TerminalOutputCapability:       c.cfg.AcceptorConfig.TerminalOutputCapability,
	}
	if !req.Amount.IsZero() {
		body.TransactionAmount = req.Amount.StringFixed(2)
	}
	if card := req.Card; card != nil {
		body.CardNumber = card.Number
		body.ExpirationDate = card.ExpiryMMYY()
		body.CVV2 = card.CVN
		body.CardHolderName = card.HolderName
	} else if req.Token != "" {
		body.CardOnFileToken = req.Token
	}

	resp, err := c.call(ctx, name, body)
	if err != nil {
		return nil, err
	}

	return &provider.TransactionResult{
		Status:          status(resp),
		TransactionID:   resp.TransactionID,
		OrderID:         lo.Ternary(resp.OrderNumber != "", resp.OrderNumber, req.OrderID),
		AuthCode:        resp.AuthCode,
		ResponseCode:    resp.ResponseCode,
		ResponseMessage: resp.ResponseMessage,
		Amount:          req.Amount,
		Provider:        providerName,
	}, nil
}

// transactionKey returns the configured key, generating and caching one from
// the username and password when none was configured.
func (c *Connector) transactionKey(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key != "" {
		return c.key, nil
	}
	if c.cfg.Username == "" || c.cfg.Password == "" {
		return "", errs.MissingField(providerName, "transactionKey")
	}

	resp, err := c.call(ctx, opGenerateKey, generateKeyBody{
		MID:         c.cfg.MerchantID,
		UserID:      c.cfg.Username,
		Password:    c.cfg.Password,
		DeveloperID: c.cfg.DeveloperID,
	})
	if err != nil {
		return "", err
	}
	if resp.Status != statusPass || resp.TransactionKey == "" {
		return "", errs.Gateway(errors.Newf("transaction key generation failed: %s %s", resp.ResponseCode, resp.ResponseMessage), providerName)
	}

	logger.Info("Generated transit transaction key", logger.LogContext{
		Provider: providerName,
		Fields:   map[string]any{"merchantId": c.cfg.MerchantID, "deviceId": c.cfg.DeviceID},
	})

	c.key = resp.TransactionKey
	return c.key, nil
}

func (c *Connector) call(ctx context.Context, operation string, body any) (*apiResponse, error) {
	httpResp, err := c.http.SendJSON(ctx, &provider.HTTPRequest{
		Method: http.MethodPost,
		Body:   map[string]any{operation: body},
	})
	if err != nil {
		return nil, err
	}

	var envelope map[string]apiResponse
	if err := c.http.ParseJSONResponse(httpResp, &envelope); err != nil {
		return nil, err
	}

	resp, ok := envelope[operation+"Response"]
	if !ok {
		return nil, errs.Gateway(errors.Newf("response has no %sResponse element", operation), providerName)
	}
	return &resp, nil
}

// status maps the gateway outcome: PASS with an A-code approves, D-codes
// decline.
func status(resp *apiResponse) provider.TransactionStatus {
	switch {
	case resp.Status == statusPass && strings.HasPrefix(resp.ResponseCode, "A"):
		return provider.StatusApproved
	case strings.HasPrefix(resp.ResponseCode, "D"):
		return provider.StatusDeclined
	}
	return provider.StatusError
}
