// Package portico implements the default gateway connector and its PayPlan
// recurring billing service.
package portico

import (
	"context"
	"encoding/xml"
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
	providerName = string(config.ProviderPortico)

	soapNS = "http://schemas.xmlsoap.org/soap/envelope/"
)

var transactionElements = map[provider.TransactionType]string{
	provider.TransactionSale:    "CreditSale",
	provider.TransactionAuth:    "CreditAuth",
	provider.TransactionCapture: "CreditAddToBatch",
	provider.TransactionRefund:  "CreditReturn",
	provider.TransactionReverse: "CreditReversal",
	provider.TransactionVoid:    "CreditVoid",
	provider.TransactionVerify:  "CreditAccountVerify",
}

// approvalCodes are issuer response codes that count as approvals
var approvalCodes = map[string]bool{"0": true, "00": true, "10": true, "85": true}

// Config is the credential set and endpoint a Connector is bound to. Either
// SecretAPIKey or the SiteID/LicenseID/DeviceID/Username/Password set is used.
type Config struct {
	SiteID        string
	LicenseID     string
	DeviceID      string
	Username      string
	Password      string
	SecretAPIKey  string
	DeveloperID   string
	VersionNumber string
	ServiceURL    string
	Timeout       time.Duration
	Transport     config.TransportOptions
}

// Connector talks to the portico POS gateway
type Connector struct {
	cfg  Config
	http *provider.HTTPClient
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

	return &Connector{cfg: cfg, http: client}, nil
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
	_, ok := transactionElements[t]
	return ok
}

type envelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	SoapNS  string   `xml:"xmlns:soap,attr"`
	Body    struct {
		Request posRequest `xml:"http://Hps.Exchange.PosGateway PosRequest"`
	} `xml:"soap:Body"`
}

type posRequest struct {
	Ver struct {
		Header      header      `xml:"Header"`
		Transaction transaction `xml:"Transaction"`
	} `xml:"Ver1.0"`
}

type header struct {
	SecretAPIKey string `xml:"SecretAPIKey,omitempty"`
	SiteID       string `xml:"SiteId,omitempty"`
	LicenseID    string `xml:"LicenseId,omitempty"`
	DeviceID     string `xml:"DeviceId,omitempty"`
	UserName     string `xml:"UserName,omitempty"`
	Password     string `xml:"Password,omitempty"`
	DeveloperID  string `xml:"DeveloperID,omitempty"`
	VersionNbr   string `xml:"VersionNbr,omitempty"`
	ClientTxnID  string `xml:"ClientTxnId,omitempty"`
}

type transaction struct {
	Element *transactionElement
}

type transactionElement struct {
	XMLName      xml.Name
	GatewayTxnID string  `xml:"GatewayTxnId,omitempty"`
	Block1       *block1 `xml:"Block1,omitempty"`
}

type block1 struct {
	AllowDup            string               `xml:"AllowDup,omitempty"`
	Amt                 string               `xml:"Amt,omitempty"`
	GatewayTxnID        string               `xml:"GatewayTxnId,omitempty"`
	CardData            *cardData            `xml:"CardData,omitempty"`
	AdditionalTxnFields *additionalTxnFields `xml:"AdditionalTxnFields,omitempty"`
}

type cardData struct {
	ManualEntry *manualEntry `xml:"ManualEntry,omitempty"`
	TokenValue  string       `xml:"TokenData>TokenValue,omitempty"`
}

type manualEntry struct {
	CardNbr  string `xml:"CardNbr"`
	ExpMonth int    `xml:"ExpMonth"`
	ExpYear  int    `xml:"ExpYear"`
	CVV2     string `xml:"CVV2,omitempty"`
}

type additionalTxnFields struct {
	Description string `xml:"Description,omitempty"`
	InvoiceNbr  string `xml:"InvoiceNbr,omitempty"`
}

type responseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Response struct {
			Ver struct {
				Header struct {
					GatewayTxnID   string `xml:"GatewayTxnId"`
					GatewayRspCode string `xml:"GatewayRspCode"`
					GatewayRspMsg  string `xml:"GatewayRspMsg"`
					ClientTxnID    string `xml:"ClientTxnId"`
				} `xml:"Header"`
				Transaction struct {
					Result struct {
						RspCode  string `xml:"RspCode"`
						RspText  string `xml:"RspText"`
						AuthCode string `xml:"AuthCode"`
					} `xml:",any"`
				} `xml:"Transaction"`
			} `xml:"Ver1.0"`
		} `xml:"PosResponse"`
	} `xml:"Body"`
}

// ProcessTransaction sends a payment request. Follow-up operations address
// the original transaction by its gateway transaction id.
func (c *Connector) ProcessTransaction(ctx context.Context, req *provider.TransactionRequest) (*provider.TransactionResult, error) {
	name, ok := transactionElements[req.Type]
	if !ok {
		return nil, errs.Unsupported(providerName, string(req.Type))
	}

	clientTxnID := lo.Ternary(req.OrderID != "", req.OrderID, uuid.NewString())

	env := &envelope{SoapNS: soapNS}
	env.Body.Request.Ver.Header = c.header(clientTxnID)
	env.Body.Request.Ver.Transaction.Element = buildElement(name, req)

	httpResp, err := c.http.SendXML(ctx, &provider.HTTPRequest{
		Method: http.MethodPost,
		Body:   env,
	})
	if err != nil {
		return nil, err
	}

	var resp responseEnvelope
	if err := c.http.ParseXMLResponse(httpResp, &resp); err != nil {
		return nil, err
	}
	ver := resp.Body.Response.Ver
	if ver.Header.GatewayRspCode == "" {
		return nil, errs.Gateway(errors.New("response has no gateway response code"), providerName)
	}

	result := &provider.TransactionResult{
		TransactionID: ver.Header.GatewayTxnID,
		OrderID:       clientTxnID,
		AuthCode:      ver.Transaction.Result.AuthCode,
		Amount:        req.Amount,
		Provider:      providerName,
	}

	switch {
	case ver.Header.GatewayRspCode != "0":
		result.Status = provider.StatusError
		result.ResponseCode = ver.Header.GatewayRspCode
		result.ResponseMessage = ver.Header.GatewayRspMsg
	case ver.Transaction.Result.RspCode == "" || approvalCodes[ver.Transaction.Result.RspCode]:
		result.Status = provider.StatusApproved
		result.ResponseCode = lo.Ternary(ver.Transaction.Result.RspCode != "", ver.Transaction.Result.RspCode, "00")
		result.ResponseMessage = lo.Ternary(ver.Transaction.Result.RspText != "", ver.Transaction.Result.RspText, ver.Header.GatewayRspMsg)
	default:
		result.Status = provider.StatusDeclined
		result.ResponseCode = ver.Transaction.Result.RspCode
		result.ResponseMessage = ver.Transaction.Result.RspText
	}

	return result, nil
}

func (c *Connector) header(clientTxnID string) header {
	h := header{
		DeveloperID: c.cfg.DeveloperID,
		VersionNbr:  c.cfg.VersionNumber,
		ClientTxnID: clientTxnID,
	}
	if c.cfg.SecretAPIKey != "" {
		h.SecretAPIKey = strings.TrimSpace(c.cfg.SecretAPIKey)
		return h
	}
	h.SiteID = c.cfg.SiteID
	h.LicenseID = c.cfg.LicenseID
	h.DeviceID = c.cfg.DeviceID
	h.UserName = c.cfg.Username
	h.Password = c.cfg.Password
	return h
}

func buildElement(name string, req *provider.TransactionRequest) *transactionElement {
	el := &transactionElement{XMLName: xml.Name{Local: name}}

	// capture and void carry the reference directly, without a Block1
	if req.Type == provider.TransactionCapture || req.Type == provider.TransactionVoid {
		el.GatewayTxnID = req.TransactionID
		return el
	}

	b := &block1{GatewayTxnID: req.TransactionID}
	if !req.Amount.IsZero() {
		b.Amt = req.Amount.StringFixed(2)
	}
	if req.Type == provider.TransactionSale || req.Type == provider.TransactionAuth {
		b.AllowDup = "Y"
	}
	if req.Description != "" || req.InvoiceNumber != "" {
		b.AdditionalTxnFields = &additionalTxnFields{Description: req.Description, InvoiceNbr: req.InvoiceNumber}
	}
	switch {
	case req.Card != nil:
		b.CardData = &cardData{ManualEntry: &manualEntry{
			CardNbr:  req.Card.Number,
			ExpMonth: req.Card.ExpMonth,
			ExpYear:  req.Card.ExpYear,
			CVV2:     req.Card.CVN,
		}}
	case req.Token != "":
		b.CardData = &cardData{TokenValue: req.Token}
	}
	el.Block1 = b
	return el
}
