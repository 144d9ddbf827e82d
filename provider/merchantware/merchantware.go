// Package merchantware implements the legacy merchantware connector. It
// speaks the v4.5 Credit SOAP service and has no recurring billing.
package merchantware

import (
	"context"
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
	"github.com/mstgnz/unipay/provider"
)

const (
	providerName = string(config.ProviderMerchantware)

	namespace  = "http://schemas.merchantwarehouse.com/merchantware/v45/"
	soapAction = namespace + "Credit/"
	soapNS     = "http://schemas.xmlsoap.org/soap/envelope/"
)

var operations = map[provider.TransactionType]string{
	provider.TransactionSale:    "Sale",
	provider.TransactionAuth:    "Authorize",
	provider.TransactionCapture: "Capture",
	provider.TransactionRefund:  "Refund",
	provider.TransactionVoid:    "Void",
}

// Config is the credential set and endpoint a Connector is bound to
type Config struct {
	MerchantName   string
	MerchantSiteID string
	MerchantKey    string
	RegisterNumber string
	TerminalID     string
	ServiceURL     string
	Timeout        time.Duration
	Transport      config.TransportOptions
}

// Connector talks to the merchantware Credit service
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
	_, ok := operations[t]
	return ok
}

type envelope struct {
	XMLName xml.Name `xml:"soap:Envelope"`
	SoapNS  string   `xml:"xmlns:soap,attr"`
	Body    struct {
		Operation *operation
	} `xml:"soap:Body"`
}

type operation struct {
	XMLName     xml.Name
	Credentials credentials  `xml:"Credentials"`
	PaymentData *paymentData `xml:"PaymentData,omitempty"`
	Request     txnRequest   `xml:"Request"`
}

type credentials struct {
	MerchantName   string `xml:"MerchantName"`
	MerchantSiteID string `xml:"MerchantSiteId"`
	MerchantKey    string `xml:"MerchantKey"`
}

type paymentData struct {
	Source                string `xml:"Source"`
	CardNumber            string `xml:"CardNumber,omitempty"`
	ExpirationDate        string `xml:"ExpirationDate,omitempty"`
	CardHolder            string `xml:"CardHolder,omitempty"`
	CardVerificationValue string `xml:"CardVerificationValue,omitempty"`
	VaultToken            string `xml:"VaultToken,omitempty"`
}

type txnRequest struct {
	Token                  string `xml:"Token,omitempty"`
	Amount                 string `xml:"Amount,omitempty"`
	InvoiceNumber          string `xml:"InvoiceNumber,omitempty"`
	RegisterNumber         string `xml:"RegisterNumber,omitempty"`
	MerchantTransactionID  string `xml:"MerchantTransactionId,omitempty"`
	CardAcceptorTerminalID string `xml:"CardAcceptorTerminalId,omitempty"`
}

type responseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault    *fault `xml:"Fault"`
		Response struct {
			Result transactionResponse `xml:",any"`
		} `xml:",any"`
	} `xml:"Body"`
}

type fault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type transactionResponse struct {
	ApprovalStatus    string `xml:"ApprovalStatus"`
	Token             string `xml:"Token"`
	AuthorizationCode string `xml:"AuthorizationCode"`
	ErrorMessage      string `xml:"ErrorMessage"`
	Amount            string `xml:"Amount"`
	InvoiceNumber     string `xml:"InvoiceNumber"`
}

// ProcessTransaction sends a payment request. Follow-up operations address
// the original transaction by its token in TransactionID.
func (c *Connector) ProcessTransaction(ctx context.Context, req *provider.TransactionRequest) (*provider.TransactionResult, error) {
	name, ok := operations[req.Type]
	if !ok {
		return nil, errs.Unsupported(providerName, string(req.Type))
	}

	op := &operation{
		XMLName: xml.Name{Space: namespace, Local: name},
		Credentials: credentials{
			MerchantName:   c.cfg.MerchantName,
			MerchantSiteID: c.cfg.MerchantSiteID,
			MerchantKey:    c.cfg.MerchantKey,
		},
		Request: txnRequest{
			Token:                  req.TransactionID,
			InvoiceNumber:          lo.Ternary(req.InvoiceNumber != "", req.InvoiceNumber, req.OrderID),
			RegisterNumber:         c.cfg.RegisterNumber,
			MerchantTransactionID:  req.OrderID,
			CardAcceptorTerminalID: c.cfg.TerminalID,
		},
	}
	if !req.Amount.IsZero() {
		op.Request.Amount = req.Amount.StringFixed(2)
	}

	if req.Type == provider.TransactionSale || req.Type == provider.TransactionAuth {
		switch {
		case req.Card != nil:
			op.PaymentData = &paymentData{
				Source:                "Keyed",
				CardNumber:            req.Card.Number,
				ExpirationDate:        req.Card.ExpiryMMYY(),
				CardHolder:            req.Card.HolderName,
				CardVerificationValue: req.Card.CVN,
			}
		case req.Token != "":
			op.PaymentData = &paymentData{Source: "Vault", VaultToken: req.Token}
		}
	}

	env := &envelope{SoapNS: soapNS}
	env.Body.Operation = op

	httpResp, err := c.http.SendXML(ctx, &provider.HTTPRequest{
		Method:  http.MethodPost,
		Headers: map[string]string{"SOAPAction": soapAction + name},
		Body:    env,
	})
	if err != nil {
		return nil, err
	}

	var resp responseEnvelope
	if err := c.http.ParseXMLResponse(httpResp, &resp); err != nil {
		return nil, err
	}
	if f := resp.Body.Fault; f != nil {
		return nil, errs.Gateway(errors.Newf("soap fault %s: %s", f.Code, f.String), providerName)
	}

	result := resp.Body.Response.Result
	code, message := splitApproval(result.ApprovalStatus)

	return &provider.TransactionResult{
		Status:          status(code),
		TransactionID:   result.Token,
		OrderID:         req.OrderID,
		AuthCode:        result.AuthorizationCode,
		ResponseCode:    code,
		ResponseMessage: lo.Ternary(result.ErrorMessage != "", result.ErrorMessage, message),
		Amount:          req.Amount,
		Provider:        providerName,
	}, nil
}

// splitApproval separates "DECLINED;1024;call issuer" into its status and
// detail parts.
func splitApproval(approval string) (string, string) {
	code, detail, _ := strings.Cut(approval, ";")
	return strings.ToUpper(strings.TrimSpace(code)), detail
}

func status(code string) provider.TransactionStatus {
	switch code {
	case "APPROVED":
		return provider.StatusApproved
	case "DECLINED", "DECLINED,DUPLICATE":
		return provider.StatusDeclined
	}
	return provider.StatusError
}
