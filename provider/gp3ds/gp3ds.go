// Package gp3ds implements the 3-D Secure version two authentication provider
// used alongside the ecom gateway.
package gp3ds

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
	"github.com/mstgnz/unipay/provider"
)

const (
	providerName = string(config.ProviderEcom) + "/3ds2"

	timestampLayout = "2006-01-02T15:04:05.000000"
	apiVersion      = "2.2.0"

	endpointProtocolVersions = "protocol-versions"
	endpointAuthentications  = "authentications"
)

// Config is the binding of a Provider
type Config struct {
	MerchantID               string
	AccountID                string
	SharedSecret             string
	MethodNotificationURL    string
	ChallengeNotificationURL string
	MerchantContactURL       string
	ServiceURL               string
	Timeout                  time.Duration
}

// Provider authenticates cardholders with 3-D Secure version two
type Provider struct {
	cfg  Config
	http *provider.HTTPClient
	now  func() time.Time
}

// New binds a provider to serviceURL. Credentials and callback URLs are set
// with the setters before the provider is published.
func New(serviceURL string, timeout time.Duration, transport config.TransportOptions) (*Provider, error) {
	if serviceURL == "" {
		return nil, errs.MissingField(providerName, "serviceUrl")
	}

	client, err := provider.NewHTTPClient(provider.NewHTTPClientConfig(providerName, serviceURL, timeout, transport))
	if err != nil {
		return nil, err
	}

	return &Provider{
		cfg:  Config{ServiceURL: serviceURL, Timeout: client.Timeout()},
		http: client,
		now:  time.Now,
	}, nil
}

func (p *Provider) SetMerchantID(v string)               { p.cfg.MerchantID = v }
func (p *Provider) SetAccountID(v string)                { p.cfg.AccountID = v }
func (p *Provider) SetSharedSecret(v string)             { p.cfg.SharedSecret = v }
func (p *Provider) SetMethodNotificationURL(v string)    { p.cfg.MethodNotificationURL = v }
func (p *Provider) SetChallengeNotificationURL(v string) { p.cfg.ChallengeNotificationURL = v }
func (p *Provider) SetMerchantContactURL(v string)       { p.cfg.MerchantContactURL = v }

// Config returns the binding of the provider
func (p *Provider) Config() Config {
	return p.cfg
}

// ServiceURL returns the endpoint the provider is bound to
func (p *Provider) ServiceURL() string {
	return p.cfg.ServiceURL
}

// Version reports the 3-D Secure version the provider implements
func (p *Provider) Version() config.Secure3dVersion {
	return config.Secure3dTwo
}

type cardData struct {
	Number     string `json:"number"`
	Scheme     string `json:"scheme,omitempty"`
	ExpiryDate string `json:"expiry_date,omitempty"`
	HolderName string `json:"cardholder_name,omitempty"`
}

type orderData struct {
	ID       string `json:"id,omitempty"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type protocolVersionRequest struct {
	RequestTimestamp      string `json:"request_timestamp"`
	MerchantID            string `json:"merchant_id"`
	AccountID             string `json:"account_id"`
	Number                string `json:"number"`
	Scheme                string `json:"scheme"`
	MethodNotificationURL string `json:"method_notification_url"`
}

type authenticationRequest struct {
	RequestTimestamp         string            `json:"request_timestamp"`
	MerchantID               string            `json:"merchant_id"`
	AccountID                string            `json:"account_id"`
	ServerTransID            string            `json:"server_trans_id"`
	Card                     *cardData         `json:"card_detail,omitempty"`
	Order                    *orderData        `json:"order,omitempty"`
	BrowserData              map[string]string `json:"browser_data,omitempty"`
	ChallengeNotificationURL string            `json:"challenge_notification_url"`
	MerchantContactURL       string            `json:"merchant_contact_url,omitempty"`
}

type apiResponse struct {
	Enrolled               string `json:"enrolled"`
	ServerTransID          string `json:"server_trans_id"`
	Status                 string `json:"status"`
	ChallengeMandated      bool   `json:"challenge_mandated"`
	ChallengeRequestURL    string `json:"acs_challenge_request_url"`
	MethodURL              string `json:"method_url"`
	ECI                    string `json:"eci"`
	AuthenticationValue    string `json:"authentication_value"`
	MessageVersion         string `json:"message_version"`
	AcsEndProtocolVersion  string `json:"acs_end_protocol_version"`
	ChallengeRequestBase64 string `json:"encoded_creq"`
}

// ProcessSecure3D runs the enrollment check, authentication and result
// lookup steps of 3-D Secure version two.
func (p *Provider) ProcessSecure3D(ctx context.Context, req *provider.Secure3DRequest) (*provider.Secure3DResult, error) {
	timestamp := p.now().UTC().Format(timestampLayout)

	var (
		httpReq *provider.HTTPRequest
		hash    string
	)

	switch req.Step {
	case provider.StepCheckEnrollment:
		if req.Card == nil {
			return nil, errs.InvalidRequest("card is required for %s", req.Step)
		}
		hash = p.sign(timestamp, p.cfg.MerchantID, req.Card.Number, req.Card.Brand(), p.cfg.MethodNotificationURL)
		httpReq = &provider.HTTPRequest{
			Method:   http.MethodPost,
			Endpoint: endpointProtocolVersions,
			Body: protocolVersionRequest{
				RequestTimestamp:      timestamp,
				MerchantID:            p.cfg.MerchantID,
				AccountID:             p.cfg.AccountID,
				Number:                req.Card.Number,
				Scheme:                req.Card.Brand(),
				MethodNotificationURL: p.cfg.MethodNotificationURL,
			},
		}

	case provider.StepInitiateAuthentication:
		if req.ServerTransactionID == "" {
			return nil, errs.InvalidRequest("serverTransactionId is required for %s", req.Step)
		}
		body := authenticationRequest{
			RequestTimestamp:         timestamp,
			MerchantID:               p.cfg.MerchantID,
			AccountID:                p.cfg.AccountID,
			ServerTransID:            req.ServerTransactionID,
			BrowserData:              req.BrowserData,
			ChallengeNotificationURL: p.cfg.ChallengeNotificationURL,
			MerchantContactURL:       p.cfg.MerchantContactURL,
			Order: &orderData{
				ID:       req.OrderID,
				Amount:   provider.MinorUnits(req.Amount),
				Currency: lo.Ternary(req.Currency != "", strings.ToUpper(req.Currency), "EUR"),
			},
		}
		number := ""
		if req.Card != nil {
			number = req.Card.Number
			body.Card = &cardData{
				Number:     req.Card.Number,
				Scheme:     req.Card.Brand(),
				ExpiryDate: req.Card.ExpiryMMYY(),
				HolderName: req.Card.HolderName,
			}
		}
		hash = p.sign(timestamp, p.cfg.MerchantID, number, req.ServerTransactionID)
		httpReq = &provider.HTTPRequest{
			Method:   http.MethodPost,
			Endpoint: endpointAuthentications,
			Body:     body,
		}

	case provider.StepGetAuthenticationData:
		if req.ServerTransactionID == "" {
			return nil, errs.InvalidRequest("serverTransactionId is required for %s", req.Step)
		}
		hash = p.sign(timestamp, p.cfg.MerchantID, req.ServerTransactionID)
		httpReq = &provider.HTTPRequest{
			Method:   http.MethodGet,
			Endpoint: endpointAuthentications,
			QueryParams: map[string]string{
				"merchant_id":       p.cfg.MerchantID,
				"request_timestamp": timestamp,
				"server_trans_id":   req.ServerTransactionID,
			},
		}

	default:
		return nil, errs.InvalidRequest("step %s is not part of 3-D Secure version two", req.Step)
	}

	httpReq.Headers = map[string]string{
		"Authorization": "securehash " + hash,
		"X-GP-Version":  apiVersion,
	}

	resp, err := p.http.SendJSON(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	var body apiResponse
	if err := p.http.ParseJSONResponse(resp, &body); err != nil {
		return nil, err
	}

	return &provider.Secure3DResult{
		Version:             config.Secure3dTwo,
		Enrolled:            body.Enrolled == "ENROLLED",
		Status:              lo.Ternary(body.Status != "", body.Status, body.Enrolled),
		ServerTransactionID: lo.Ternary(body.ServerTransID != "", body.ServerTransID, req.ServerTransactionID),
		IssuerACSURL:        lo.Ternary(body.ChallengeRequestURL != "", body.ChallengeRequestURL, body.MethodURL),
		PayerAuthRequest:    body.ChallengeRequestBase64,
		ChallengeMandated:   body.ChallengeMandated,
		ECI:                 body.ECI,
		AuthenticationValue: body.AuthenticationValue,
		MessageVersion:      lo.Ternary(body.MessageVersion != "", body.MessageVersion, body.AcsEndProtocolVersion),
	}, nil
}

// sign hashes fields the way the ecom gateway signs requests
func (p *Provider) sign(fields ...string) string {
	first := sha1.Sum([]byte(strings.Join(fields, ".")))
	second := sha1.Sum([]byte(hex.EncodeToString(first[:]) + "." + p.cfg.SharedSecret))
	return hex.EncodeToString(second[:])
}
