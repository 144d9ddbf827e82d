package portico

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
	"github.com/mstgnz/unipay/provider"
)

const payPlanName = providerName + "/payplan"

// PayPlanConfig binds a PayPlan connector. ServiceURL already carries the
// PayPlan path for the key's environment.
type PayPlanConfig struct {
	SecretAPIKey string
	ServiceURL   string
	Timeout      time.Duration
	Transport    config.TransportOptions
}

// PayPlan manages customers, stored payment methods and schedules
type PayPlan struct {
	cfg  PayPlanConfig
	http *provider.HTTPClient
}

// NewPayPlan binds a PayPlan connector to cfg
func NewPayPlan(cfg PayPlanConfig) (*PayPlan, error) {
	if cfg.ServiceURL == "" {
		return nil, errs.MissingField(payPlanName, "serviceUrl")
	}
	if cfg.SecretAPIKey == "" {
		return nil, errs.MissingField(payPlanName, "secretApiKey")
	}

	client, err := provider.NewHTTPClient(provider.NewHTTPClientConfig(payPlanName, cfg.ServiceURL, cfg.Timeout, cfg.Transport))
	if err != nil {
		return nil, err
	}

	return &PayPlan{cfg: cfg, http: client}, nil
}

// Config returns the binding of the connector
func (p *PayPlan) Config() PayPlanConfig {
	return p.cfg
}

// ServiceURL returns the endpoint the connector is bound to
func (p *PayPlan) ServiceURL() string {
	return p.cfg.ServiceURL
}

type resourcePaths struct {
	collection string // create
	item       string // edit, delete, get
	keyField   string
}

var payPlanResources = map[provider.RecurringResource]resourcePaths{
	provider.ResourceCustomer:      {collection: "customers", item: "customers", keyField: "customerKey"},
	provider.ResourcePaymentMethod: {collection: "paymentMethodsCreditCard", item: "paymentMethods", keyField: "paymentMethodKey"},
	provider.ResourceSchedule:      {collection: "schedules", item: "schedules", keyField: "scheduleKey"},
}

// ProcessRecurring sends a PayPlan request. Fields not modelled by
// RecurringRequest are passed through from Data.
func (p *PayPlan) ProcessRecurring(ctx context.Context, req *provider.RecurringRequest) (*provider.RecurringResult, error) {
	paths, ok := payPlanResources[req.Resource]
	if !ok {
		return nil, errs.Unsupported(payPlanName, string(req.Action)+" "+string(req.Resource))
	}

	httpReq := &provider.HTTPRequest{
		Headers: map[string]string{"Authorization": p.authorization()},
	}

	switch req.Action {
	case provider.RecurringCreate:
		httpReq.Method = http.MethodPost
		httpReq.Endpoint = paths.collection
		httpReq.Body = payPlanBody(req)
	case provider.RecurringEdit:
		httpReq.Method = http.MethodPut
		httpReq.Endpoint = paths.item + "/" + req.Key
		httpReq.Body = payPlanBody(req)
	case provider.RecurringDelete:
		httpReq.Method = http.MethodDelete
		httpReq.Endpoint = paths.item + "/" + req.Key
	case provider.RecurringGet:
		httpReq.Method = http.MethodGet
		httpReq.Endpoint = paths.item + "/" + req.Key
	default:
		return nil, errs.Unsupported(payPlanName, string(req.Action)+" "+string(req.Resource))
	}

	resp, err := p.http.SendJSON(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	data := map[string]any{}
	if len(resp.Body) > 0 {
		if err := p.http.ParseJSONResponse(resp, &data); err != nil {
			return nil, err
		}
	}

	key, _ := data[paths.keyField].(string)
	return &provider.RecurringResult{
		Success:      true,
		Key:          lo.Ternary(key != "", key, req.Key),
		ResponseCode: fmt.Sprint(resp.StatusCode),
		Data:         flatten(data),
	}, nil
}

// authorization builds the basic auth header PayPlan expects: the secret
// API key as user name with an empty password.
func (p *PayPlan) authorization() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(strings.TrimSpace(p.cfg.SecretAPIKey)+":"))
}

func payPlanBody(req *provider.RecurringRequest) map[string]any {
	body := make(map[string]any, len(req.Data)+4)
	for k, v := range req.Data {
		body[k] = v
	}

	switch req.Resource {
	case provider.ResourceCustomer:
		if req.Action == provider.RecurringCreate {
			body["customerIdentifier"] = lo.Ternary(req.Key != "", req.Key, req.Data["customerIdentifier"])
			if _, ok := body["customerStatus"]; !ok {
				body["customerStatus"] = "Active"
			}
		}
	case provider.ResourcePaymentMethod:
		if req.Card != nil {
			body["accountNumber"] = req.Card.Number
			body["expirationDate"] = fmt.Sprintf("%02d%04d", req.Card.ExpMonth, req.Card.ExpYear)
			if req.Card.HolderName != "" {
				body["nameOnAccount"] = req.Card.HolderName
			}
		}
		if req.Action == provider.RecurringCreate && req.Key != "" {
			body["paymentMethodIdentifier"] = req.Key
		}
	case provider.ResourceSchedule:
		if !req.Amount.IsZero() {
			body["subtotalAmount"] = map[string]string{
				"value":    provider.MinorUnits(req.Amount),
				"currency": strings.ToUpper(lo.Ternary(req.Currency != "", req.Currency, "USD")),
			}
		}
		if req.Action == provider.RecurringCreate && req.Key != "" {
			body["scheduleIdentifier"] = req.Key
		}
	}

	return body
}

// flatten keeps the scalar fields of a PayPlan response as strings
func flatten(data map[string]any) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		switch v := v.(type) {
		case nil, map[string]any, []any:
			continue
		case string:
			out[k] = v
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
