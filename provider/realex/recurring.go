package realex

import (
	"context"

	"github.com/samber/lo"

	"github.com/mstgnz/unipay/infra/errs"
	"github.com/mstgnz/unipay/provider"
)

type recurringKey struct {
	resource provider.RecurringResource
	action   provider.RecurringAction
}

var recurringTypes = map[recurringKey]string{
	{provider.ResourceCustomer, provider.RecurringCreate}:      "payer-new",
	{provider.ResourceCustomer, provider.RecurringEdit}:        "payer-edit",
	{provider.ResourcePaymentMethod, provider.RecurringCreate}: "card-new",
	{provider.ResourcePaymentMethod, provider.RecurringEdit}:   "card-update-card",
	{provider.ResourcePaymentMethod, provider.RecurringDelete}: "card-cancel-card",
	{provider.ResourceSchedule, provider.RecurringCreate}:      "schedule-new",
	{provider.ResourceSchedule, provider.RecurringDelete}:      "schedule-delete",
	{provider.ResourceSchedule, provider.RecurringGet}:         "schedule-get",
}

// ProcessRecurring manages payers, stored cards and schedules. Stored cards
// and schedules take their payer from Data["payerRef"].
func (c *Connector) ProcessRecurring(ctx context.Context, req *provider.RecurringRequest) (*provider.RecurringResult, error) {
	requestType, ok := recurringTypes[recurringKey{req.Resource, req.Action}]
	if !ok {
		return nil, errs.Unsupported(providerName, string(req.Action)+" "+string(req.Resource))
	}

	timestamp := c.now().Format(timestampLayout)
	orderID := newOrderID()
	key := lo.Ternary(req.Key != "", req.Key, newOrderID())

	msg := &request{
		Type:       requestType,
		Timestamp:  timestamp,
		MerchantID: c.cfg.MerchantID,
		Account:    c.cfg.AccountID,
		OrderID:    orderID,
	}

	var hashFields []string
	switch req.Resource {
	case provider.ResourceCustomer:
		msg.Payer = &payer{
			Ref:       key,
			Type:      "Retail",
			FirstName: req.Data["firstName"],
			Surname:   req.Data["lastName"],
			Email:     req.Data["email"],
		}
		hashFields = []string{timestamp, c.cfg.MerchantID, orderID, "", "", key}

	case provider.ResourcePaymentMethod:
		payerRef := req.Data["payerRef"]
		msg.Card = &card{Ref: key, PayerRef: payerRef}
		number, holder, expiry := "", "", ""
		if req.Card != nil {
			number, holder, expiry = req.Card.Number, req.Card.HolderName, req.Card.ExpiryMMYY()
			msg.Card.Number = number
			msg.Card.ExpDate = expiry
			msg.Card.HolderName = holder
			msg.Card.Type = req.Card.Brand()
		}
		switch requestType {
		case "card-new":
			hashFields = []string{timestamp, c.cfg.MerchantID, orderID, "", "", payerRef, holder, number}
		case "card-update-card":
			hashFields = []string{timestamp, c.cfg.MerchantID, payerRef, key, expiry, number}
		default:
			hashFields = []string{timestamp, c.cfg.MerchantID, payerRef, key}
		}

	case provider.ResourceSchedule:
		msg.Schedule = &schedule{
			Ref:       key,
			Text:      req.Data["schedule"],
			NumTimes:  req.Data["numTimes"],
			StartDate: req.Data["startDate"],
		}
		if !req.Amount.IsZero() {
			msg.Schedule.Amount = &amount{Currency: currencyOrDefault(req.Currency), Value: provider.MinorUnits(req.Amount)}
		}
		msg.PayerRef = req.Data["payerRef"]
		msg.PaymentMethod = req.Data["paymentMethod"]
		hashFields = []string{timestamp, c.cfg.MerchantID, key}
	}

	msg.SHA1Hash = sign(c.cfg.SharedSecret, hashFields...)

	resp, err := c.send(ctx, msg)
	if err != nil {
		return nil, err
	}

	result := &provider.RecurringResult{
		Success:         resp.Result == resultApproved,
		Key:             key,
		ResponseCode:    resp.Result,
		ResponseMessage: resp.Message,
	}
	if resp.PasRef != "" {
		result.Data = map[string]string{"pasref": resp.PasRef}
	}
	return result, nil
}
