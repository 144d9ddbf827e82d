package realex

import (
	"context"

	"github.com/samber/lo"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
	"github.com/mstgnz/unipay/provider"
)

// not enrolled, or enrollment unknown
const resultNotEnrolled = "110"

// Version reports the 3-D Secure version the connector implements
func (c *Connector) Version() config.Secure3dVersion {
	return config.Secure3dOne
}

// ProcessSecure3D runs the enrollment check and signature verification steps
// of 3-D Secure version one.
func (c *Connector) ProcessSecure3D(ctx context.Context, req *provider.Secure3DRequest) (*provider.Secure3DResult, error) {
	var requestType string
	switch req.Step {
	case provider.StepCheckEnrollment:
		requestType = "3ds-verifyenrolled"
	case provider.StepVerifySignature:
		requestType = "3ds-verifysig"
	default:
		return nil, errs.InvalidRequest("step %s is not part of 3-D Secure version one", req.Step)
	}
	if req.Card == nil {
		return nil, errs.InvalidRequest("card is required for %s", req.Step)
	}

	timestamp := c.now().Format(timestampLayout)
	orderID := lo.Ternary(req.OrderID != "", req.OrderID, newOrderID())
	currency := currencyOrDefault(req.Currency)
	minor := provider.MinorUnits(req.Amount)

	msg := &request{
		Type:       requestType,
		Timestamp:  timestamp,
		MerchantID: c.cfg.MerchantID,
		Account:    c.cfg.AccountID,
		OrderID:    orderID,
		Amount:     &amount{Currency: currency, Value: minor},
		Card:       toCard(req.Card),
		PaRes:      req.PayerAuthResponse,
	}
	msg.SHA1Hash = sign(c.cfg.SharedSecret, timestamp, c.cfg.MerchantID, orderID, minor, currency, req.Card.Number)

	resp, err := c.send(ctx, msg)
	if err != nil {
		return nil, err
	}

	result := &provider.Secure3DResult{
		Version:        config.Secure3dOne,
		Status:         resp.Result,
		MessageVersion: "1.0.2",
	}

	switch req.Step {
	case provider.StepCheckEnrollment:
		result.Enrolled = resp.Result == resultApproved && resp.Enrolled == "Y"
		result.IssuerACSURL = resp.URL
		result.PayerAuthRequest = resp.PaReq
		result.ChallengeMandated = result.Enrolled
		if resp.Result == resultNotEnrolled {
			result.Status = "N"
		}
	case provider.StepVerifySignature:
		if resp.ThreeDSecure != nil {
			result.Status = resp.ThreeDSecure.Status
			result.ECI = resp.ThreeDSecure.ECI
			result.AuthenticationValue = resp.ThreeDSecure.CAVV
			result.ServerTransactionID = resp.ThreeDSecure.XID
		}
	}

	return result, nil
}
