package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mstgnz/unipay/infra/config"
	"github.com/mstgnz/unipay/infra/errs"
)

// TransactionType is the operation a payment gateway is asked to perform
type TransactionType string

const (
	TransactionSale    TransactionType = "sale"
	TransactionAuth    TransactionType = "auth"
	TransactionCapture TransactionType = "capture"
	TransactionRefund  TransactionType = "refund"
	TransactionReverse TransactionType = "reverse"
	TransactionVoid    TransactionType = "void"
	TransactionVerify  TransactionType = "verify"
	TransactionBalance TransactionType = "balance"
)

// needsAmount lists the transaction types that move money
var needsAmount = map[TransactionType]bool{
	TransactionSale:    true,
	TransactionAuth:    true,
	TransactionRefund:  true,
	TransactionReverse: true,
}

// needsReference lists the transaction types that act on an earlier transaction
var needsReference = map[TransactionType]bool{
	TransactionCapture: true,
	TransactionRefund:  true,
	TransactionReverse: true,
	TransactionVoid:    true,
}

// TransactionStatus is the normalized outcome of a gateway call
type TransactionStatus string

const (
	StatusApproved TransactionStatus = "approved"
	StatusDeclined TransactionStatus = "declined"
	StatusPending  TransactionStatus = "pending"
	StatusError    TransactionStatus = "error"
)

// Capability names used in UnsupportedCapabilityError
const (
	CapabilityRecurring = "recurring"
	CapabilitySecure3D  = "secure3d"
)

// Card holds card data for a single request
type Card struct {
	Number     string `json:"number" validate:"required,numeric,min=12,max=19"`
	ExpMonth   int    `json:"expMonth" validate:"required,min=1,max=12"`
	ExpYear    int    `json:"expYear" validate:"required,min=2000"`
	CVN        string `json:"cvn,omitempty" validate:"omitempty,numeric,min=3,max=4"`
	HolderName string `json:"holderName,omitempty"`
}

// TransactionRequest is a provider-neutral payment request
type TransactionRequest struct {
	Type          TransactionType `json:"type" validate:"required,oneof=sale auth capture refund reverse void verify balance"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	OrderID       string          `json:"orderId,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	Card          *Card           `json:"card,omitempty"`
	Token         string          `json:"token,omitempty"`
	Description   string          `json:"description,omitempty"`
	InvoiceNumber string          `json:"invoiceNumber,omitempty"`
}

// Validate checks the request shape independently of the target gateway
func (r *TransactionRequest) Validate() error {
	if r == nil {
		return errs.InvalidRequest("transaction request is nil")
	}
	if err := config.App().Validator.Struct(r); err != nil {
		return errs.InvalidRequest("invalid transaction request: %v", err)
	}
	if needsAmount[r.Type] && !r.Amount.IsPositive() {
		return errs.InvalidRequest("amount must be positive for %s", r.Type)
	}
	if r.Amount.IsNegative() {
		return errs.InvalidRequest("amount must not be negative")
	}
	if needsReference[r.Type] && r.TransactionID == "" {
		return errs.InvalidRequest("transactionId is required for %s", r.Type)
	}
	if (r.Type == TransactionSale || r.Type == TransactionAuth || r.Type == TransactionVerify) && r.Card == nil && r.Token == "" {
		return errs.InvalidRequest("card or token is required for %s", r.Type)
	}
	return nil
}

// TransactionResult is the normalized gateway response
type TransactionResult struct {
	Status          TransactionStatus `json:"status"`
	TransactionID   string            `json:"transactionId,omitempty"`
	OrderID         string            `json:"orderId,omitempty"`
	AuthCode        string            `json:"authCode,omitempty"`
	ResponseCode    string            `json:"responseCode"`
	ResponseMessage string            `json:"responseMessage,omitempty"`
	Amount          decimal.Decimal   `json:"amount"`
	Provider        string            `json:"provider"`
}

// Approved reports whether the gateway approved the request
func (r *TransactionResult) Approved() bool {
	return r != nil && r.Status == StatusApproved
}

// RecurringAction is a CRUD verb on a recurring billing resource
type RecurringAction string

const (
	RecurringCreate RecurringAction = "create"
	RecurringEdit   RecurringAction = "edit"
	RecurringDelete RecurringAction = "delete"
	RecurringGet    RecurringAction = "get"
)

// RecurringResource is the kind of recurring billing record acted on
type RecurringResource string

const (
	ResourceCustomer      RecurringResource = "customer"
	ResourcePaymentMethod RecurringResource = "paymentMethod"
	ResourceSchedule      RecurringResource = "schedule"
)

// RecurringRequest manages customers, stored payment methods and schedules
type RecurringRequest struct {
	Action   RecurringAction   `json:"action" validate:"required,oneof=create edit delete get"`
	Resource RecurringResource `json:"resource" validate:"required,oneof=customer paymentMethod schedule"`
	Key      string            `json:"key,omitempty"`
	Amount   decimal.Decimal   `json:"amount"`
	Currency string            `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Card     *Card             `json:"card,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

// Validate checks the recurring request shape
func (r *RecurringRequest) Validate() error {
	if r == nil {
		return errs.InvalidRequest("recurring request is nil")
	}
	if err := config.App().Validator.Struct(r); err != nil {
		return errs.InvalidRequest("invalid recurring request: %v", err)
	}
	if r.Action != RecurringCreate && r.Key == "" {
		return errs.InvalidRequest("key is required for %s", r.Action)
	}
	return nil
}

// RecurringResult is the normalized recurring billing response
type RecurringResult struct {
	Success         bool              `json:"success"`
	Key             string            `json:"key,omitempty"`
	ResponseCode    string            `json:"responseCode,omitempty"`
	ResponseMessage string            `json:"responseMessage,omitempty"`
	Data            map[string]string `json:"data,omitempty"`
}

// Secure3DStep is one step of a 3-D Secure authentication flow
type Secure3DStep string

const (
	StepCheckEnrollment        Secure3DStep = "checkEnrollment"
	StepInitiateAuthentication Secure3DStep = "initiateAuthentication"
	StepGetAuthenticationData  Secure3DStep = "getAuthenticationData"
	StepVerifySignature        Secure3DStep = "verifySignature"
)

// Secure3DRequest is a provider-neutral 3-D Secure request
type Secure3DRequest struct {
	Step                Secure3DStep      `json:"step" validate:"required,oneof=checkEnrollment initiateAuthentication getAuthenticationData verifySignature"`
	Amount              decimal.Decimal   `json:"amount"`
	Currency            string            `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	OrderID             string            `json:"orderId,omitempty"`
	Card                *Card             `json:"card,omitempty"`
	ServerTransactionID string            `json:"serverTransactionId,omitempty"`
	PayerAuthResponse   string            `json:"payerAuthResponse,omitempty"`
	BrowserData         map[string]string `json:"browserData,omitempty"`
}

// Validate checks the 3-D Secure request shape
func (r *Secure3DRequest) Validate() error {
	if r == nil {
		return errs.InvalidRequest("secure 3d request is nil")
	}
	if err := config.App().Validator.Struct(r); err != nil {
		return errs.InvalidRequest("invalid secure 3d request: %v", err)
	}
	return nil
}

// Secure3DResult is the normalized 3-D Secure response
type Secure3DResult struct {
	Version             config.Secure3dVersion `json:"version"`
	Enrolled            bool                   `json:"enrolled"`
	Status              string                 `json:"status"`
	ServerTransactionID string                 `json:"serverTransactionId,omitempty"`
	IssuerACSURL        string                 `json:"issuerAcsUrl,omitempty"`
	PayerAuthRequest    string                 `json:"payerAuthRequest,omitempty"`
	ChallengeMandated   bool                   `json:"challengeMandated,omitempty"`
	ECI                 string                 `json:"eci,omitempty"`
	AuthenticationValue string                 `json:"authenticationValue,omitempty"`
	MessageVersion      string                 `json:"messageVersion,omitempty"`
}

// PaymentGateway executes payment transactions against one bound backend.
// The three capability interfaces use distinct method names so a single
// connector can serve more than one of them.
type PaymentGateway interface {
	ProcessTransaction(ctx context.Context, req *TransactionRequest) (*TransactionResult, error)
	Supports(t TransactionType) bool
	ServiceURL() string
}

// RecurringService manages recurring billing records against one bound backend
type RecurringService interface {
	ProcessRecurring(ctx context.Context, req *RecurringRequest) (*RecurringResult, error)
	ServiceURL() string
}

// Secure3DProvider runs one version of 3-D Secure authentication
type Secure3DProvider interface {
	ProcessSecure3D(ctx context.Context, req *Secure3DRequest) (*Secure3DResult, error)
	Version() config.Secure3dVersion
	ServiceURL() string
}

// MinorUnits renders amount in minor currency units, e.g. 10.5 as "1050"
func MinorUnits(amount decimal.Decimal) string {
	return amount.Shift(2).Round(0).String()
}

// Brand guesses the card scheme from the number prefix
func (c *Card) Brand() string {
	switch {
	case c == nil || c.Number == "":
		return ""
	case strings.HasPrefix(c.Number, "4"):
		return "VISA"
	case strings.HasPrefix(c.Number, "34"), strings.HasPrefix(c.Number, "37"):
		return "AMEX"
	case strings.HasPrefix(c.Number, "5"), strings.HasPrefix(c.Number, "2"):
		return "MC"
	case strings.HasPrefix(c.Number, "6"):
		return "DISCOVER"
	}
	return "UNKNOWN"
}

// ExpiryMMYY formats the expiry date as MMYY
func (c *Card) ExpiryMMYY() string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%02d%02d", c.ExpMonth, c.ExpYear%100)
}
