package realex

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"strings"
)

type request struct {
	XMLName       xml.Name     `xml:"request"`
	Type          string       `xml:"type,attr"`
	Timestamp     string       `xml:"timestamp,attr"`
	MerchantID    string       `xml:"merchantid"`
	Account       string       `xml:"account,omitempty"`
	Channel       string       `xml:"channel,omitempty"`
	OrderID       string       `xml:"orderid,omitempty"`
	PasRef        string       `xml:"pasref,omitempty"`
	AuthCode      string       `xml:"authcode,omitempty"`
	Amount        *amount      `xml:"amount,omitempty"`
	Card          *card        `xml:"card,omitempty"`
	AutoSettle    *autoSettle  `xml:"autosettle,omitempty"`
	Payer         *payer       `xml:"payer,omitempty"`
	PayerRef      string       `xml:"payerref,omitempty"`
	PaymentMethod string       `xml:"paymentmethod,omitempty"`
	Schedule      *schedule    `xml:"schedule,omitempty"`
	PaRes         string       `xml:"pares,omitempty"`
	Comments      *comments    `xml:"comments,omitempty"`
	RefundHash    string       `xml:"refundhash,omitempty"`
	FraudFilter   *fraudFilter `xml:"fraudfilter,omitempty"`
	SHA1Hash      string       `xml:"sha1hash"`
}

type amount struct {
	Currency string `xml:"currency,attr"`
	Value    string `xml:",chardata"`
}

type card struct {
	Ref        string `xml:"ref,omitempty"`
	PayerRef   string `xml:"payerref,omitempty"`
	Number     string `xml:"number,omitempty"`
	ExpDate    string `xml:"expdate,omitempty"`
	HolderName string `xml:"chname,omitempty"`
	Type       string `xml:"type,omitempty"`
	CVN        *cvn   `xml:"cvn,omitempty"`
}

type cvn struct {
	Number  string `xml:"number"`
	PresInd string `xml:"presind"`
}

type autoSettle struct {
	Flag string `xml:"flag,attr"`
}

type payer struct {
	Ref       string `xml:"ref,attr"`
	Type      string `xml:"type,attr"`
	FirstName string `xml:"firstname,omitempty"`
	Surname   string `xml:"surname,omitempty"`
	Email     string `xml:"email,omitempty"`
}

type schedule struct {
	Ref       string  `xml:"scheduleref"`
	Text      string  `xml:"schedule,omitempty"`
	NumTimes  string  `xml:"numtimes,omitempty"`
	StartDate string  `xml:"startdate,omitempty"`
	Amount    *amount `xml:"amount,omitempty"`
}

type comments struct {
	Comment []comment `xml:"comment"`
}

type comment struct {
	ID    int    `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type fraudFilter struct {
	Mode string `xml:"mode,attr"`
}

type response struct {
	XMLName      xml.Name      `xml:"response"`
	Timestamp    string        `xml:"timestamp,attr"`
	MerchantID   string        `xml:"merchantid"`
	Account      string        `xml:"account"`
	OrderID      string        `xml:"orderid"`
	AuthCode     string        `xml:"authcode"`
	Result       string        `xml:"result"`
	Message      string        `xml:"message"`
	PasRef       string        `xml:"pasref"`
	Enrolled     string        `xml:"enrolled"`
	URL          string        `xml:"url"`
	PaReq        string        `xml:"pareq"`
	ThreeDSecure *threeDSecure `xml:"threedsecure"`
	SHA1Hash     string        `xml:"sha1hash"`
}

type threeDSecure struct {
	Status string `xml:"status"`
	ECI    string `xml:"eci"`
	XID    string `xml:"xid"`
	CAVV   string `xml:"cavv"`
}

// sign computes the gateway's double SHA-1 signature over fields
func sign(secret string, fields ...string) string {
	first := sha1.Sum([]byte(strings.Join(fields, ".")))
	second := sha1.Sum([]byte(hex.EncodeToString(first[:]) + "." + secret))
	return hex.EncodeToString(second[:])
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
