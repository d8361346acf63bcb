package sepa

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
)

// Document is a decoded pain.001.001.02 file.
type Document struct {
	XMLName     xml.Name      `xml:"pain.001.001.02"`
	GroupHeader GroupHeader   `xml:"GrpHdr"`
	Payments    []PaymentInfo `xml:"PmtInf"`
}

// GroupHeader holds the document-level totals.
type GroupHeader struct {
	MessageID            string `xml:"MsgId"`
	CreationDateTime     string `xml:"CreDtTm"`
	NumberOfTransactions string `xml:"NbOfTxs"`
	ControlSum           string `xml:"CtrlSum"`
	Grouping             string `xml:"Grpg"`
}

// PaymentInfo is one <PmtInf> block.
type PaymentInfo struct {
	PaymentMethod          string         `xml:"PmtMtd"`
	ServiceLevel           string         `xml:"PmtTpInf>SvcLvl>Cd"`
	RequestedExecutionDate string         `xml:"ReqdExctnDt"`
	DebtorIBAN             string         `xml:"DbtrAcct>Id>IBAN"`
	DebtorCurrency         string         `xml:"DbtrAcct>Ccy"`
	DebtorBIC              string         `xml:"DbtrAgt>FinInstnId>BIC"`
	ChargeBearer           string         `xml:"ChrgBr"`
	Transfer               CreditTransfer `xml:"CdtTrfTxInf"`
}

// CreditTransfer is the <CdtTrfTxInf> block of a payment.
type CreditTransfer struct {
	EndToEndID   string           `xml:"PmtId>EndToEndId"`
	Amount       InstructedAmount `xml:"Amt>InstdAmt"`
	CreditorBIC  string           `xml:"CdtrAgt>FinInstnId>BIC"`
	CreditorName string           `xml:"Cdtr>Nm"`
	AddressLine  string           `xml:"Cdtr>PstlAdr>AdrLine"`
	Country      string           `xml:"Cdtr>PstlAdr>Ctry"`
	CreditorIBAN string           `xml:"CdtrAcct>Id>IBAN"`
	Remittance   string           `xml:"RmtInf>Ustrd"`
}

// InstructedAmount is an amount with its currency attribute.
type InstructedAmount struct {
	Currency string `xml:"Ccy,attr"`
	Value    string `xml:",chardata"`
}

// ParseDocument decodes a rendered document.
func ParseDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &doc, nil
}

// Sum adds up the instructed amounts of all payments.
func (d *Document) Sum() (decimal.Decimal, error) {
	sum := decimal.Zero
	for i, payment := range d.Payments {
		amount, err := decimal.NewFromString(payment.Transfer.Amount.Value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("payment %d: invalid amount %q: %w", i+1, payment.Transfer.Amount.Value, err)
		}
		sum = sum.Add(amount)
	}
	return sum, nil
}

// Verify checks that the group header agrees with the payment blocks:
// NbOfTxs equals the number of <PmtInf> elements and CtrlSum equals the sum
// of the instructed amounts.
func (d *Document) Verify() error {
	count, err := strconv.Atoi(d.GroupHeader.NumberOfTransactions)
	if err != nil {
		return fmt.Errorf("invalid NbOfTxs %q: %w", d.GroupHeader.NumberOfTransactions, err)
	}
	if count != len(d.Payments) {
		return fmt.Errorf("NbOfTxs is %d but document has %d payment(s)", count, len(d.Payments))
	}

	controlSum, err := decimal.NewFromString(d.GroupHeader.ControlSum)
	if err != nil {
		return fmt.Errorf("invalid CtrlSum %q: %w", d.GroupHeader.ControlSum, err)
	}

	sum, err := d.Sum()
	if err != nil {
		return err
	}

	if !controlSum.Equal(sum) {
		return fmt.Errorf("CtrlSum %s does not match payments total %s", controlSum.StringFixed(2), sum.StringFixed(2))
	}

	return nil
}
