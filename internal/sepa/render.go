package sepa

import (
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/sepa-credit-transfer/internal/xmlwriter"
)

// Fixed pain.001.001.02 values.
const (
	RootElement         = "pain.001.001.02"
	GroupingSingle      = "SNGL"
	PaymentMethodTRF    = "TRF"
	ServiceLevelSEPA    = "SEPA"
	ChargeBearerSLEV    = "SLEV"
	creationTimeLayout  = "2006-01-02T15:04:05-07:00"
	executionDateLayout = "2006-01-02"
)

// Render builds the pain.001.001.02 document for the batch.
//
// The batch must hold at least one transaction and a non-zero total,
// otherwise ErrEmptyBatch is returned and nothing is produced. Each call
// generates a fresh message ID, creation timestamp and end-to-end IDs; the
// transactions themselves are not touched.
func (b *Batch) Render() ([]byte, error) {
	root, err := b.buildDocument()
	if err != nil {
		return nil, err
	}

	out, err := xmlwriter.Generate(root)
	if err != nil {
		return nil, fmt.Errorf("failed to generate XML: %w", err)
	}

	b.logger.Debugf("rendered %d transaction(s), control sum %s", len(b.transactions), b.total.StringFixed(2))

	return out, nil
}

// buildDocument assembles the element tree. Element order follows the schema.
func (b *Batch) buildDocument() (*xmlwriter.Element, error) {
	if len(b.transactions) == 0 || b.total.IsZero() {
		return nil, ErrEmptyBatch
	}

	now := b.clock()
	root := xmlwriter.NewElement(RootElement)

	// Group header: exactly one per document.
	root.Child("GrpHdr").
		AddText("MsgId", b.newID()).
		AddText("CreDtTm", now.Format(creationTimeLayout)).
		AddText("NbOfTxs", fmt.Sprintf("%d", len(b.transactions))).
		AddText("CtrlSum", b.total.StringFixed(2)).
		AddText("Grpg", GroupingSingle)

	for _, tx := range b.transactions {
		root.Add(b.buildPaymentInfo(tx, now))
	}

	return root, nil
}

// buildPaymentInfo creates one <PmtInf> block.
//
// STRUCTURE:
//
//	<PmtInf>
//	  <PmtMtd/> <PmtTpInf/> <ReqdExctnDt/> <DbtrAcct/> <DbtrAgt/> <ChrgBr/>
//	  <CdtTrfTxInf>
//	    <PmtId/> <Amt/> <CdtrAgt/> <Cdtr/> <CdtrAcct/> <RmtInf/>
//	  </CdtTrfTxInf>
//	</PmtInf>
func (b *Batch) buildPaymentInfo(tx Transaction, now time.Time) *xmlwriter.Element {
	executionDate := tx.ExecutionDate
	if executionDate.IsZero() {
		executionDate = now
	}

	payment := xmlwriter.NewElement("PmtInf")
	payment.AddText("PmtMtd", PaymentMethodTRF)
	payment.Child("PmtTpInf").Child("SvcLvl").AddText("Cd", ServiceLevelSEPA)
	payment.AddText("ReqdExctnDt", executionDate.Format(executionDateLayout))

	debtorAccount := payment.Child("DbtrAcct")
	debtorAccount.Child("Id").AddText("IBAN", b.debtorIBAN)
	debtorAccount.AddText("Ccy", tx.Currency)

	payment.Child("DbtrAgt").Child("FinInstnId").AddText("BIC", b.debtorBIC)
	payment.AddText("ChrgBr", ChargeBearerSLEV)

	transfer := payment.Child("CdtTrfTxInf")
	transfer.Child("PmtId").AddText("EndToEndId", b.newID())
	transfer.Child("Amt").Add(
		xmlwriter.Text("InstdAmt", tx.Amount.StringFixed(2)).SetAttr("Ccy", tx.Currency),
	)
	transfer.Child("CdtrAgt").Child("FinInstnId").AddText("BIC", strings.ToUpper(tx.CreditorBIC))

	creditor := transfer.Child("Cdtr")
	creditor.AddText("Nm", tx.Recipient)
	creditor.Child("PstlAdr").
		AddText("AdrLine", tx.CreditorAddress).
		AddText("Ctry", tx.CreditorCountry)

	transfer.Child("CdtrAcct").Child("Id").AddText("IBAN", tx.CreditorIBAN)
	transfer.Child("RmtInf").AddText("Ustrd", tx.Description)

	return payment
}
