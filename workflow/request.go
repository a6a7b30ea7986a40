package workflow

import (
	"fmt"
	"strings"

	"github.com/mmdatafocus/posting_backend/models"
	"github.com/shopspring/decimal"
)

// PostingRequest is one settlement movement to post. Shape tags are checked by the HTTP adapter;
// business rules are checked by the validation gate.
type PostingRequest struct {
	BatchNumber      string          `json:"batch_number" validate:"required,max=8"`
	SequenceId       string          `json:"sequence_id" validate:"required,max=12"`
	Account          string          `json:"account" validate:"required,max=16"`
	DebitAmount      decimal.Decimal `json:"debit_amount"`
	CreditAmount     decimal.Decimal `json:"credit_amount"`
	MerchantCode     string          `json:"merchant_code" validate:"required,max=20"`
	MerchantName     string          `json:"merchant_name" validate:"max=100"`
	Terminal         string          `json:"terminal" validate:"required,max=20"`
	Description      string          `json:"description" validate:"max=120"`
	AccountingNature models.Nature   `json:"accounting_nature" validate:"required,max=1"`
	CorrelationId    string          `json:"-"`
}

// GrossAmount is the single positive side of the request.
func (r PostingRequest) GrossAmount() decimal.Decimal {
	if r.DebitAmount.IsPositive() {
		return r.DebitAmount
	}
	return r.CreditAmount
}

func (r PostingRequest) clientDescriptions() [3]string {
	return descriptionFragments(r.Description)
}

func (r PostingRequest) internalDescriptions(key models.ReservationKey) [3]string {
	return [3]string{
		strings.TrimSpace(r.MerchantName),
		fmt.Sprintf("MERCHANT %s TERMINAL %s", strings.TrimSpace(r.MerchantCode), strings.TrimSpace(r.Terminal)),
		fmt.Sprintf("BATCH %s SEQ %s", key.Batch, key.Sequence),
	}
}

func descriptionFragments(s string) [3]string {
	var out [3]string
	copy(out[:], models.DescriptionField.Split(s, 3))
	return out
}
