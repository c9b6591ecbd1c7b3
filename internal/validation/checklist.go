package validation

import (
	"strings"

	"prizedesk/internal/types"
)

// Missing lists, in form order, the labels of everything that still blocks a
// record from producing a winner message or being published. An empty result
// means the record is complete.
func Missing(r types.Record) []string {
	var missing []string
	need := func(cond bool, f types.Field) {
		if !cond {
			missing = append(missing, f.Label())
		}
	}

	need(r.NameVerified, types.FieldNameVerified)
	need(r.CRMAccountValid, types.FieldCRMAccountValid)
	need(r.AgencyAffiliationVerified, types.FieldAgencyAffiliationVerified)
	need(r.MT5ScreenshotReceived, types.FieldMT5ScreenshotReceived)

	need(strings.TrimSpace(r.ClientName) != "", types.FieldClientName)
	need(strings.TrimSpace(r.Email) != "", types.FieldEmail)
	need(strings.TrimSpace(r.AgencyID) != "", types.FieldAgencyID)
	need(strings.TrimSpace(r.PrizeDueDate) != "", types.FieldPrizeDueDate)

	if r.CRMAccountValid {
		need(strings.TrimSpace(r.AccountNumber) != "", types.FieldAccountNumber)
	}

	if r.PrizeType.IsDeposit() {
		need(r.DepositBonusPercentage > 0, types.FieldDepositBonusPercentage)
	} else {
		need(r.PrizeAmount > 0, types.FieldPrizeAmount)
	}

	return missing
}
