package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Field names an editable record field by its wire name.
type Field string

const (
	FieldClientName                Field = "client_name"
	FieldEmail                     Field = "email"
	FieldAccountNumber             Field = "account_number"
	FieldAgencyID                  Field = "agency_id"
	FieldAgentName                 Field = "agent_name"
	FieldAgencyType                Field = "agency_type"
	FieldPrizeType                 Field = "prize_type"
	FieldPrizeAmount               Field = "prize_amount"
	FieldDepositBonusPercentage    Field = "deposit_bonus_percentage"
	FieldCompetitionName           Field = "competition_name"
	FieldPrizeDueDate              Field = "prize_due_date"
	FieldNameVerified              Field = "name_verified"
	FieldCRMAccountValid           Field = "crm_account_valid"
	FieldAgencyAffiliationVerified Field = "agency_affiliation_verified"
	FieldMT5ScreenshotReceived     Field = "mt5_screenshot_received"
	FieldMT5ScreenshotNotes        Field = "mt5_screenshot_notes"
)

// EditableFields lists the form fields in display order.
var EditableFields = []Field{
	FieldClientName,
	FieldEmail,
	FieldAccountNumber,
	FieldAgencyID,
	FieldAgentName,
	FieldAgencyType,
	FieldPrizeType,
	FieldPrizeAmount,
	FieldDepositBonusPercentage,
	FieldCompetitionName,
	FieldPrizeDueDate,
	FieldNameVerified,
	FieldCRMAccountValid,
	FieldAgencyAffiliationVerified,
	FieldMT5ScreenshotReceived,
	FieldMT5ScreenshotNotes,
}

// IsBool reports whether the field is a checklist toggle.
func (f Field) IsBool() bool {
	switch f {
	case FieldNameVerified, FieldCRMAccountValid, FieldAgencyAffiliationVerified, FieldMT5ScreenshotReceived:
		return true
	}
	return false
}

// Label is the operator-facing Arabic label of the field.
func (f Field) Label() string {
	switch f {
	case FieldClientName:
		return "اسم العميل"
	case FieldEmail:
		return "البريد الإلكتروني"
	case FieldAccountNumber:
		return "رقم الحساب"
	case FieldAgencyID:
		return "رقم الوكالة"
	case FieldAgentName:
		return "اسم الوكيل"
	case FieldAgencyType:
		return "نوع الوكالة"
	case FieldPrizeType:
		return "نوع الجائزة"
	case FieldPrizeAmount:
		return "مبلغ الجائزة"
	case FieldDepositBonusPercentage:
		return "نسبة بونص الإيداع"
	case FieldCompetitionName:
		return "اسم المسابقة"
	case FieldPrizeDueDate:
		return "تاريخ استحقاق الجائزة"
	case FieldNameVerified:
		return "تم التحقق من الاسم"
	case FieldCRMAccountValid:
		return "الحساب صحيح في CRM"
	case FieldAgencyAffiliationVerified:
		return "تم التحقق من التبعية للوكالة"
	case FieldMT5ScreenshotReceived:
		return "تم استلام لقطة شاشة MT5"
	case FieldMT5ScreenshotNotes:
		return "ملاحظات لقطة الشاشة"
	}
	return string(f)
}

// Set assigns value to field. Strings go to text fields, bools to toggles,
// and numbers may be given as float64, int or a numeric string.
func (r *Record) Set(f Field, value any) error {
	if f.IsBool() {
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("field %s expects a bool, got %T", f, value)
		}
		switch f {
		case FieldNameVerified:
			r.NameVerified = b
		case FieldCRMAccountValid:
			r.CRMAccountValid = b
		case FieldAgencyAffiliationVerified:
			r.AgencyAffiliationVerified = b
		case FieldMT5ScreenshotReceived:
			r.MT5ScreenshotReceived = b
		}
		return nil
	}

	if f == FieldPrizeAmount || f == FieldDepositBonusPercentage {
		n, err := toAmount(value)
		if err != nil {
			return fmt.Errorf("field %s: %w", f, err)
		}
		if f == FieldPrizeAmount {
			r.PrizeAmount = n
		} else {
			r.DepositBonusPercentage = n
		}
		return nil
	}

	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("field %s expects a string, got %T", f, value)
	}
	switch f {
	case FieldClientName:
		r.ClientName = s
	case FieldEmail:
		r.Email = s
	case FieldAccountNumber:
		r.AccountNumber = s
	case FieldAgencyID:
		r.AgencyID = s
	case FieldAgentName:
		r.AgentName = s
	case FieldAgencyType:
		r.AgencyType = s
	case FieldPrizeType:
		r.PrizeType = PrizeType(s)
	case FieldCompetitionName:
		r.CompetitionName = s
	case FieldPrizeDueDate:
		r.PrizeDueDate = s
	case FieldMT5ScreenshotNotes:
		r.MT5ScreenshotNotes = s
	default:
		return fmt.Errorf("unknown field %q", f)
	}
	return nil
}

// Get returns the display value of field.
func (r Record) Get(f Field) string {
	switch f {
	case FieldClientName:
		return r.ClientName
	case FieldEmail:
		return r.Email
	case FieldAccountNumber:
		return r.AccountNumber
	case FieldAgencyID:
		return r.AgencyID
	case FieldAgentName:
		return r.AgentName
	case FieldAgencyType:
		return r.AgencyType
	case FieldPrizeType:
		return string(r.PrizeType)
	case FieldPrizeAmount:
		return r.PrizeAmount.String()
	case FieldDepositBonusPercentage:
		return r.DepositBonusPercentage.String()
	case FieldCompetitionName:
		return r.CompetitionName
	case FieldPrizeDueDate:
		return r.PrizeDueDate
	case FieldNameVerified:
		return strconv.FormatBool(r.NameVerified)
	case FieldCRMAccountValid:
		return strconv.FormatBool(r.CRMAccountValid)
	case FieldAgencyAffiliationVerified:
		return strconv.FormatBool(r.AgencyAffiliationVerified)
	case FieldMT5ScreenshotReceived:
		return strconv.FormatBool(r.MT5ScreenshotReceived)
	case FieldMT5ScreenshotNotes:
		return r.MT5ScreenshotNotes
	}
	return ""
}

func toAmount(v any) (Amount, error) {
	switch n := v.(type) {
	case float64:
		return checkAmount(n)
	case int:
		return checkAmount(float64(n))
	case Amount:
		return checkAmount(float64(n))
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		return checkAmount(f)
	}
	return 0, fmt.Errorf("expects a number, got %T", v)
}
