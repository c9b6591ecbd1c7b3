package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"prizedesk/internal/types"
)

func TestName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		valid   bool
		message string
	}{
		{"arabic full name", "محمد أحمد علي", true, ""},
		{"surrounding space trimmed", "  سارة خالد  ", true, ""},
		{"arabic punctuation", "عبد الله، الحسن", true, ""},
		{"no-break space", "محمد\u00a0علي", true, ""},
		{"ideographic and thin spaces", "محمد\u2009علي\u3000حسن", true, ""},
		{"empty", "", false, "الاسم مطلوب."},
		{"whitespace only", "   ", false, "الاسم مطلوب."},
		{"ascii digits", "محمد 123", false, "يجب ألا يحتوي الاسم على أرقام."},
		{"arabic-indic digits", "محمد ١٢٣", false, "يجب ألا يحتوي الاسم على أرقام."},
		{"latin letters", "Mohamed", false, "يجب ألا يحتوي الاسم على أحرف إنجليزية."},
		{"mixed latin", "محمد gmail", false, "يجب ألا يحتوي الاسم على أحرف إنجليزية."},
		{"forbidden arabic word", "محمد جيميل", false, `لا يمكن أن يحتوي الاسم على كلمات مثل "جيميل" أو ما شابه.`},
		{"forbidden mail word", "بريد محمد", false, `لا يمكن أن يحتوي الاسم على كلمات مثل "جيميل" أو ما شابه.`},
		{"other script", "Мария", false, "يجب أن يحتوي الاسم على أحرف عربية ومسافات فقط."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Name(tt.input)
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"plain", "client@example.com", true},
		{"digits under five", "ali1234@mail.com", true},
		{"digits glued to letters", "user12345@mail.com", true},
		{"empty", "", false},
		{"no at", "client.example.com", false},
		{"no tld", "client@example", false},
		{"inner space", "cli ent@example.com", false},
		{"arabic local part", "محمد@example.com", false},
		{"standalone long digit run", "12345@example.com", false},
		{"dotted long digit run", "john.987654@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Email(tt.input)
			assert.Equal(t, tt.valid, got.Valid, "message: %s", got.Message)
			if !tt.valid {
				assert.NotEmpty(t, got.Message)
			}
		})
	}

	assert.Equal(t, "البريد الإلكتروني مطلوب.", Email(" ").Message)
	assert.Equal(t, "صيغة البريد الإلكتروني غير صحيحة.", Email("nope").Message)
}

func TestNumeric(t *testing.T) {
	assert.True(t, Numeric("12345", "رقم الوكالة").Valid)
	assert.True(t, Numeric(" 42 ", "رقم الوكالة").Valid)

	got := Numeric("", "رقم الوكالة")
	assert.False(t, got.Valid)
	assert.Equal(t, "رقم الوكالة مطلوب.", got.Message)

	got = Numeric("12a", "رقم الحساب")
	assert.False(t, got.Valid)
	assert.Equal(t, "يجب أن يحتوي رقم الحساب على أرقام فقط.", got.Message)

	assert.False(t, Numeric("-5", "").Valid)
	assert.False(t, Numeric("1.5", "").Valid)
	assert.Equal(t, "الحقل مطلوب.", Numeric("", "").Message)
}

func TestRecord(t *testing.T) {
	valid := types.Record{
		ClientName: "محمد أحمد",
		Email:      "m.ahmad@example.com",
		AgencyID:   "7788",
	}
	assert.True(t, Record(valid).OK())

	t.Run("account number only checked after CRM confirmation", func(t *testing.T) {
		r := valid
		r.AccountNumber = "abc"
		assert.True(t, Record(r).OK())

		r.CRMAccountValid = true
		errs := Record(r)
		assert.False(t, errs.OK())
		assert.Contains(t, errs, types.FieldAccountNumber)
	})

	t.Run("messages follow form order", func(t *testing.T) {
		errs := Record(types.Record{AgencyID: "x"})
		msgs := errs.Messages()
		if assert.Len(t, msgs, 3) {
			assert.Equal(t, "الاسم مطلوب.", msgs[0])
			assert.Equal(t, "البريد الإلكتروني مطلوب.", msgs[1])
			assert.Equal(t, "يجب أن يحتوي رقم الوكالة على أرقام فقط.", msgs[2])
		}
	})
}

func completeRecord() types.Record {
	return types.Record{
		ClientName:                "محمد أحمد",
		Email:                     "m.ahmad@example.com",
		AgencyID:                  "7788",
		AccountNumber:             "556677",
		PrizeDueDate:              "2025-04-01",
		PrizeType:                 types.PrizeTrading,
		PrizeAmount:               100,
		NameVerified:              true,
		CRMAccountValid:           true,
		AgencyAffiliationVerified: true,
		MT5ScreenshotReceived:     true,
	}
}

func TestMissing(t *testing.T) {
	assert.Empty(t, Missing(completeRecord()))

	t.Run("unchecked screenshot is named", func(t *testing.T) {
		r := completeRecord()
		r.MT5ScreenshotReceived = false
		assert.Equal(t, []string{types.FieldMT5ScreenshotReceived.Label()}, Missing(r))
	})

	t.Run("account number required when CRM valid", func(t *testing.T) {
		r := completeRecord()
		r.AccountNumber = "  "
		assert.Equal(t, []string{types.FieldAccountNumber.Label()}, Missing(r))
	})

	t.Run("trading bonus needs an amount", func(t *testing.T) {
		r := completeRecord()
		r.PrizeAmount = 0
		assert.Equal(t, []string{types.FieldPrizeAmount.Label()}, Missing(r))
	})

	t.Run("negative amounts do not count", func(t *testing.T) {
		r := completeRecord()
		r.PrizeAmount = -50
		assert.Equal(t, []string{types.FieldPrizeAmount.Label()}, Missing(r))

		r.PrizeType = types.PrizeDeposit
		r.DepositBonusPercentage = -10
		assert.Equal(t, []string{types.FieldDepositBonusPercentage.Label()}, Missing(r))
	})

	t.Run("unparseable amounts never reach the record", func(t *testing.T) {
		r := completeRecord()
		for _, v := range []string{"-50", "NaN", "+Inf"} {
			assert.Error(t, r.Set(types.FieldPrizeAmount, v), v)
		}
		assert.Empty(t, Missing(r))
	})

	t.Run("deposit bonus needs a percentage in either spelling", func(t *testing.T) {
		for _, pt := range []types.PrizeType{types.PrizeDeposit, "بونص ايداع"} {
			r := completeRecord()
			r.PrizeType = pt
			r.PrizeAmount = 0
			assert.Equal(t, []string{types.FieldDepositBonusPercentage.Label()}, Missing(r))

			r.DepositBonusPercentage = 50
			assert.Empty(t, Missing(r))
		}
	})

	t.Run("empty record lists everything", func(t *testing.T) {
		assert.Len(t, Missing(types.Record{}), 9)
	})
}
