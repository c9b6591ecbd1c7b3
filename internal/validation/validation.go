// Package validation holds the field rules applied to verification records
// before they can be turned into a winner message or published.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"prizedesk/internal/types"
)

// Result is the outcome of one field check. Message is empty when Valid.
type Result struct {
	Valid   bool
	Message string
}

var ok = Result{Valid: true}

func fail(msg string) Result { return Result{Message: msg} }

var (
	arabicName   = regexp.MustCompile(`^[\x{0600}-\x{06FF}\s\p{Z}\p{P}]+$`)
	emailShape   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	arabicRun    = regexp.MustCompile(`[\x{0600}-\x{06FF}]+`)
	longDigitRun = regexp.MustCompile(`\b\d{5,}\b`)
	digitsOnly   = regexp.MustCompile(`^\d+$`)
)

// forbiddenNameWords are mail-provider words operators paste into the name
// field by mistake.
var forbiddenNameWords = []string{"gmail", "جيميل", "yahoo", "hotmail", "email", "ايميل", "بريد"}

// Name checks a client's full name: Arabic letters, spaces and punctuation only.
func Name(name string) Result {
	s := strings.TrimSpace(name)
	if s == "" {
		return fail("الاسم مطلوب.")
	}
	if strings.IndexFunc(s, unicode.IsDigit) >= 0 {
		return fail("يجب ألا يحتوي الاسم على أرقام.")
	}
	if strings.IndexFunc(s, isLatinLetter) >= 0 {
		return fail("يجب ألا يحتوي الاسم على أحرف إنجليزية.")
	}
	if !arabicName.MatchString(s) {
		return fail("يجب أن يحتوي الاسم على أحرف عربية ومسافات فقط.")
	}
	lower := strings.ToLower(s)
	for _, w := range forbiddenNameWords {
		if strings.Contains(lower, w) {
			return fail(`لا يمكن أن يحتوي الاسم على كلمات مثل "جيميل" أو ما شابه.`)
		}
	}
	return ok
}

func isLatinLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Email checks an address shape and rejects addresses that look like a
// pasted name or a random number.
func Email(email string) Result {
	s := strings.TrimSpace(email)
	if s == "" {
		return fail("البريد الإلكتروني مطلوب.")
	}
	if !emailShape.MatchString(s) {
		return fail("صيغة البريد الإلكتروني غير صحيحة.")
	}
	local, _, _ := strings.Cut(s, "@")
	if arabicRun.MatchString(s) || longDigitRun.MatchString(local) {
		return fail("يجب أن يكون بريدًا إلكترونيًا صالحًا، وليس اسمًا أو أرقامًا عشوائية.")
	}
	return ok
}

// Numeric checks that value is a non-empty run of ASCII digits. label names
// the field in the message.
func Numeric(value, label string) Result {
	if label == "" {
		label = "الحقل"
	}
	s := strings.TrimSpace(value)
	if s == "" {
		return fail(fmt.Sprintf("%s مطلوب.", label))
	}
	if !digitsOnly.MatchString(s) {
		return fail(fmt.Sprintf("يجب أن يحتوي %s على أرقام فقط.", label))
	}
	return ok
}

// FieldErrors maps a field to its validation message. Only failing fields
// are present.
type FieldErrors map[types.Field]string

// OK reports whether no field failed.
func (e FieldErrors) OK() bool { return len(e) == 0 }

// Messages returns the messages in form order.
func (e FieldErrors) Messages() []string {
	var out []string
	for _, f := range types.EditableFields {
		if msg, found := e[f]; found {
			out = append(out, msg)
		}
	}
	return out
}

// Record runs every field rule that applies to r. The account number is only
// checked once the CRM account has been confirmed.
func Record(r types.Record) FieldErrors {
	errs := FieldErrors{}
	add := func(f types.Field, res Result) {
		if !res.Valid {
			errs[f] = res.Message
		}
	}
	add(types.FieldClientName, Name(r.ClientName))
	add(types.FieldEmail, Email(r.Email))
	add(types.FieldAgencyID, Numeric(r.AgencyID, types.FieldAgencyID.Label()))
	if r.CRMAccountValid {
		add(types.FieldAccountNumber, Numeric(r.AccountNumber, types.FieldAccountNumber.Label()))
	}
	return errs
}
