// Package types holds the wire-level domain types shared by the API client,
// controllers and views.
package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// All is the backend's "no filter" sentinel for status filters.
const All = "الكل"

// Status is the lifecycle state of a verification record.
type Status string

const (
	StatusInProgress Status = "جاري"
	StatusCompleted  Status = "مكتمل"
)

// PrizeType selects which amount field of a record is meaningful.
type PrizeType string

const (
	PrizeTrading PrizeType = "بونص تداولي"
	PrizeDeposit PrizeType = "بونص إيداع"

	// Older records were saved with a misspelt deposit value.
	prizeDepositLegacy PrizeType = "بونص ايداع"
)

// IsDeposit reports whether p is the deposit bonus, in either spelling.
func (p PrizeType) IsDeposit() bool {
	return p == PrizeDeposit || p == prizeDepositLegacy
}

// DefaultCompetition is the competition name of a freshly created record.
const DefaultCompetition = "غير محدد"

// Amount is a number that tolerates being sent as a string, which is how
// form inputs were historically persisted.
type Amount float64

// UnmarshalJSON accepts 12, 12.5, "12.5", "" and null.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return err
		}
		return a.assign(f)
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	return a.assign(f)
}

func (a *Amount) assign(f float64) error {
	v, err := checkAmount(f)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// checkAmount rejects values that cannot be a prize: negative, NaN or infinite.
func checkAmount(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %v", f)
	}
	if f < 0 {
		return 0, fmt.Errorf("must not be negative: %v", f)
	}
	return Amount(f), nil
}

// String formats the amount without a trailing ".0" for whole numbers.
func (a Amount) String() string {
	return strconv.FormatFloat(float64(a), 'f', -1, 64)
}

// Record is one winner's prize-eligibility case.
type Record struct {
	ID                        string    `json:"id,omitempty"`
	ClientName                string    `json:"client_name"`
	Email                     string    `json:"email"`
	AccountNumber             string    `json:"account_number"`
	AgencyID                  string    `json:"agency_id"`
	AgentName                 string    `json:"agent_name"`
	AgencyType                string    `json:"agency_type"`
	PrizeType                 PrizeType `json:"prize_type"`
	PrizeAmount               Amount    `json:"prize_amount"`
	DepositBonusPercentage    Amount    `json:"deposit_bonus_percentage"`
	CompetitionName           string    `json:"competition_name"`
	PrizeDueDate              string    `json:"prize_due_date"`
	Status                    Status    `json:"status"`
	NameVerified              bool      `json:"name_verified"`
	CRMAccountValid           bool      `json:"crm_account_valid"`
	AgencyAffiliationVerified bool      `json:"agency_affiliation_verified"`
	MT5ScreenshotReceived     bool      `json:"mt5_screenshot_received"`
	MT5ScreenshotNotes        string    `json:"mt5_screenshot_notes"`
	PrizePublishedOnGroup     bool      `json:"prize_published_on_group"`
	CreatedAt                 string    `json:"created_at,omitempty"`
	UpdatedAt                 string    `json:"updated_at,omitempty"`
}

// WithDefaults fills the fields the backend may omit on older records.
func (r Record) WithDefaults() Record {
	if r.Status == "" {
		r.Status = StatusInProgress
	}
	if r.PrizeType == "" {
		r.PrizeType = PrizeTrading
	}
	if r.CompetitionName == "" {
		r.CompetitionName = DefaultCompetition
	}
	return r
}

// IsCompleted reports whether the record reached the completed status.
func (r Record) IsCompleted() bool { return r.Status == StatusCompleted }

// DueDate parses PrizeDueDate. ok is false when unset or malformed.
func (r Record) DueDate() (t time.Time, ok bool) {
	if r.PrizeDueDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, r.PrizeDueDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DateLayout is the calendar date format used by prize_due_date.
const DateLayout = "2006-01-02"

// Page is one page of a server-side paginated listing.
type Page struct {
	Records    []Record `json:"records"`
	TotalCount int      `json:"total_count"`
}

// IssueStatus is the state of a pending issue.
type IssueStatus string

const (
	IssueOpen     IssueStatus = "معلقة"
	IssueResolved IssueStatus = "تم الحل"
)

// PendingIssue is a cross-shift note about an unresolved client case.
type PendingIssue struct {
	ID            string      `json:"id"`
	ClientName    string      `json:"client_name"`
	ClientID      string      `json:"client_id"`
	Description   string      `json:"description"`
	Status        IssueStatus `json:"status"`
	IsSentToGroup bool        `json:"is_sent_to_group"`
	CreatedAt     string      `json:"created_at,omitempty"`
	ResolvedAt    *string     `json:"resolved_at,omitempty"`
	SentAt        *string     `json:"sent_at,omitempty"`
}

// NewIssue is the body of a pending issue creation.
type NewIssue struct {
	ClientName  string `json:"client_name"`
	ClientID    string `json:"client_id"`
	Description string `json:"description"`
}

// DueDateAlert flags a record whose prize is due soon or overdue.
type DueDateAlert struct {
	ID           string `json:"id"`
	ClientName   string `json:"client_name"`
	PrizeDueDate string `json:"prize_due_date"`
}

// ChartPoint is one bar of the weekly completion chart.
type ChartPoint struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DashboardStats are the aggregate counters shown above the dashboard table.
type DashboardStats struct {
	InProgressCount       int            `json:"in_progress_count"`
	CompletedTodayCount   int            `json:"completed_today_count"`
	PrizePublishedCount   int            `json:"prize_published_count"`
	TotalRecords          int            `json:"total_records"`
	InProgressTrend       *float64       `json:"in_progress_trend,omitempty"`
	DailyCompletionRate   *float64       `json:"daily_completion_rate,omitempty"`
	PublishRate           *float64       `json:"publish_rate,omitempty"`
	DueDateAlerts         []DueDateAlert `json:"due_date_alerts,omitempty"`
	WeeklyCompletionChart []ChartPoint   `json:"weekly_completion_chart,omitempty"`
}
