package dashboard

import (
	"time"

	"prizedesk/internal/types"
)

// RowActions says which row controls are shown for a record.
type RowActions struct {
	// CanTogglePublish shows the publish/unpublish control.
	CanTogglePublish bool
	// PublishLabel is the tooltip of that control.
	PublishLabel string
	// Done shows the "actions completed" marker.
	Done bool
	// Overdue highlights the due date.
	Overdue bool
}

// Actions derives the row controls of r. today is compared by calendar date.
func Actions(r types.Record, today time.Time) RowActions {
	a := RowActions{
		CanTogglePublish: r.IsCompleted(),
		Done:             r.IsCompleted() && r.PrizePublishedOnGroup,
	}
	if a.CanTogglePublish {
		a.PublishLabel = "نشر في الجروب"
		if r.PrizePublishedOnGroup {
			a.PublishLabel = "إلغاء النشر"
		}
	}
	if due, ok := r.DueDate(); ok {
		y, m, d := today.Date()
		a.Overdue = due.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	}
	return a
}

// PublishConfirmMessage is the confirmation text for toggling the publish flag.
func PublishConfirmMessage(r types.Record) string {
	if r.PrizePublishedOnGroup {
		return `هل أنت متأكد من إزالة علامة "تم النشر" لهذا السجل؟`
	}
	return `هل أنت متأكد من وضع علامة "تم النشر" لهذا السجل؟`
}

// DeleteConfirmMessage is the confirmation text for deleting n records.
func DeleteConfirmMessage(n int) string {
	if n == 1 {
		return "هل أنت متأكد من رغبتك في حذف هذا السجل بشكل دائم؟"
	}
	return fmtCount("هل أنت متأكد من رغبتك في حذف %d سجل بشكل دائم؟", n)
}
