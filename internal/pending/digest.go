package pending

import (
	"strings"
	"time"

	"prizedesk/internal/types"
)

const (
	digestHeader  = "قائمة المعلقات:\n\n"
	digestDivider = "\n--------------------\n\n"
	unknownValue  = "غير محدد"
	noDescription = "لا يوجد وصف"
)

// Digest is the group-chat message listing unsent issues. IDs are the issues
// it covers, captured when it was generated.
type Digest struct {
	Text      string
	IDs       []string
	Generated time.Time
}

// Empty reports whether the digest covers no issue.
func (d Digest) Empty() bool { return len(d.IDs) == 0 }

// BuildDigest formats the issues not yet sent to the group, in list order.
func BuildDigest(issues []types.PendingIssue, now time.Time) Digest {
	var b strings.Builder
	var ids []string
	for _, is := range issues {
		if is.IsSentToGroup {
			continue
		}
		if len(ids) == 0 {
			b.WriteString(digestHeader)
		} else {
			b.WriteString(digestDivider)
		}
		b.WriteString("اسم العميل او الوكيل: " + orDefault(is.ClientName, unknownValue) + "\n")
		b.WriteString("المعرف الخاص به علي التلجرام: " + orDefault(is.ClientID, unknownValue) + "\n")
		b.WriteString("وصف المعلقة: " + orDefault(is.Description, noDescription) + "\n")
		ids = append(ids, is.ID)
	}
	return Digest{Text: b.String(), IDs: ids, Generated: now}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
