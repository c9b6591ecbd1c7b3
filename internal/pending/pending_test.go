package pending

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prizedesk/internal/api"
	"prizedesk/internal/apitest"
	"prizedesk/internal/clock"
	"prizedesk/internal/notify"
	"prizedesk/internal/types"
)

var now = time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)

func TestBuildDigest(t *testing.T) {
	issues := []types.PendingIssue{
		{ID: "1", ClientName: "أحمد", ClientID: "@ahmad", Description: "سحب متأخر"},
		{ID: "2", ClientName: "سارة", ClientID: "@sara", Description: "مكافأة", IsSentToGroup: true},
		{ID: "3", ClientName: "", ClientID: "", Description: ""},
		{ID: "4", ClientName: "خالد", ClientID: "@khaled", Description: "تحقق"},
	}
	d := BuildDigest(issues, now)

	want := "قائمة المعلقات:\n\n" +
		"اسم العميل او الوكيل: أحمد\n" +
		"المعرف الخاص به علي التلجرام: @ahmad\n" +
		"وصف المعلقة: سحب متأخر\n" +
		"\n--------------------\n\n" +
		"اسم العميل او الوكيل: غير محدد\n" +
		"المعرف الخاص به علي التلجرام: غير محدد\n" +
		"وصف المعلقة: لا يوجد وصف\n" +
		"\n--------------------\n\n" +
		"اسم العميل او الوكيل: خالد\n" +
		"المعرف الخاص به علي التلجرام: @khaled\n" +
		"وصف المعلقة: تحقق\n"
	assert.Equal(t, want, d.Text)
	assert.Equal(t, []string{"1", "3", "4"}, d.IDs)
	assert.Equal(t, now, d.Generated)

	empty := BuildDigest([]types.PendingIssue{{ID: "x", IsSentToGroup: true}}, now)
	assert.True(t, empty.Empty())
	assert.Empty(t, empty.Text)
}

type fixture struct {
	backend *apitest.Backend
	board   *Board
}

func newFixture(t *testing.T, issues ...types.PendingIssue) *fixture {
	t.Helper()
	b := apitest.New()
	b.SetNow(func() time.Time { return now })
	for _, is := range issues {
		b.AddIssue(is)
	}
	clk := clock.NewFake(now)
	board := New(api.New(b.Start(t)), Options{Clock: clk, PageSize: 10})
	t.Cleanup(board.Close)
	return &fixture{backend: b, board: board}
}

func lastNote(q *notify.Queue) notify.Notification {
	items := q.Items()
	if len(items) == 0 {
		return notify.Notification{}
	}
	return items[len(items)-1]
}

func TestFetch_DefaultsToOpenIssues(t *testing.T) {
	f := newFixture(t,
		types.PendingIssue{ID: "a", ClientName: "A"},
		types.PendingIssue{ID: "b", ClientName: "B", Status: types.IssueResolved},
	)
	ctx := context.Background()

	require.NoError(t, f.board.Fetch(ctx))
	require.Len(t, f.board.List.Items(), 1)
	assert.Equal(t, "a", f.board.List.Items()[0].ID)
	calls := f.backend.CallsTo(http.MethodGet, "/pending-issues")
	require.Len(t, calls, 1)
	assert.Equal(t, string(types.IssueOpen), calls[0].Query.Get("status_filter"))

	assert.Equal(t, string(types.IssueResolved), f.board.CycleStatusFilter())
	assert.Equal(t, types.All, f.board.CycleStatusFilter())
	require.NoError(t, f.board.Fetch(ctx))
	assert.Len(t, f.board.List.Items(), 2)
	assert.Equal(t, string(types.IssueOpen), f.board.CycleStatusFilter())
}

func TestFetch_FailureMessage(t *testing.T) {
	f := newFixture(t)
	f.backend.FailNext(http.MethodGet, "/pending-issues", http.StatusInternalServerError, 1)
	require.Error(t, f.board.Fetch(context.Background()))
	assert.Equal(t, "injected failure 500", lastNote(f.board.Notifications()).Message)
	assert.Equal(t, notify.Error, lastNote(f.board.Notifications()).Severity)

	assert.Equal(t, msgLoadFailed, serverMessage(assert.AnError, msgLoadFailed))
}

func TestAdd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.board.Add(ctx, types.NewIssue{ClientName: "  ", ClientID: "@x", Description: "d"})
	assert.ErrorIs(t, err, ErrMissingFields)
	assert.Equal(t, msgFillAll, lastNote(f.board.Notifications()).Message)
	assert.Equal(t, notify.Warning, lastNote(f.board.Notifications()).Severity)
	assert.Empty(t, f.backend.CallsTo(http.MethodPost, "/pending-issues"))

	created, err := f.board.Add(ctx, types.NewIssue{ClientName: " أحمد ", ClientID: "@ahmad", Description: "سحب"})
	require.NoError(t, err)
	assert.Equal(t, "أحمد", created.ClientName)
	assert.Equal(t, msgAdded, lastNote(f.board.Notifications()).Message)
	assert.Len(t, f.board.List.Items(), 1)

	f.backend.FailNext(http.MethodPost, "/pending-issues", http.StatusInternalServerError, 1)
	_, err = f.board.Add(ctx, types.NewIssue{ClientName: "b", ClientID: "c", Description: "d"})
	require.Error(t, err)
	assert.Equal(t, msgAddFailed, lastNote(f.board.Notifications()).Message)
}

func TestResolveAndDelete(t *testing.T) {
	f := newFixture(t,
		types.PendingIssue{ID: "a", ClientName: "A"},
		types.PendingIssue{ID: "b", ClientName: "B"},
	)
	ctx := context.Background()
	require.NoError(t, f.board.Fetch(ctx))

	require.NoError(t, f.board.Resolve(ctx, "a"))
	assert.Equal(t, msgResolved, lastNote(f.board.Notifications()).Message)
	require.Len(t, f.board.List.Items(), 1, "resolved issue leaves the open filter")
	assert.Equal(t, types.IssueResolved, f.backend.Issues()[0].Status)

	require.Error(t, f.board.Resolve(ctx, "missing"))
	assert.Equal(t, msgResolveFailed, lastNote(f.board.Notifications()).Message)

	require.NoError(t, f.board.Delete(ctx, "b"))
	assert.Equal(t, msgDeleted, lastNote(f.board.Notifications()).Message)
	assert.Empty(t, f.board.List.Items())

	require.Error(t, f.board.Delete(ctx, "b"))
	assert.Equal(t, msgDeleteFailed, lastNote(f.board.Notifications()).Message)
}

func TestBulkDelete_SendsOneDeletePerSelected(t *testing.T) {
	f := newFixture(t,
		types.PendingIssue{ID: "a"},
		types.PendingIssue{ID: "b"},
		types.PendingIssue{ID: "c"},
		types.PendingIssue{ID: "d"},
	)
	ctx := context.Background()
	require.NoError(t, f.board.Fetch(ctx))

	_, err := f.board.BulkDelete(ctx)
	assert.Error(t, err, "nothing selected")

	f.board.List.Toggle("a")
	f.board.List.Toggle("c")
	f.board.List.Toggle("d")
	n, err := f.board.BulkDelete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, f.backend.CallsTo(http.MethodDelete, "/pending-issues/"), 3)
	assert.Empty(t, f.board.List.Selected())
	require.Len(t, f.backend.Issues(), 1)
	assert.Equal(t, "b", f.backend.Issues()[0].ID)
}

func TestDigest_ConfirmMarksCapturedIssuesOnly(t *testing.T) {
	f := newFixture(t,
		types.PendingIssue{ID: "a", ClientName: "A", ClientID: "@a", Description: "x"},
		types.PendingIssue{ID: "b", ClientName: "B", ClientID: "@b", Description: "y"},
		types.PendingIssue{ID: "c", ClientName: "C", ClientID: "@c", Description: "z"},
		types.PendingIssue{ID: "s", ClientName: "S", IsSentToGroup: true},
	)
	ctx := context.Background()

	err := f.board.ConfirmDigestSent(ctx)
	assert.ErrorIs(t, err, ErrNothingToSend)
	assert.Equal(t, msgNothingConfirm, lastNote(f.board.Notifications()).Message)

	require.NoError(t, f.board.Fetch(ctx))
	d, err := f.board.GenerateDigest()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, d.IDs)
	assert.Equal(t, 3, strings.Count(d.Text, "اسم العميل او الوكيل:"))

	// Added after generation, so not part of the confirmation.
	late := f.backend.AddIssue(types.PendingIssue{ID: "late", ClientName: "L"})

	require.NoError(t, f.board.ConfirmDigestSent(ctx))
	assert.Equal(t, msgSent, lastNote(f.board.Notifications()).Message)
	calls := f.backend.CallsTo(http.MethodPut, "/pending-issues/mark-sent")
	require.Len(t, calls, 1)
	var body struct {
		IDs []string `json:"ids"`
	}
	require.NoError(t, calls[0].Decode(&body))
	assert.Equal(t, []string{"a", "b", "c"}, body.IDs)

	for _, is := range f.backend.Issues() {
		if is.ID == late.ID {
			assert.False(t, is.IsSentToGroup)
		} else {
			assert.True(t, is.IsSentToGroup, is.ID)
		}
	}
	_, ok := f.board.CurrentDigest()
	assert.False(t, ok)

	d, err = f.board.GenerateDigest()
	require.NoError(t, err)
	assert.Equal(t, []string{"late"}, d.IDs)
}

func TestDigest_NothingNew(t *testing.T) {
	f := newFixture(t, types.PendingIssue{ID: "s", IsSentToGroup: true})
	require.NoError(t, f.board.Fetch(context.Background()))
	_, err := f.board.GenerateDigest()
	assert.ErrorIs(t, err, ErrNothingToSend)
	n := lastNote(f.board.Notifications())
	assert.Equal(t, msgNoNewIssues, n.Message)
	assert.Equal(t, notify.Info, n.Severity)
}

func TestDigest_AlreadySentIsTolerated(t *testing.T) {
	f := newFixture(t, types.PendingIssue{ID: "a", ClientName: "A"})
	ctx := context.Background()
	require.NoError(t, f.board.Fetch(ctx))
	_, err := f.board.GenerateDigest()
	require.NoError(t, err)

	f.backend.FailNext(http.MethodPut, "/pending-issues/mark-sent", http.StatusNotFound, 1)
	require.NoError(t, f.board.ConfirmDigestSent(ctx))
	assert.Equal(t, msgAlreadySent, lastNote(f.board.Notifications()).Message)
	_, ok := f.board.CurrentDigest()
	assert.False(t, ok)
}

func TestDigest_ConfirmFailureKeepsDigest(t *testing.T) {
	f := newFixture(t, types.PendingIssue{ID: "a", ClientName: "A"})
	ctx := context.Background()
	require.NoError(t, f.board.Fetch(ctx))
	_, err := f.board.GenerateDigest()
	require.NoError(t, err)

	f.backend.FailNext(http.MethodPut, "/pending-issues/mark-sent", http.StatusInternalServerError, 1)
	require.Error(t, f.board.ConfirmDigestSent(ctx))
	assert.Equal(t, msgSendFailed, lastNote(f.board.Notifications()).Message)
	d, ok := f.board.CurrentDigest()
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, d.IDs)

	f.board.DiscardDigest()
	_, ok = f.board.CurrentDigest()
	assert.False(t, ok)
}

func TestSortKey(t *testing.T) {
	f := newFixture(t,
		types.PendingIssue{ID: "1", ClientName: "b"},
		types.PendingIssue{ID: "2", ClientName: "a"},
		types.PendingIssue{ID: "3", ClientName: "c"},
	)
	ctx := context.Background()
	f.board.List.ToggleSort("client_name")
	require.NoError(t, f.board.Fetch(ctx))
	var names []string
	for _, is := range f.board.List.Items() {
		names = append(names, is.ClientName)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}
