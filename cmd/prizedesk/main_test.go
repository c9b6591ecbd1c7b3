package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prizedesk/internal/apitest"
	"prizedesk/internal/settings"
	"prizedesk/internal/types"
)

type cliEnv struct {
	backend *apitest.Backend
	url     string
	ws      string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	b := apitest.New()
	return &cliEnv{backend: b, url: b.Start(t), ws: t.TempDir()}
}

// run executes the root command with fresh flag state and returns stdout
// and stderr.
func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errb bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errb)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--workspace", e.ws, "--api-url", e.url, "--timeout", "10s"}, args...))
	err := rootCmd.Execute()
	return out.String(), errb.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func completeRecord() types.Record {
	return types.Record{
		ClientName:                "أحمد محمود",
		Email:                     "ahmed.trader@example.com",
		AccountNumber:             "778812",
		AgencyID:                  "4521",
		AgentName:                 "سامي",
		PrizeType:                 types.PrizeTrading,
		PrizeAmount:               150,
		PrizeDueDate:              "2025-03-10",
		NameVerified:              true,
		CRMAccountValid:           true,
		AgencyAffiliationVerified: true,
		MT5ScreenshotReceived:     true,
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{"", types.All, false},
		{"all", types.All, false},
		{"in-progress", string(types.StatusInProgress), false},
		{"Completed", string(types.StatusCompleted), false},
		{string(types.StatusCompleted), string(types.StatusCompleted), false},
		{"archived", "", true},
	}
	for _, tt := range tests {
		got, err := parseStatus(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseSets(t *testing.T) {
	edits, err := parseSets([]string{"client_name=سارة", "name_verified=true", "mt5_screenshot_notes=a=b"})
	require.NoError(t, err)
	require.Len(t, edits, 3)
	assert.Equal(t, true, edits[1].value)
	assert.Equal(t, "a=b", edits[2].value)

	_, err = parseSets([]string{"nickname=x"})
	assert.ErrorContains(t, err, "unknown field")
	_, err = parseSets([]string{"name_verified=maybe"})
	assert.Error(t, err)
	_, err = parseSets([]string{"client_name"})
	assert.ErrorContains(t, err, "field=value")
}

func TestVerificationsList_FiltersAndPages(t *testing.T) {
	env := newCLIEnv(t)
	env.backend.AddRecord(types.Record{ClientName: "سارة", Status: types.StatusCompleted})
	env.backend.AddRecord(types.Record{ClientName: "خالد", Status: types.StatusInProgress})

	out, _, err := env.run(t, "", "verifications", "list", "--status", "completed")
	require.NoError(t, err)
	assert.Contains(t, out, "سارة")
	assert.NotContains(t, out, "خالد")
	assert.Contains(t, out, "عرض 1-1 من 1")

	for i := 0; i < 10; i++ {
		env.backend.AddRecord(types.Record{ClientName: "عميل"})
	}
	out, _, err = env.run(t, "", "verifications", "list", "--limit", "5", "--page", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "عرض 11-12 من 12")

	_, _, err = env.run(t, "", "verifications", "list", "--limit", "7")
	assert.Error(t, err)
	_, _, err = env.run(t, "", "verifications", "list", "--due", "10/03/2025")
	assert.Error(t, err)
}

func TestVerificationsNewAndShow(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := env.run(t, "", "verifications", "new", "--set", "client_name=سارة", "--set", "agency_id=4521")
	require.NoError(t, err)
	id := strings.TrimSpace(strings.SplitN(out, "\n", 2)[0])
	require.NotEmpty(t, id)

	rec, ok := env.backend.Record(id)
	require.True(t, ok)
	assert.Equal(t, "سارة", rec.ClientName)
	assert.Equal(t, "4521", rec.AgencyID)

	out, _, err = env.run(t, "", "verifications", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "سارة")
	assert.Contains(t, out, types.FieldMT5ScreenshotReceived.Label())
}

func TestVerificationsDelete_AsksFirst(t *testing.T) {
	env := newCLIEnv(t)
	rec := env.backend.AddRecord(types.Record{ClientName: "سارة"})

	_, _, err := env.run(t, "n\n", "verifications", "delete", rec.ID)
	assert.ErrorContains(t, err, "aborted")
	assert.Equal(t, 1, env.backend.RecordCount())

	out, _, err := env.run(t, "", "verifications", "delete", "--yes", rec.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 1 of 1")
	assert.Equal(t, 0, env.backend.RecordCount())
}

func TestVerificationsKlisha_Copies(t *testing.T) {
	env := newCLIEnv(t)
	rec := env.backend.AddRecord(completeRecord())

	var copied string
	orig := clipboardWriteAll
	clipboardWriteAll = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { clipboardWriteAll = orig })

	out, _, err := env.run(t, "", "verifications", "klisha", "--copy", rec.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "الاسم: أحمد محمود")
	assert.Equal(t, strings.TrimSpace(out), copied)
}

func TestVerificationsPublish(t *testing.T) {
	env := newCLIEnv(t)
	ready := env.backend.AddRecord(completeRecord())
	draft := env.backend.AddRecord(types.Record{ClientName: "خالد"})

	_, _, err := env.run(t, "", "verifications", "publish", ready.ID)
	require.NoError(t, err)
	rec, _ := env.backend.Record(ready.ID)
	assert.Equal(t, types.StatusCompleted, rec.Status)
	assert.True(t, rec.PrizePublishedOnGroup)

	_, stderr, err := env.run(t, "", "verifications", "publish", draft.ID)
	assert.Error(t, err)
	assert.Contains(t, stderr, "[error]")
}

func TestStats(t *testing.T) {
	env := newCLIEnv(t)
	env.backend.AddRecord(types.Record{ClientName: "سارة", Status: types.StatusCompleted, PrizePublishedOnGroup: true})
	env.backend.AddRecord(types.Record{ClientName: "خالد"})

	out, _, err := env.run(t, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "إجمالي السجلات")
}

func TestPending_AddListDigest(t *testing.T) {
	env := newCLIEnv(t)

	_, stderr, err := env.run(t, "", "pending", "add", "--name", "سارة")
	assert.Error(t, err)
	assert.Contains(t, stderr, "[warning]")

	_, _, err = env.run(t, "", "pending", "add", "--name", "سارة", "--telegram", "@sara", "--desc", "تأخر التحويل")
	require.NoError(t, err)
	env.backend.AddIssue(types.PendingIssue{ClientName: "خالد", ClientID: "@khaled", Description: "قديمة", IsSentToGroup: true})

	out, _, err := env.run(t, "", "pending", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "سارة")
	assert.Contains(t, out, "خالد")

	out, _, err = env.run(t, "", "pending", "digest", "--confirm")
	require.NoError(t, err)
	assert.Contains(t, out, "قائمة المعلقات")
	assert.Contains(t, out, "@sara")
	assert.NotContains(t, out, "@khaled")
	for _, is := range env.backend.Issues() {
		assert.True(t, is.IsSentToGroup, is.ClientName)
	}

	_, stderr, err = env.run(t, "", "pending", "digest")
	require.NoError(t, err)
	assert.Contains(t, stderr, "[info]")
}

func TestPending_ResolveAndDelete(t *testing.T) {
	env := newCLIEnv(t)
	a := env.backend.AddIssue(types.PendingIssue{ClientName: "سارة", ClientID: "@sara", Description: "x"})
	b := env.backend.AddIssue(types.PendingIssue{ClientName: "خالد", ClientID: "@khaled", Description: "y"})

	_, _, err := env.run(t, "y\n", "pending", "resolve", a.ID)
	require.NoError(t, err)
	for _, is := range env.backend.Issues() {
		if is.ID == a.ID {
			assert.Equal(t, types.IssueResolved, is.Status)
		}
	}

	out, _, err := env.run(t, "", "pending", "delete", "--yes", a.ID, b.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 2 of 2")
	assert.Empty(t, env.backend.Issues())
}

func TestExport_CSV(t *testing.T) {
	env := newCLIEnv(t)
	env.backend.AddRecord(types.Record{ClientName: "سارة", Status: types.StatusCompleted})
	env.backend.AddRecord(types.Record{ClientName: "خالد"})

	path := filepath.Join(env.ws, "out.csv")
	out, _, err := env.run(t, "", "export", "--out", path, "--status", "completed")
	require.NoError(t, err)
	assert.Contains(t, out, "exported 1 records")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\ufeff"))
	assert.Contains(t, string(data), "سارة")
	assert.NotContains(t, string(data), "خالد")

	_, _, err = env.run(t, "", "export", "--out", filepath.Join(env.ws, "out.pdf"))
	assert.Error(t, err)
}

func TestSettings_SetShowReset(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := env.run(t, "", "settings", "set", "theme", "dark")
	require.NoError(t, err)
	assert.Contains(t, out, settings.MsgSaved)

	out, _, err = env.run(t, "", "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "dark")

	_, _, err = env.run(t, "", "settings", "set", "autosave_minutes", "0")
	assert.Error(t, err)
	_, _, err = env.run(t, "", "settings", "set", "nickname", "x")
	assert.ErrorContains(t, err, "unknown setting")

	out, _, err = env.run(t, "", "settings", "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, settings.MsgReset)
	assert.Equal(t, settings.ThemeLight, settingsMgr.Get().Theme)
}

func TestCommandContext_UsesTimeout(t *testing.T) {
	timeout = 50 * time.Millisecond
	t.Cleanup(func() { timeout = 30 * time.Second })

	ctx, cancel := commandContext()
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 40*time.Millisecond)
}
