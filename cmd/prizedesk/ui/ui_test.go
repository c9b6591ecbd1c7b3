package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"prizedesk/internal/notify"
)

func TestDetectTheme(t *testing.T) {
	t.Setenv("PRIZEDESK_DARK_MODE", "1")
	assert.True(t, DetectTheme().IsDark)

	t.Setenv("PRIZEDESK_DARK_MODE", "0")
	assert.False(t, DetectTheme().IsDark)

	assert.True(t, ThemeByName("dark").IsDark)
	assert.Equal(t, "light", ThemeByName("LIGHT").Name)
}

func TestTable(t *testing.T) {
	table := NewTable("السجلات", []string{"الاسم", "الحالة"})
	table.Selectable = true
	table.AddRow("أحمد", "جاري")
	table.AddRow("سارة", "مكتمل")
	table.Marked[1] = true
	table.Cursor = 0

	view := table.View(NewStyles(LightTheme()), "لا توجد سجلات")
	assert.Contains(t, view, "السجلات")
	assert.Contains(t, view, "أحمد")
	assert.Contains(t, view, "☑")
	assert.Contains(t, view, "☐")
}

func TestTableEmpty(t *testing.T) {
	view := NewTable("", []string{"a"}).View(NewStyles(DarkTheme()), "nothing here")
	assert.Contains(t, view, "nothing here")
}

func TestLayout(t *testing.T) {
	l := NewLayoutConfig(120, 40, false)
	assert.Equal(t, SidebarWidth, l.SidebarWidth())
	assert.Equal(t, 120-SidebarWidth-4, l.ContentWidth())

	narrow := NewLayoutConfig(60, 20, false)
	assert.True(t, narrow.Collapsed)
	assert.Equal(t, SidebarCollapsedWidth, narrow.SidebarWidth())
	assert.Equal(t, 52, narrow.ModalWidth())
}

func TestNotificationRendering(t *testing.T) {
	s := NewStyles(LightTheme())
	assert.Contains(t, s.Notification(notify.Notification{Message: "تم", Severity: notify.Success}), "تم")
	assert.Contains(t, s.Notification(notify.Notification{Message: "خطأ", Severity: notify.Error}), "✖")
}
