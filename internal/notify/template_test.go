package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeSettings 内存配置源
type fakeSettings struct {
	values map[string]string
	err    error
}

func (f *fakeSettings) GetValue(ctx context.Context, key string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func TestResolveFallsBackToDefaults(t *testing.T) {
	tpl := NewTemplates(&fakeSettings{values: map[string]string{}}, zap.NewNop())

	got := tpl.Resolve(context.Background(), KeyWelcomeMessage)
	assert.Equal(t, Defaults[KeyWelcomeMessage], got)
}

func TestResolvePrefersStoredValue(t *testing.T) {
	tpl := NewTemplates(&fakeSettings{values: map[string]string{
		KeyWelcomeMessage: "Bonjour {{customerName}}!",
	}}, zap.NewNop())

	got := tpl.Resolve(context.Background(), KeyWelcomeMessage)
	assert.Equal(t, "Bonjour {{customerName}}!", got)
}

func TestResolveFallsBackOnStoreError(t *testing.T) {
	tpl := NewTemplates(&fakeSettings{err: errors.New("connection refused")}, zap.NewNop())

	got := tpl.Resolve(context.Background(), KeyPassedMessage)
	assert.Equal(t, Defaults[KeyPassedMessage], got)
}

func TestRender(t *testing.T) {
	got := Render("Dear {{customerName}}, {{licensePlate}} is due on {{nextDueDate}}.", map[string]string{
		"customerName": "Jean Mballa",
		"licensePlate": "LT-123-AB",
		"nextDueDate":  "March 17, 2026",
	})

	assert.Equal(t, "Dear Jean Mballa, LT-123-AB is due on March 17, 2026.", got)
	assert.NotContains(t, got, "{{")
}

func TestRenderPositionalPlaceholders(t *testing.T) {
	got := Render(Defaults[KeyWhatsAppReminder], map[string]string{
		"1": "Jean Mballa",
		"2": "LT-123-AB",
		"3": "March 17, 2026",
	})

	assert.Equal(t, "Reminder: Dear Jean Mballa, your vehicle LT-123-AB is due for inspection on March 17, 2026.", got)
}

func TestRenderDoesNotEscape(t *testing.T) {
	// 值原样替换，模板作者自己负责内容
	got := Render("Hello {{customerName}}", map[string]string{
		"customerName": "<b>Jean & Co.</b>",
	})
	assert.Equal(t, "Hello <b>Jean & Co.</b>", got)
}

func TestRenderLeavesUnknownPlaceholders(t *testing.T) {
	got := Render("{{customerName}} / {{unknown}}", map[string]string{
		"customerName": "Jean",
	})
	assert.Equal(t, "Jean / {{unknown}}", got)
}

func TestFormatDate(t *testing.T) {
	got := FormatDate(time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "March 17, 2026", got)
}

func TestCleanNumber(t *testing.T) {
	assert.Equal(t, "237670000001", cleanNumber("+237 670-000-001"))
	assert.Equal(t, "237670000001", cleanNumber("237670000001"))
	assert.Equal(t, "", cleanNumber("n/a"))
}

func TestDefaultsCoverAllTemplateKeys(t *testing.T) {
	for _, key := range []string{
		KeyWelcomeMessage,
		KeyPassedMessage,
		KeyFailedMessage,
		KeyWhatsAppReminder,
		KeyEmailReminderSubject,
		KeyEmailReminderBody,
	} {
		assert.NotEmpty(t, strings.TrimSpace(Defaults[key]), "default missing for %s", key)
	}
}
