package license

import (
	"context"
	"errors"
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

func newTestGate(values map[string]string) *Gate {
	g := NewGate(&fakeSettings{values: values}, zap.NewNop())
	g.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return g
}

func TestGateCheck(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]string
		wantErr error
	}{
		{
			name:    "never configured",
			values:  map[string]string{},
			wantErr: nil,
		},
		{
			name:    "active license",
			values:  map[string]string{KeyLicenseStatus: StatusActive},
			wantErr: nil,
		},
		{
			name: "trial within period",
			values: map[string]string{
				KeyLicenseStatus:  StatusTrial,
				KeyTrialStartDate: "2026-03-01",
			},
			wantErr: nil,
		},
		{
			name: "trial on last day",
			values: map[string]string{
				KeyLicenseStatus:  StatusTrial,
				KeyTrialStartDate: "2026-02-24", // 正好 14 天
			},
			wantErr: nil,
		},
		{
			name: "trial expired",
			values: map[string]string{
				KeyLicenseStatus:  StatusTrial,
				KeyTrialStartDate: "2026-02-20",
			},
			wantErr: ErrTrialExpired,
		},
		{
			name:    "trial without start date",
			values:  map[string]string{KeyLicenseStatus: StatusTrial},
			wantErr: nil,
		},
		{
			name: "trial with garbage start date",
			values: map[string]string{
				KeyLicenseStatus:  StatusTrial,
				KeyTrialStartDate: "not a date",
			},
			wantErr: nil,
		},
		{
			name:    "inactive license",
			values:  map[string]string{KeyLicenseStatus: StatusInactive},
			wantErr: ErrLicenseInactive,
		},
		{
			name:    "unknown status treated as inactive",
			values:  map[string]string{KeyLicenseStatus: "banana"},
			wantErr: ErrLicenseInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestGate(tt.values).Check(context.Background())
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestGateCheckTrialStartRFC3339(t *testing.T) {
	g := newTestGate(map[string]string{
		KeyLicenseStatus:  StatusTrial,
		KeyTrialStartDate: "2026-03-05T14:30:00Z",
	})
	assert.NoError(t, g.Check(context.Background()))
}

func TestGateCheckTrialStartInOtherZone(t *testing.T) {
	// 起始日存储时带 +12:00 偏移；按服务器时区（UTC）折算是 2 月 23 日，
	// 到 3 月 10 日已是第 15 天，必须拒绝。按原偏移截断会误判成 14 天。
	g := newTestGate(map[string]string{
		KeyLicenseStatus:  StatusTrial,
		KeyTrialStartDate: "2026-02-24T02:00:00+12:00",
	})
	assert.ErrorIs(t, g.Check(context.Background()), ErrTrialExpired)

	// 同一天晚些时候的时刻折算后仍是 2 月 24 日，第 14 天放行
	g = newTestGate(map[string]string{
		KeyLicenseStatus:  StatusTrial,
		KeyTrialStartDate: "2026-02-24T22:00:00+12:00",
	})
	assert.NoError(t, g.Check(context.Background()))
}

func TestGateCheckStoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	g := NewGate(&fakeSettings{err: boom}, zap.NewNop())

	err := g.Check(context.Background())
	// 存储故障不能伪装成许可拒绝
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrTrialExpired)
	assert.NotErrorIs(t, err, ErrLicenseInactive)
}

func TestGateExpiryIsRecomputedOnEachRead(t *testing.T) {
	settings := &fakeSettings{values: map[string]string{
		KeyLicenseStatus:  StatusTrial,
		KeyTrialStartDate: "2026-03-01",
	}}
	g := NewGate(settings, zap.NewNop())

	g.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	assert.NoError(t, g.Check(context.Background()))

	// 时间推进后同一份存储状态被判定为过期，无需任何写入
	g.now = func() time.Time { return time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC) }
	assert.ErrorIs(t, g.Check(context.Background()), ErrTrialExpired)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2026-03-05")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("2026-03-05T14:30:00Z")
	assert.NoError(t, err)
	assert.Equal(t, 14, got.Hour())

	_, err = ParseDate("03/05/2026")
	assert.Error(t, err)
}
