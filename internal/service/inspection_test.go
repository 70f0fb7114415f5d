package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/visutech/vims/internal/models"
	"github.com/visutech/vims/internal/notify"
)

// fakeInspectionWriter 记录写入的检测
type fakeInspectionWriter struct {
	created []*models.Inspection
}

func (f *fakeInspectionWriter) Create(ctx context.Context, insp *models.Inspection) error {
	insp.ID = int64(len(f.created) + 1)
	f.created = append(f.created, insp)
	return nil
}

// fakeMirrorWriter 记录写入的镜像
type fakeMirrorWriter struct {
	created []*models.Notification
	exists  bool
}

func (f *fakeMirrorWriter) Create(ctx context.Context, n *models.Notification) error {
	f.created = append(f.created, n)
	return nil
}

func (f *fakeMirrorWriter) ExistsForInspection(ctx context.Context, inspectionID int64) (bool, error) {
	return f.exists, nil
}

func newTestInspectionService(vs *fakeVehicleStore, writer *fakeInspectionWriter, mirror *fakeMirrorWriter, channels []notify.Channel) *InspectionService {
	s := NewInspectionService(zap.NewNop(), vs, writer, mirror, channels)
	s.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestCreateInspectionValidation(t *testing.T) {
	s := newTestInspectionService(&fakeVehicleStore{}, &fakeInspectionWriter{}, &fakeMirrorWriter{}, nil)

	_, err := s.Create(context.Background(), CreateInspectionInput{
		Result:      models.ResultPass,
		NextDueDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = s.Create(context.Background(), CreateInspectionInput{
		VehicleID:   1,
		Result:      "maybe",
		NextDueDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, ErrInvalidResult)
}

func TestCreateInspectionUnknownVehicle(t *testing.T) {
	s := newTestInspectionService(
		&fakeVehicleStore{vehicles: map[int64]*models.Vehicle{}},
		&fakeInspectionWriter{},
		&fakeMirrorWriter{},
		nil,
	)

	_, err := s.Create(context.Background(), CreateInspectionInput{
		VehicleID:   99,
		Result:      models.ResultPass,
		NextDueDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, ErrVehicleNotFound)
}

func TestCreateInspectionSendsInlineMessages(t *testing.T) {
	vs := &fakeVehicleStore{vehicles: map[int64]*models.Vehicle{1: testVehicle(1, "LT-123-AB")}}
	writer := &fakeInspectionWriter{}
	ch := &fakeChannel{name: "sms", applicable: true, sendOK: true}

	s := newTestInspectionService(vs, writer, &fakeMirrorWriter{}, []notify.Channel{ch})

	insp, err := s.Create(context.Background(), CreateInspectionInput{
		VehicleID:   1,
		Result:      models.ResultPass,
		NextDueDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, writer.created, 1)
	assert.Equal(t, models.ResultPass, insp.Result)
	require.NotNil(t, insp.NextDueDate)

	// 欢迎 + 结果各一次
	assert.Equal(t, 2, ch.sent)
}

func TestCreateInspectionSendFailureDoesNotFail(t *testing.T) {
	vs := &fakeVehicleStore{vehicles: map[int64]*models.Vehicle{1: testVehicle(1, "LT-123-AB")}}
	ch := &fakeChannel{name: "sms", applicable: true, sendOK: false}

	s := newTestInspectionService(vs, &fakeInspectionWriter{}, &fakeMirrorWriter{}, []notify.Channel{ch})

	_, err := s.Create(context.Background(), CreateInspectionInput{
		VehicleID:   1,
		Result:      models.ResultFail,
		NextDueDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
	})
	assert.NoError(t, err)
}

func TestCreateInspectionMirrorsWhenDueSoon(t *testing.T) {
	vs := &fakeVehicleStore{vehicles: map[int64]*models.Vehicle{1: testVehicle(1, "LT-123-AB")}}

	t.Run("due inside window", func(t *testing.T) {
		mirror := &fakeMirrorWriter{}
		s := newTestInspectionService(vs, &fakeInspectionWriter{}, mirror, nil)

		_, err := s.Create(context.Background(), CreateInspectionInput{
			VehicleID:   1,
			Result:      models.ResultPass,
			NextDueDate: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		require.Len(t, mirror.created, 1)
		assert.Equal(t, models.NotificationPending, mirror.created[0].Status)
		assert.Contains(t, mirror.created[0].Message, "LT-123-AB")
	})

	t.Run("due far in the future", func(t *testing.T) {
		mirror := &fakeMirrorWriter{}
		s := newTestInspectionService(vs, &fakeInspectionWriter{}, mirror, nil)

		_, err := s.Create(context.Background(), CreateInspectionInput{
			VehicleID:   1,
			Result:      models.ResultPass,
			NextDueDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		assert.Empty(t, mirror.created)
	})

	t.Run("mirror already exists", func(t *testing.T) {
		mirror := &fakeMirrorWriter{exists: true}
		s := newTestInspectionService(vs, &fakeInspectionWriter{}, mirror, nil)

		_, err := s.Create(context.Background(), CreateInspectionInput{
			VehicleID:   1,
			Result:      models.ResultPass,
			NextDueDate: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		assert.Empty(t, mirror.created)
	})
}
