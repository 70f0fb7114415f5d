package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visutech/vims/internal/models"
	"github.com/visutech/vims/internal/repository"
)

// fakeVehicleStore 内存车辆存储
type fakeVehicleStore struct {
	byPlate   map[string]*models.Vehicle
	createErr error
	created   []*models.Vehicle
}

func (f *fakeVehicleStore) Create(ctx context.Context, v *models.Vehicle) error {
	if f.createErr != nil {
		return f.createErr
	}
	v.ID = int64(len(f.created) + 1)
	f.created = append(f.created, v)
	return nil
}

func (f *fakeVehicleStore) GetByID(ctx context.Context, id int64) (*models.Vehicle, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeVehicleStore) GetByPlate(ctx context.Context, plate string) (*models.Vehicle, error) {
	if v, ok := f.byPlate[plate]; ok {
		return v, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeVehicleStore) Search(ctx context.Context, search string) ([]*models.Vehicle, error) {
	return nil, nil
}

func (f *fakeVehicleStore) UpdateCustomer(ctx context.Context, v *models.Vehicle) error {
	return nil
}

func (f *fakeVehicleStore) Count(ctx context.Context) (int64, error) {
	return int64(len(f.created)), nil
}

func createVehicleBody() []byte {
	body, _ := json.Marshal(map[string]string{
		"license_plate":  "LT-123-AB",
		"category":       "private",
		"vehicle_type":   "sedan",
		"customer_name":  "Jean Mballa",
		"customer_phone": "+237670000001",
		"customer_email": "jean@example.com",
	})
	return body
}

func TestCreateVehicle(t *testing.T) {
	vehicles := &fakeVehicleStore{}
	r := newTestRouter(vehicles, newFakeSettingStore(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/vehicles", bytes.NewReader(createVehicleBody()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, vehicles.created, 1)
	assert.Equal(t, "LT-123-AB", vehicles.created[0].LicensePlate)
}

func TestCreateVehicleDuplicatePlate(t *testing.T) {
	vehicles := &fakeVehicleStore{
		byPlate: map[string]*models.Vehicle{
			"LT-123-AB": {ID: 1, LicensePlate: "LT-123-AB"},
		},
	}
	r := newTestRouter(vehicles, newFakeSettingStore(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/vehicles", bytes.NewReader(createVehicleBody()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
	assert.Empty(t, vehicles.created)
}

func TestCreateVehicleDuplicatePlateRace(t *testing.T) {
	// 预检没看到重复，但插入撞上唯一约束：
	// 并发创建同一车牌时仍要回 400 而不是 500
	vehicles := &fakeVehicleStore{createErr: repository.ErrDuplicate}
	r := newTestRouter(vehicles, newFakeSettingStore(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/vehicles", bytes.NewReader(createVehicleBody()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
}
