package services

import (
	"context"
	"testing"

	"loralinka/internal/database/dbtest"
	"loralinka/internal/logger"
	"loralinka/internal/models"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type testEnv struct {
	db          *bun.DB
	emergencies *EmergencyService
	units       *EmergencyUnitService
	users       *UserService
	catalogs    *CatalogService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.New(t)
	logr := logger.Nop()
	return &testEnv{
		db:          db,
		emergencies: NewEmergencyService(db, logr),
		units:       NewEmergencyUnitService(db, logr),
		users:       NewUserService(db, logr),
		catalogs:    NewCatalogService(db),
	}
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func floatPtr(v float64) *float64 { return &v }

func statusPtr(s models.EmergencyStatus) *models.EmergencyStatus { return &s }

func (env *testEnv) unit(t *testing.T, name string, lat, lon float64) *models.EmergencyUnit {
	t.Helper()
	u, err := env.units.Create(context.Background(), models.CreateUnitRequest{Name: name, Latitude: lat, Longitude: lon})
	require.NoError(t, err)
	return u
}

func (env *testEnv) emergency(t *testing.T) *models.Emergency {
	t.Helper()
	e, err := env.emergencies.Create(context.Background(), models.CreateEmergencyRequest{
		Latitude:  floatPtr(10.5),
		Longitude: floatPtr(-66.9),
	})
	require.NoError(t, err)
	return e
}

func (env *testEnv) accidentType(t *testing.T, desc string) int64 {
	t.Helper()
	at := &models.AccidentType{Description: strPtr(desc)}
	_, err := env.db.NewInsert().Model(at).Exec(context.Background())
	require.NoError(t, err)
	return at.ID
}

func (env *testEnv) kin(t *testing.T, name string) int64 {
	t.Helper()
	k := &models.KinCatalog{Name: strPtr(name)}
	_, err := env.db.NewInsert().Model(k).Exec(context.Background())
	require.NoError(t, err)
	return k.ID
}

func (env *testEnv) condition(t *testing.T, desc string) int64 {
	t.Helper()
	mc := &models.MedicalCondition{Description: strPtr(desc)}
	_, err := env.db.NewInsert().Model(mc).Exec(context.Background())
	require.NoError(t, err)
	return mc.ID
}

// reload reads the raw rows back, bypassing the service read paths.
func (env *testEnv) reload(t *testing.T, e *models.Emergency, u *models.EmergencyUnit) (*models.Emergency, *models.EmergencyUnit) {
	t.Helper()
	ctx := context.Background()

	var gotE *models.Emergency
	if e != nil {
		gotE = new(models.Emergency)
		require.NoError(t, env.db.NewSelect().Model(gotE).Where("e.emergency_id = ?", e.ID).Scan(ctx))
	}
	var gotU *models.EmergencyUnit
	if u != nil {
		gotU = new(models.EmergencyUnit)
		require.NoError(t, env.db.NewSelect().Model(gotU).Where("eu.emergency_unit_id = ?", u.ID).Scan(ctx))
	}
	return gotE, gotU
}
