package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ohmguard-notify/internal/domain"
	"ohmguard-notify/internal/models"
)

func setupMockSensorsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *SensorsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewSensorsRepository(db, logger)

	return db, mock, repo
}

var sensorRowColumns = []string{
	"id", "tenant_id", "name", "type", "serial_product", "status",
	"organization_id", "building_id", "floor_id", "room_id",
}

func TestGetSensor_Success(t *testing.T) {
	db, mock, repo := setupMockSensorsDB(t)
	defer db.Close()

	sensorID := uuid.New().String()
	tenantID := uuid.New().String()
	roomID := uuid.New().String()

	mock.ExpectQuery(`SELECT(.|\n)*FROM sensors WHERE id`).
		WithArgs(sensorID).
		WillReturnRows(sqlmock.NewRows(sensorRowColumns).AddRow(
			sensorID, tenantID, "Radar Room 101", "RADAR", "VY-2024-001", "ONLINE",
			nil, nil, nil, roomID,
		))

	sensor, err := repo.GetSensor(context.Background(), sensorID)

	require.NoError(t, err)
	assert.Equal(t, sensorID, sensor.ID)
	require.NotNil(t, sensor.Name)
	assert.Equal(t, "Radar Room 101", *sensor.Name)
	require.NotNil(t, sensor.RoomID)
	assert.Equal(t, roomID, *sensor.RoomID)
	assert.Nil(t, sensor.OrganizationID)
	assert.Nil(t, sensor.BuildingID)
	assert.Nil(t, sensor.FloorID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSensorByTenant_NotFound(t *testing.T) {
	db, mock, repo := setupMockSensorsDB(t)
	defer db.Close()

	tenantID := uuid.New().String()

	mock.ExpectQuery(`SELECT(.|\n)*FROM sensors WHERE tenant_id`).
		WithArgs(tenantID).
		WillReturnError(sql.ErrNoRows)

	sensor, err := repo.GetSensorByTenant(context.Background(), tenantID)

	assert.Nil(t, sensor)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNode_Room(t *testing.T) {
	db, mock, repo := setupMockSensorsDB(t)
	defer db.Close()

	roomID := uuid.New().String()
	floorID := uuid.New().String()

	mock.ExpectQuery(`SELECT id, name, floor_id AS parent_id, room_number FROM rooms`).
		WithArgs(roomID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "parent_id", "room_number"}).
			AddRow(roomID, "Room 101", floorID, "101"))

	node, err := repo.GetNode(context.Background(), models.NodeRoom, roomID)

	require.NoError(t, err)
	assert.Equal(t, "Room 101", node.Name)
	require.NotNil(t, node.RoomNumber)
	assert.Equal(t, "101", *node.RoomNumber)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNode_UnknownLevel(t *testing.T) {
	db, mock, repo := setupMockSensorsDB(t)
	defer db.Close()

	node, err := repo.GetNode(context.Background(), "wing", uuid.New().String())

	assert.Nil(t, node)
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNode_MissingOrganization(t *testing.T) {
	db, mock, repo := setupMockSensorsDB(t)
	defer db.Close()

	orgID := uuid.New().String()

	mock.ExpectQuery(`FROM organizations`).
		WithArgs(orgID).
		WillReturnError(sql.ErrNoRows)

	node, err := repo.GetNode(context.Background(), models.NodeOrganization, orgID)

	assert.Nil(t, node)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
