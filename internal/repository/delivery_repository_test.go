package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tullo/relay/internal/database"
	"github.com/tullo/relay/internal/models"
)

func newMockRepository(t *testing.T) (*DeliveryRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDeliveryRepository(&database.DB{DB: db}), mock
}

func TestDeliveryRepository_Record(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("INSERT INTO webhook_deliveries").
		WithArgs(sqlmock.AnyArg(), "twitch", "msg-1", "stream.online", models.DeliveryAccepted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	messageID := "msg-1"
	d := &models.WebhookDelivery{
		Provider:  "twitch",
		MessageID: &messageID,
		EventType: "stream.online",
		Outcome:   models.DeliveryAccepted,
	}
	require.NoError(t, repo.Record(context.Background(), d))

	assert.NotEqual(t, uuid.Nil, d.ID)
	assert.False(t, d.ReceivedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryRepository_RecordError(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("INSERT INTO webhook_deliveries").
		WillReturnError(errors.New("connection refused"))

	err := repo.Record(context.Background(), &models.WebhookDelivery{Provider: "polar", Outcome: models.DeliveryRejected})
	assert.ErrorContains(t, err, "failed to record webhook delivery")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryRepository_List(t *testing.T) {
	repo, mock := newMockRepository(t)

	newer := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	id1, id2 := uuid.New(), uuid.New()

	rows := sqlmock.NewRows([]string{"id", "provider", "message_id", "event_type", "outcome", "received_at"}).
		AddRow(id1.String(), "polar", nil, "checkout.updated", models.DeliveryAccepted, newer).
		AddRow(id2.String(), "twitch", "msg-1", "stream.offline", models.DeliveryDuplicate, older)
	mock.ExpectQuery("FROM webhook_deliveries").
		WithArgs(2).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, id1, got[0].ID)
	assert.Equal(t, "checkout.updated", got[0].EventType)
	assert.Nil(t, got[0].MessageID)
	assert.Equal(t, id2, got[1].ID)
	assert.Equal(t, models.DeliveryDuplicate, got[1].Outcome)
	require.NotNil(t, got[1].MessageID)
	assert.Equal(t, "msg-1", *got[1].MessageID)
	assert.True(t, older.Equal(got[1].ReceivedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliveryRepository_ListDefaultsLimit(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("FROM webhook_deliveries").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "provider", "message_id", "event_type", "outcome", "received_at"}))

	got, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
