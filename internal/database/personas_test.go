package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andychuong/spendsense-sub000/internal/models"
)

var personaColumns = []string{
	"id", "user_id", "persona", "persona_name", "rationale", "conditions_met",
	"priority_rank", "signals", "assigned_at",
}

func personaRow(userID string) *sqlmock.Rows {
	return sqlmock.NewRows(personaColumns).AddRow(
		int64(7), userID, int64(1), "High Utilization",
		"Classified as High Utilization: card ...1234 utilization 68.0% >= 50%.",
		[]byte(`{"card ...1234 utilization 68.0% >= 50%"}`),
		int64(1),
		[]byte(`{"user_id":"`+userID+`","captured_at":"2025-06-01T00:00:00Z","windows":[{"days":30,"start":"2025-05-02","end":"2025-06-01","domains":null}]}`),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	)
}

func TestGetActivePersona_NeverClassified(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`FROM persona_assignments(.|\n)+WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(personaColumns))

	a, err := db.GetActivePersona(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestGetActivePersona_DecodesArrayAndSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`FROM persona_assignments(.|\n)+WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(personaRow("user-1"))

	a, err := db.GetActivePersona(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.PersonaHighUtilization, a.Persona)
	assert.Equal(t, "High Utilization", a.PersonaName)
	require.Len(t, a.ConditionsMet, 1)
	assert.Contains(t, a.ConditionsMet[0], "...1234")
	require.Len(t, a.Signals.Windows, 1)
	assert.Equal(t, 30, a.Signals.Windows[0].Days)
}

func TestReplaceActivePersona_ArchivesInSameTransaction(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO persona_history(.|\n)+FROM persona_assignments`).
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO persona_assignments(.|\n)+ON CONFLICT \(user_id\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))
	mock.ExpectCommit()

	a, err := db.ReplaceActivePersona(context.Background(), models.PersonaAssignment{
		UserID:        "user-1",
		Persona:       models.PersonaSavingsBuilder,
		PersonaName:   "Savings Builder",
		Rationale:     "positive savings growth",
		ConditionsMet: []string{"net inflow $150.00 over the window"},
		PriorityRank:  4,
		AssignedAt:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceActivePersona_ArchiveFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO persona_history`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := db.ReplaceActivePersona(context.Background(), models.PersonaAssignment{UserID: "user-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to archive persona")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPersonaHistory_NewestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	cols := []string{"id", "user_id", "persona", "rationale", "assigned_at", "archived_at"}
	assigned := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM persona_history(.|\n)+ORDER BY archived_at DESC`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(2), "user-1", int64(5), "default", assigned.AddDate(0, 1, 0), assigned.AddDate(0, 2, 0)).
			AddRow(int64(1), "user-1", int64(3), "subscriptions", assigned, assigned.AddDate(0, 1, 0)))

	entries, err := db.GetPersonaHistory(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.PersonaDefault, entries[0].Persona)
	assert.Equal(t, models.PersonaSubscriptionHeavy, entries[1].Persona)
}

func TestListActivePersonas_KeyedByUser(t *testing.T) {
	db, mock := newMockDB(t)
	rows := personaRow("user-1").AddRow(
		int64(9), "user-2", int64(5), "Getting Started",
		"No specific behavioral pattern matched; assigned the default persona.",
		[]byte(`{}`), int64(5),
		[]byte(`{"user_id":"user-2","captured_at":"2025-06-01T00:00:00Z","windows":null}`),
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	)
	mock.ExpectQuery(`FROM persona_assignments`).WillReturnRows(rows)

	assignments, err := db.ListActivePersonas(context.Background())
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	assert.Equal(t, models.PersonaHighUtilization, assignments["user-1"].Persona)
	assert.Empty(t, assignments["user-2"].ConditionsMet)
}
