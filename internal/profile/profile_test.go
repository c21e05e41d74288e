package profile

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
)

func TestMemoryProvider(t *testing.T) {
	m := NewMemory(model.Profile{SessionID: "s1", Gender: model.GenderMale})
	p, err := m.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.GenderMale, p.Gender)

	_, err = m.Get(context.Background(), "s2")
	assert.ErrorIs(t, err, ErrNotFound)

	m.Put(model.Profile{SessionID: "s2", Gender: model.GenderFemale})
	p, err = m.Get(context.Background(), "s2")
	require.NoError(t, err)
	assert.Equal(t, model.GenderFemale, p.Gender)
}

func TestRepoGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepo(db)

	q := regexp.QuoteMeta("SELECT session_id,name,email,gender,single_room,snores,light_sleeper,smoker,sleep_schedule,birth_year FROM profiles WHERE session_id=?")
	cols := []string{"session_id", "name", "email", "gender", "single_room", "snores", "light_sleeper", "smoker", "sleep_schedule", "birth_year"}
	mock.ExpectQuery(q).WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("s1", "Kim", "kim@example.com", "male", true, true, false, false, "early", 1999))
	mock.ExpectQuery(q).WithArgs("nobody").WillReturnRows(sqlmock.NewRows(cols))

	p, err := repo.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.GenderMale, p.Gender)
	assert.Equal(t, model.ScheduleEarly, p.SleepSchedule)
	assert.True(t, p.SingleRoom)
	assert.True(t, p.Snores)
	assert.Equal(t, 1999, p.BirthYear)

	_, err = repo.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepoUpsertNormalizesEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles")).
		WithArgs("s1", "Kim", "kim@example.com", "MALE", false, false, false, true, "", 0).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = NewRepo(db).Upsert(context.Background(), model.Profile{
		SessionID: "s1", Name: "Kim", Email: "  Kim@Example.com ", Gender: model.GenderMale, Smoker: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseFile(t *testing.T) {
	m, err := ParseFile([]byte(`
profiles:
  - session_id: s1
    name: Ahn
    gender: m
    light_sleeper: true
  - session_id: s2
    gender: FEMALE
    sleep_schedule: LATE
    birth_year: 1990
`))
	require.NoError(t, err)

	p, err := m.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.GenderMale, p.Gender)
	assert.True(t, p.LightSleeper)

	p, err = m.Get(context.Background(), "s2")
	require.NoError(t, err)
	assert.Equal(t, model.GenderFemale, p.Gender)
	assert.Equal(t, model.ScheduleLate, p.SleepSchedule)
	assert.Equal(t, 1990, p.BirthYear)
}

func TestParseFileRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no id", "profiles:\n  - gender: M\n"},
		{"no gender", "profiles:\n  - session_id: s1\n"},
		{"bad gender", "profiles:\n  - session_id: s1\n    gender: X\n"},
		{"duplicate", "profiles:\n  - session_id: s1\n    gender: M\n  - session_id: s1\n    gender: M\n"},
		{"not yaml", "profiles: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFile([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
