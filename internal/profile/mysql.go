package profile

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
)

// Schema is the DDL for the profiles table read by Repo.
const Schema = `CREATE TABLE IF NOT EXISTS profiles (
  session_id     VARCHAR(64)  NOT NULL PRIMARY KEY,
  name           VARCHAR(128) NOT NULL,
  email          VARCHAR(255) NOT NULL DEFAULT '',
  gender         ENUM('MALE','FEMALE') NOT NULL,
  single_room    BOOLEAN      NOT NULL DEFAULT FALSE,
  snores         BOOLEAN      NOT NULL DEFAULT FALSE,
  light_sleeper  BOOLEAN      NOT NULL DEFAULT FALSE,
  smoker         BOOLEAN      NOT NULL DEFAULT FALSE,
  sleep_schedule VARCHAR(8)   NOT NULL DEFAULT '',
  birth_year     INT          NOT NULL DEFAULT 0,
  updated_at     TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) ENGINE=InnoDB`

// Repo is a Provider over the 'profiles' table.
type Repo struct{ DB *sql.DB }

func NewRepo(db *sql.DB) *Repo { return &Repo{DB: db} }

// Get fetches a profile by session id.
func (r *Repo) Get(ctx context.Context, sessionID string) (model.Profile, error) {
	var p model.Profile
	var gender, schedule string
	err := r.DB.QueryRowContext(ctx,
		"SELECT session_id,name,email,gender,single_room,snores,light_sleeper,smoker,sleep_schedule,birth_year FROM profiles WHERE session_id=? LIMIT 1",
		sessionID).Scan(&p.SessionID, &p.Name, &p.Email, &gender, &p.SingleRoom, &p.Snores, &p.LightSleeper, &p.Smoker, &schedule, &p.BirthYear)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, err
	}
	p.Gender = model.Gender(strings.ToUpper(gender))
	p.SleepSchedule = model.SleepSchedule(strings.ToUpper(schedule))
	return p, nil
}

// Upsert inserts or replaces a profile.  Used by seeding and tests; the
// registration system owns the table in production.
func (r *Repo) Upsert(ctx context.Context, p model.Profile) error {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO profiles (session_id,name,email,gender,single_room,snores,light_sleeper,smoker,sleep_schedule,birth_year)
		 VALUES (?,?,?,?,?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE name=VALUES(name), email=VALUES(email), gender=VALUES(gender),
		   single_room=VALUES(single_room), snores=VALUES(snores), light_sleeper=VALUES(light_sleeper),
		   smoker=VALUES(smoker), sleep_schedule=VALUES(sleep_schedule), birth_year=VALUES(birth_year)`,
		p.SessionID, p.Name, email, string(p.Gender), p.SingleRoom, p.Snores, p.LightSleeper, p.Smoker,
		string(p.SleepSchedule), p.BirthYear)
	return err
}
