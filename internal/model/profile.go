package model

// SleepSchedule is a coarse bedtime preference.
type SleepSchedule string

const (
	ScheduleEarly SleepSchedule = "EARLY"
	ScheduleLate  SleepSchedule = "LATE"
)

// Profile holds the attributes of a registered participant that the
// coordinator consumes from the profile provider: constraint inputs
// (Gender, SingleRoom) and comfort preferences used by the matching
// evaluator.  Zero values mean "no preference".
type Profile struct {
	SessionID     string        `yaml:"session_id" json:"session_id"`
	Name          string        `yaml:"name" json:"name"`
	Email         string        `yaml:"email" json:"-"`
	Gender        Gender        `yaml:"gender" json:"gender"`
	SingleRoom    bool          `yaml:"single_room" json:"single_room"`
	Snores        bool          `yaml:"snores" json:"snores"`
	LightSleeper  bool          `yaml:"light_sleeper" json:"light_sleeper"`
	Smoker        bool          `yaml:"smoker" json:"smoker"`
	SleepSchedule SleepSchedule `yaml:"sleep_schedule" json:"sleep_schedule,omitempty"`
	BirthYear     int           `yaml:"birth_year" json:"birth_year,omitempty"`
}

// GuestProfile projects a temporary guest onto the profile shape so the
// same constraint and matching logic applies to walk-ins.
func GuestProfile(g TempGuest) Profile {
	return Profile{SessionID: g.ID, Name: g.Name, Gender: g.Gender, SingleRoom: g.SingleRoom}
}
