package model

import (
	"errors"
	"fmt"
	"strings"
)

// Gender is both a participant attribute and a room constraint.  A room
// constrained to GenderAny admits everyone.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderAny    Gender = "ANY"
)

// ParseGender normalizes user input ("m", "female", ...) into a Gender.
func ParseGender(s string) (Gender, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "MALE":
		return GenderMale, nil
	case "F", "FEMALE":
		return GenderFemale, nil
	case "", "ANY", "NONE":
		return GenderAny, nil
	}
	return "", fmt.Errorf("unknown gender %q", s)
}

// Room is immutable catalog configuration.
//
// Fields:
//  ID                 – stable identifier used as the store key.
//  Name               – display label (e.g. "A-301").
//  Capacity           – 1 or 2 occupants.
//  Gender             – gender constraint; GenderAny for none.
//  SingleRoomEligible – only identities that asked for a single room may
//                       occupy it.
type Room struct {
	ID                 string `yaml:"id" json:"id"`
	Name               string `yaml:"name" json:"name"`
	Capacity           int    `yaml:"capacity" json:"capacity"`
	Gender             Gender `yaml:"gender" json:"gender"`
	SingleRoomEligible bool   `yaml:"single_room" json:"single_room"`
}

// Validate rejects catalog entries the coordinator cannot reason about.
func (r Room) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("room id is required")
	}
	if strings.ContainsAny(r.ID, "/ ") {
		return fmt.Errorf("room %s: id must not contain '/' or spaces", r.ID)
	}
	if r.Capacity != 1 && r.Capacity != 2 {
		return fmt.Errorf("room %s: capacity must be 1 or 2, got %d", r.ID, r.Capacity)
	}
	switch r.Gender {
	case GenderMale, GenderFemale, GenderAny:
	default:
		return fmt.Errorf("room %s: unknown gender constraint %q", r.ID, r.Gender)
	}
	return nil
}

// Admits reports whether an identity with the given attributes satisfies
// the room's gender and single-room constraints.  The returned string
// explains a refusal.
func (r Room) Admits(g Gender, singleRoom bool) (bool, string) {
	if r.Gender != GenderAny && g != r.Gender {
		return false, fmt.Sprintf("room %s is %s-only", r.ID, strings.ToLower(string(r.Gender)))
	}
	if r.SingleRoomEligible && !singleRoom {
		return false, fmt.Sprintf("room %s is reserved for single-room requests", r.ID)
	}
	return true, ""
}
