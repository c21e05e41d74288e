package repository

// Store keys.  Every record family lives under its own prefix and is keyed
// by a stable identifier, never by display name.
func OccupancyKey(roomID string) string { return "room/" + roomID + "/occupancy" }
func HoldsKey(roomID string) string { return "room/" + roomID + "/holds" }
func SessionKey(sessionID string) string { return "session/" + sessionID }
func RequestKey(requestID string) string { return "request/" + requestID }
func GuestKey(guestID string) string { return "guest/" + guestID }

func pairKey(requesterID, targetID string) string {
	return "pair/" + requesterID + "/" + targetID
}
