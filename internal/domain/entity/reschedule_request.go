package entity

import "time"

// RescheduleRequest status values
const (
	RequestStatusPendingStudent    = "PENDING_STUDENT"
	RequestStatusPendingInstructor = "PENDING_INSTRUCTOR"
	RequestStatusAccepted          = "ACCEPTED"
	RequestStatusRejected          = "REJECTED"
	RequestStatusExpired           = "EXPIRED"
)

// Party that picked the selected suggestion
const (
	SelectedByStudent    = "student"
	SelectedByInstructor = "instructor"
)

// Slot is a candidate replacement time window
type Slot struct {
	Start time.Time `json:"start" bson:"start"`
	End   time.Time `json:"end" bson:"end"`
}

// Suggestion is one ranked alternate (instructor, aircraft, slot) tuple
type Suggestion struct {
	InstructorID string `json:"instructorId" bson:"instructorId"`
	AircraftID   string `json:"aircraftId" bson:"aircraftId"`
	Slot         Slot   `json:"slot" bson:"slot"`
}

// Complete reports whether the suggestion can be turned into a flight
func (s Suggestion) Complete() bool {
	return s.InstructorID != "" && s.AircraftID != "" &&
		!s.Slot.Start.IsZero() && !s.Slot.End.IsZero()
}

// RescheduleRequest is the two-party confirmation subject for a
// displaced flight. SelectedInstructorID is denormalized from the
// chosen suggestion so instructor visibility can be queried directly.
type RescheduleRequest struct {
	ID                    string       `bson:"_id,omitempty"`
	FlightID              string       `bson:"flightId"`
	StudentID             string       `bson:"studentId"`
	OriginalInstructorID  string       `bson:"originalInstructorId"`
	Suggestions           []Suggestion `bson:"suggestions"`
	Reasoning             string       `bson:"reasoning,omitempty"`
	SelectedOption        *int         `bson:"selectedOption,omitempty"`
	SelectedBy            string       `bson:"selectedBy,omitempty"`
	SelectedInstructorID  string       `bson:"selectedInstructorId,omitempty"`
	Status                string       `bson:"status"`
	StudentConfirmedAt    *time.Time   `bson:"studentConfirmedAt,omitempty"`
	InstructorConfirmedAt *time.Time   `bson:"instructorConfirmedAt,omitempty"`
	ExpiresAt             time.Time    `bson:"expiresAt"`
	NewFlightID           string       `bson:"newFlightId,omitempty"`
	RejectReason          string       `bson:"rejectReason,omitempty"`
	CreatedAt             time.Time    `bson:"createdAt"`
	UpdatedAt             time.Time    `bson:"updatedAt"`
}

// IsOpen reports whether the request still awaits a party
func (r *RescheduleRequest) IsOpen() bool {
	return r.Status == RequestStatusPendingStudent || r.Status == RequestStatusPendingInstructor
}

// ExpiredAt reports whether the request deadline has passed at the given time
func (r *RescheduleRequest) ExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// OpenStatuses lists the statuses counted as an open request
func OpenStatuses() []string {
	return []string{RequestStatusPendingStudent, RequestStatusPendingInstructor}
}
