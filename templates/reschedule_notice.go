package templates

import (
	"fmt"
	"strings"
	"time"

	"flightsched-service/internal/domain/entity"
)

const timeLayout = "Mon 02 Jan 2006 15:04 MST"

// RescheduleOptionsNotice builds the message sent to a student when
// their flight is cancelled and alternates are available
func RescheduleOptionsNotice(flight *entity.Flight, suggestions []entity.Suggestion, expiresAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your %s lesson on %s was cancelled.\n\n",
		flight.LessonCode,
		flight.ScheduledStart.Format(timeLayout))
	b.WriteString("Available alternatives:\n")
	for i, s := range suggestions {
		fmt.Fprintf(&b, "%d. %s - %s (instructor %s, aircraft %s)\n",
			i+1,
			s.Slot.Start.Format(timeLayout),
			s.Slot.End.Format("15:04"),
			s.InstructorID,
			s.AircraftID)
	}
	fmt.Fprintf(&b, "\nPlease pick an option before %s.", expiresAt.Format(timeLayout))
	return b.String()
}

// RescheduleAcceptedNotice builds the message sent to a student when
// the instructor confirms the new slot
func RescheduleAcceptedNotice(successor *entity.Flight) string {
	return fmt.Sprintf("Your lesson %s is rebooked: %s - %s with instructor %s on aircraft %s.",
		successor.LessonCode,
		successor.ScheduledStart.Format(timeLayout),
		successor.ScheduledEnd.Format("15:04"),
		successor.InstructorID,
		successor.AircraftID)
}

// FlightCancelledNotice builds the message sent to a student when a
// flight is cancelled without alternates yet
func FlightCancelledNotice(flight *entity.Flight, cause string) string {
	return fmt.Sprintf("Your %s lesson on %s was cancelled (%s). We are looking for alternatives and will be in touch.",
		flight.LessonCode,
		flight.ScheduledStart.Format(timeLayout),
		cause)
}

// WeatherCancelledNotice builds the message sent to a student when the
// safety check cancels a flight, listing the violated dimensions
func WeatherCancelledNotice(flight *entity.Flight, reasons []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your %s lesson on %s was cancelled due to weather:\n",
		flight.LessonCode,
		flight.ScheduledStart.Format(timeLayout))
	for _, r := range reasons {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	return b.String()
}
