package entity

// Airport is reference data for a departure field. RunwayHeading is
// the primary runway's magnetic heading in degrees, zero when unknown.
type Airport struct {
	Code          string
	Name          string
	TzName        string
	RunwayHeading float64
}
