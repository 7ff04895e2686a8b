package usecase

import (
	"fmt"
	"math"
	"strings"

	"flightsched-service/internal/domain/entity"
)

// Evaluation is the outcome of one safety check
type Evaluation struct {
	Result     string
	Confidence int
	Reasons    []string
}

// SafetyEvaluator compares a weather reading against a minimums
// profile. It is pure: no side effects, no clock, no I/O.
type SafetyEvaluator struct {
	// marginFraction widens every threshold into a marginal band:
	// a value clearing its minimum by less than this fraction counts
	// MARGINAL even with no hard violation.
	marginFraction float64
}

// NewSafetyEvaluator creates an evaluator with the given marginal band
// fraction (0.15 means within 15% of a threshold is marginal)
func NewSafetyEvaluator(marginFraction float64) *SafetyEvaluator {
	if marginFraction <= 0 {
		marginFraction = 0.15
	}
	return &SafetyEvaluator{marginFraction: marginFraction}
}

// severeConditions are reported condition tags that fail a flight
// outright regardless of the measured dimensions
var severeConditions = map[string]string{
	"TS":           "thunderstorm",
	"TSRA":         "thunderstorm with rain",
	"FZRA":         "freezing rain",
	"FZDZ":         "freezing drizzle",
	"ICING":        "icing",
	"LLWS":         "low-level wind shear",
	"FC":           "funnel cloud",
	"GR":           "hail",
	"VA":           "volcanic ash",
	"THUNDERSTORM": "thunderstorm",
}

type dimension struct {
	name      string
	unit      string
	value     *float64
	threshold float64
	// lowerBound dimensions must stay at or above the threshold
	// (visibility, ceiling, temperature); the rest must stay at or
	// below it (wind, gust, crosswind).
	lowerBound bool
}

// Evaluate compares each dimension of the reading against its minimum.
// Any violated dimension contributes a reason and pushes the result to
// UNSAFE; near-threshold values contribute to MARGINAL. Missing
// dimensions lower confidence instead of forcing a result.
func (e *SafetyEvaluator) Evaluate(reading *entity.WeatherReading, minimums *entity.Minimums) Evaluation {
	dims := []dimension{
		{name: "visibility", unit: "SM", value: reading.VisibilitySM, threshold: minimums.VisibilitySM, lowerBound: true},
		{name: "ceiling", unit: "ft", value: reading.CeilingFt, threshold: minimums.CeilingFt, lowerBound: true},
		{name: "wind", unit: "kt", value: reading.WindSpeedKt, threshold: minimums.MaxWindKt},
		{name: "gust", unit: "kt", value: reading.WindGustKt, threshold: minimums.MaxGustKt},
		{name: "crosswind", unit: "kt", value: reading.CrosswindKt, threshold: minimums.MaxCrosswindKt},
		{name: "temperature", unit: "C", value: reading.TemperatureC, threshold: minimums.MinTemperatureC, lowerBound: true},
	}

	var (
		reasons   []string
		available int
		violated  int
		marginal  int
		// worstRatio tracks how far the worst offender sits from its
		// threshold, normalized to [0, 1]
		worstRatio float64
		// slackRatio tracks the tightest clearance on a clean reading
		slackRatio = 1.0
	)

	for _, d := range dims {
		if d.value == nil {
			continue
		}
		available++

		value := *d.value
		slack := value - d.threshold
		if !d.lowerBound {
			slack = d.threshold - value
		}

		scale := math.Max(math.Abs(d.threshold), 1)
		ratio := math.Min(math.Abs(slack)/scale, 1)

		switch {
		case slack < 0:
			violated++
			if ratio > worstRatio {
				worstRatio = ratio
			}
			reasons = append(reasons, violationReason(d, value))
		case slack/scale < e.marginFraction:
			marginal++
			reasons = append(reasons, fmt.Sprintf("%s %.1f%s is within %.0f%% of the %.1f%s limit",
				d.name, value, d.unit, e.marginFraction*100, d.threshold, d.unit))
			if ratio < slackRatio {
				slackRatio = ratio
			}
		default:
			if ratio < slackRatio {
				slackRatio = ratio
			}
		}
	}

	for _, tag := range reading.Conditions {
		if desc, ok := severeConditions[strings.ToUpper(tag)]; ok {
			violated++
			worstRatio = 1
			reasons = append(reasons, fmt.Sprintf("reported conditions include %s", desc))
		}
	}

	if available == 0 && len(reading.Conditions) == 0 {
		return Evaluation{
			Result:     entity.CheckResultMarginal,
			Confidence: 0,
			Reasons:    []string{"no weather dimensions available"},
		}
	}

	result := entity.CheckResultSafe
	certainty := slackRatio
	switch {
	case violated > 0:
		result = entity.CheckResultUnsafe
		certainty = worstRatio
	case marginal > 0:
		result = entity.CheckResultMarginal
	}

	// Confidence reflects data coverage first, then how decisively the
	// worst offender sits relative to its threshold.
	coverage := float64(available) / float64(len(dims))
	confidence := int(math.Round(100 * coverage * (0.6 + 0.4*certainty)))
	if confidence < 1 {
		confidence = 1
	}
	if confidence > 100 {
		confidence = 100
	}

	return Evaluation{
		Result:     result,
		Confidence: confidence,
		Reasons:    reasons,
	}
}

func violationReason(d dimension, value float64) string {
	if d.lowerBound {
		return fmt.Sprintf("%s %.1f%s below required %.1f%s", d.name, value, d.unit, d.threshold, d.unit)
	}
	return fmt.Sprintf("%s %.1f%s exceeds limit %.1f%s", d.name, value, d.unit, d.threshold, d.unit)
}
