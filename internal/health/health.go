// Package health evaluates whether the pieces secretshield relies on are in
// working order and rolls the results up into a single level.
package health

// Level represents the overall health level.
type Level int

const (
	GREEN    Level = iota // All components healthy
	YELLOW                // 1 important component degraded
	RED                   // 1 critical or 2+ important degraded
	CRITICAL              // 2+ critical components degraded
)

// Component categories.
const (
	Critical  = "critical"
	Important = "important"
	Optional  = "optional"
)

func (l Level) String() string {
	switch l {
	case GREEN:
		return "GREEN"
	case YELLOW:
		return "YELLOW"
	case RED:
		return "RED"
	case CRITICAL:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Name     string `json:"name"`     // e.g. "audit_chain", "clipboard"
	Category string `json:"category"` // Critical, Important or Optional
	Healthy  bool   `json:"healthy"`
	Detail   string `json:"detail"`
}

type Report struct {
	Level      Level             `json:"-"`
	Components []ComponentStatus `json:"components"`
}

// Determine counts failed critical and important components and returns the
// resulting Level. Optional components never affect it.
//
//	if criticalFailed >= 2: CRITICAL
//	else if criticalFailed == 1: RED
//	else if importantFailed >= 2: RED
//	else if importantFailed == 1: YELLOW
//	else: GREEN
func Determine(components []ComponentStatus) Level {
	var criticalFailed, importantFailed int

	for _, c := range components {
		if c.Healthy {
			continue
		}
		switch c.Category {
		case Critical:
			criticalFailed++
		case Important:
			importantFailed++
		}
	}

	switch {
	case criticalFailed >= 2:
		return CRITICAL
	case criticalFailed == 1:
		return RED
	case importantFailed >= 2:
		return RED
	case importantFailed == 1:
		return YELLOW
	default:
		return GREEN
	}
}

func NewReport(components []ComponentStatus) *Report {
	return &Report{
		Level:      Determine(components),
		Components: components,
	}
}

// Failed returns the components that are not healthy.
func (r *Report) Failed() []ComponentStatus {
	var out []ComponentStatus
	for _, c := range r.Components {
		if !c.Healthy {
			out = append(out, c)
		}
	}
	return out
}
