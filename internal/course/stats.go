package course

import (
	"fmt"
	"math"

	"github.com/selams/selams-web/internal/models"
)

// StatTile is a single dashboard figure.
type StatTile struct {
	Label string        `json:"label"`
	Value string        `json:"value"`
	Icon  string        `json:"icon"`
	Trend *models.Trend `json:"trend,omitempty"`
}

// NewStatTile accepts a string or numeric value.
func NewStatTile(label string, value interface{}, icon string, trend *models.Trend) StatTile {
	return StatTile{Label: label, Value: fmt.Sprint(value), Icon: icon, Trend: trend}
}

func (s StatTile) HasTrend() bool { return s.Trend != nil }

func (s StatTile) TrendClass() string {
	if s.Trend == nil {
		return ""
	}
	if s.Trend.Positive {
		return "text-success"
	}
	return "text-destructive"
}

func (s StatTile) TrendArrow() string {
	if s.Trend == nil {
		return ""
	}
	if s.Trend.Positive {
		return "↑"
	}
	return "↓"
}

// AverageProgress is the truncated mean of the clamped progress values.
func AverageProgress(courses []models.Course) int {
	if len(courses) == 0 {
		return 0
	}
	sum := 0
	for _, c := range courses {
		sum += ClampProgress(c.Progress)
	}
	return sum / len(courses)
}

const ringRadius = 56

// Ring holds the SVG attributes of the circular progress indicator.
type Ring struct {
	Radius        int
	Circumference string
	DashOffset    string
	Percent       string
}

func NewRing(progress int) Ring {
	p := ClampProgress(progress)
	c := 2 * math.Pi * ringRadius
	return Ring{
		Radius:        ringRadius,
		Circumference: fmt.Sprintf("%.2f", c),
		DashOffset:    fmt.Sprintf("%.2f", c*(1-float64(p)/100)),
		Percent:       fmt.Sprintf("%d%%", p),
	}
}
