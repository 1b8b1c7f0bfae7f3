package course

import (
	"fmt"

	"github.com/selams/selams-web/internal/models"
	"github.com/selams/selams-web/internal/utils"
)

type Band string

const (
	BandAtRisk     Band = "at-risk"
	BandInProgress Band = "in-progress"
	BandOnTrack    Band = "on-track"
)

// Class is the CSS colour class used for the progress bar fill.
func (b Band) Class() string {
	switch b {
	case BandAtRisk:
		return "bg-destructive"
	case BandInProgress:
		return "bg-warning"
	default:
		return "bg-success"
	}
}

// ClampProgress pins p into [0,100].
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// BandFor: <30 at risk, 30..69 in progress, >=70 on track.
func BandFor(progress int) Band {
	p := ClampProgress(progress)
	switch {
	case p < 30:
		return BandAtRisk
	case p < 70:
		return BandInProgress
	default:
		return BandOnTrack
	}
}

// Tile is the render-ready form of a course card.
type Tile struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CoverURL    string   `json:"cover_url,omitempty"`
	Instructor  string   `json:"instructor"`
	Duration    string   `json:"duration"`
	Enrolled    int      `json:"enrolled"`
	Tags        []string `json:"tags,omitempty"`
	Progress    int      `json:"progress"`
	Band        Band     `json:"band"`
	BandClass   string   `json:"band_class"`
	Percent     string   `json:"percent"`
	BarWidth    string   `json:"bar_width"`
	Href        string   `json:"href"`
}

// NewTile builds the card for c. coverURL may be empty, in which case the
// template falls back to the gradient placeholder.
func NewTile(c models.Course, coverURL string) Tile {
	p := ClampProgress(c.Progress)
	band := BandFor(p)
	return Tile{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		CoverURL:    coverURL,
		Instructor:  c.InstructorName,
		Duration:    c.Duration,
		Enrolled:    c.Enrolled,
		Tags:        utils.StringsFromJSON(c.Tags),
		Progress:    p,
		Band:        band,
		BandClass:   band.Class(),
		Percent:     fmt.Sprintf("%d%%", p),
		BarWidth:    fmt.Sprintf("%d%%", p),
		Href:        DetailPath(c.ID),
	}
}

func DetailPath(id string) string {
	return "/course/" + id
}
