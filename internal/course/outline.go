package course

import (
	"sort"
	"strconv"
	"strings"

	"github.com/selams/selams-web/internal/models"
)

// Expanded is an immutable set of open module indices.
type Expanded struct {
	open map[int]struct{}
}

// DefaultExpanded has only the first module open.
func DefaultExpanded() Expanded {
	return NewExpanded(0)
}

func NewExpanded(indices ...int) Expanded {
	open := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		open[i] = struct{}{}
	}
	return Expanded{open: open}
}

func (e Expanded) Contains(i int) bool {
	_, ok := e.open[i]
	return ok
}

// Toggle returns a new set with i's membership flipped; e is unchanged.
func (e Expanded) Toggle(i int) Expanded {
	next := make(map[int]struct{}, len(e.open)+1)
	for k := range e.open {
		next[k] = struct{}{}
	}
	if _, ok := next[i]; ok {
		delete(next, i)
	} else {
		next[i] = struct{}{}
	}
	return Expanded{open: next}
}

// Indices returns the open indices in ascending order.
func (e Expanded) Indices() []int {
	out := make([]int, 0, len(e.open))
	for k := range e.open {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// String encodes the set for the "open" query parameter, e.g. "0,2".
func (e Expanded) String() string {
	idx := e.Indices()
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// ParseExpanded decodes the "open" query parameter. present=false means the
// parameter was absent and yields the default set; an empty value means
// every module is collapsed. Malformed and negative items are skipped.
func ParseExpanded(raw string, present bool) Expanded {
	if !present {
		return DefaultExpanded()
	}
	var idx []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			continue
		}
		idx = append(idx, n)
	}
	return NewExpanded(idx...)
}

// LessonIcon maps a lesson type to its icon name.
func LessonIcon(t models.LessonType) string {
	switch t {
	case models.LessonVideo:
		return "play"
	case models.LessonDocument:
		return "file-text"
	case models.LessonAssignment:
		return "book-open"
	default:
		return "link"
	}
}

type LessonView struct {
	Title     string `json:"title"`
	Type      string `json:"type"`
	Icon      string `json:"icon"`
	Completed bool   `json:"completed"`
	Ref       string `json:"ref"`
	Selected  bool   `json:"selected,omitempty"`
}

type ModuleView struct {
	Index      int          `json:"index"`
	Title      string       `json:"title"`
	Expanded   bool         `json:"expanded"`
	ToggleOpen string       `json:"toggle_open"`
	Lessons    []LessonView `json:"lessons"`
}

// Outline is the render-ready course content sidebar.
type Outline struct {
	Modules   []ModuleView `json:"modules"`
	Open      string       `json:"open"`
	Completed int          `json:"completed"`
	Total     int          `json:"total"`
}

// LessonRef identifies a lesson by module and lesson index, e.g. "1.2".
func LessonRef(module, lesson int) string {
	return strconv.Itoa(module) + "." + strconv.Itoa(lesson)
}

// BuildOutline lays out modules with the given expanded state. selected is
// a LessonRef; lessons of collapsed modules are still counted.
func BuildOutline(modules []models.Module, open Expanded, selected string) Outline {
	out := Outline{Open: open.String(), Modules: make([]ModuleView, 0, len(modules))}
	for mi, m := range modules {
		mv := ModuleView{
			Index:      mi,
			Title:      m.Title,
			Expanded:   open.Contains(mi),
			ToggleOpen: open.Toggle(mi).String(),
			Lessons:    make([]LessonView, 0, len(m.Lessons)),
		}
		for li, l := range m.Lessons {
			ref := LessonRef(mi, li)
			out.Total++
			if l.Completed {
				out.Completed++
			}
			mv.Lessons = append(mv.Lessons, LessonView{
				Title:     l.Title,
				Type:      string(l.Type),
				Icon:      LessonIcon(l.Type),
				Completed: l.Completed,
				Ref:       ref,
				Selected:  ref == selected,
			})
		}
		out.Modules = append(out.Modules, mv)
	}
	return out
}

// CurrentLesson resolves ref against modules. An empty or unknown ref picks
// the first incomplete lesson, then the very first lesson.
func CurrentLesson(modules []models.Module, ref string) (models.Lesson, string, bool) {
	if ref != "" {
		for mi, m := range modules {
			for li, l := range m.Lessons {
				if LessonRef(mi, li) == ref {
					return l, ref, true
				}
			}
		}
	}
	for mi, m := range modules {
		for li, l := range m.Lessons {
			if !l.Completed {
				return l, LessonRef(mi, li), true
			}
		}
	}
	for mi, m := range modules {
		if len(m.Lessons) > 0 {
			return m.Lessons[0], LessonRef(mi, 0), true
		}
	}
	return models.Lesson{}, "", false
}

// CompletedCounts counts completed and total lessons across modules.
func CompletedCounts(modules []models.Module) (completed, total int) {
	for _, m := range modules {
		for _, l := range m.Lessons {
			total++
			if l.Completed {
				completed++
			}
		}
	}
	return completed, total
}
