// Package students holds the student roster and its dropdown filters.
package students

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/campusar/wayfinder/internal/csvtable"
	"github.com/campusar/wayfinder/pkg/core"
)

// columns is the roster layout: name, gender, five hourly rooms, hair, height,
// transport, clothing, year, specialization.
const columns = 13

// Any is the dropdown value that disables a filter.
const Any = "All"

// Criteria narrows the roster. Zero values and Any disable a field.
type Criteria struct {
	Year           int
	Specialization string
	Room           string
	Hour           int // with Room: the student must be there at this hour
	Transport      string
	Object         string // substring of hair or clothing
}

// Roster is an immutable list of students in file order.
type Roster struct {
	students []core.Student
}

func NewRoster(students ...core.Student) *Roster {
	return &Roster{students: slices.Clone(students)}
}

// Load reads the roster table. Short rows are skipped; bad numbers become 0.
func Load(r io.Reader, logger *slog.Logger) (*Roster, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rows, err := csvtable.NewReader(r)
	if err != nil {
		return nil, err
	}

	roster := &Roster{}
	for {
		f, line, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn("skipping unreadable student row", "line", line, "error", err)
			continue
		}
		if len(f) < columns {
			logger.Warn("skipping student row with too few columns", "line", line, "columns", len(f))
			continue
		}
		roster.students = append(roster.students, core.Student{
			Name:           f[0],
			Gender:         f[1],
			Rooms:          [5]string{f[2], f[3], f[4], f[5], f[6]},
			Hair:           f[7],
			Height:         csvtable.SafeInt(f[8]),
			Transport:      f[9],
			Clothing:       f[10],
			Year:           csvtable.SafeInt(f[11]),
			Specialization: f[12],
		})
	}

	logger.Info("student roster loaded", "students", len(roster.students))
	return roster, nil
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string, logger *slog.Logger) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open student roster: %w", err)
	}
	defer f.Close()
	return Load(f, logger)
}

func (r *Roster) Len() int {
	return len(r.students)
}

// All returns a copy of every student.
func (r *Roster) All() []core.Student {
	return slices.Clone(r.students)
}

// ByName finds a student by case-insensitive name.
func (r *Roster) ByName(name string) (core.Student, bool) {
	for _, s := range r.students {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return core.Student{}, false
}

func active(v string) bool {
	return v != "" && v != Any
}

// Filter returns the students matching every active criterion, in roster order.
func (r *Roster) Filter(c Criteria) []core.Student {
	out := make([]core.Student, 0, len(r.students))
	for _, s := range r.students {
		if c.Year > 0 && s.Year != c.Year {
			continue
		}
		if active(c.Specialization) && !strings.EqualFold(s.Specialization, c.Specialization) {
			continue
		}
		if active(c.Room) {
			if c.Hour > 0 && !s.InRoomAt(c.Room, c.Hour) {
				continue
			}
			if c.Hour <= 0 && !s.InRoomAnyTime(c.Room) {
				continue
			}
		}
		if active(c.Transport) && !strings.EqualFold(s.Transport, c.Transport) {
			continue
		}
		if c.Object != "" && !containsFold(s.Hair, c.Object) && !containsFold(s.Clothing, c.Object) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// InRoom lists students who pass through room at any hour.
func (r *Roster) InRoom(room string) []core.Student {
	return r.Filter(Criteria{Room: room})
}

// Years returns the distinct years, ascending.
func (r *Roster) Years() []int {
	return distinct(r.students, func(s core.Student) []int { return []int{s.Year} })
}

// Specializations returns the distinct specializations, sorted.
func (r *Roster) Specializations() []string {
	return distinct(r.students, func(s core.Student) []string { return []string{s.Specialization} })
}

// TransportModes returns the distinct transport modes, sorted.
func (r *Roster) TransportModes() []string {
	return distinct(r.students, func(s core.Student) []string { return []string{s.Transport} })
}

// Rooms returns every room any student visits, sorted, without blanks.
func (r *Roster) Rooms() []string {
	rooms := distinct(r.students, func(s core.Student) []string { return s.Rooms[:] })
	return slices.DeleteFunc(rooms, func(v string) bool { return v == "" })
}

func distinct[T cmp.Ordered](students []core.Student, values func(core.Student) []T) []T {
	seen := make(map[T]struct{})
	var out []T
	for _, s := range students {
		for _, v := range values(s) {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

// Hours returns the roster hours in order, as offered by the hour dropdown.
func Hours() []int {
	out := make([]int, 0, core.LastHour-core.FirstHour+1)
	for h := core.FirstHour; h <= core.LastHour; h++ {
		out = append(out, h)
	}
	return out
}

// Summary is the one-line result text for a student.
func Summary(s core.Student) string {
	return fmt.Sprintf("%s | Year: %d | Spec: %s | Transport: %s", s.Name, s.Year, s.Specialization, s.Transport)
}

// Schedule is the hourly room text for a student.
func Schedule(s core.Student) string {
	parts := make([]string, 0, len(s.Rooms))
	for i, room := range s.Rooms {
		parts = append(parts, fmt.Sprintf("%dh: %s", core.FirstHour+i, room))
	}
	return strings.Join(parts, " | ")
}
