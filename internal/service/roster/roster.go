package roster

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"kpi-dashboard/internal/service/assign"
	"kpi-dashboard/internal/service/loader"
	"kpi-dashboard/internal/storage"
)

var validate = validator.New()

// headerAliases maps each roster field to the header names accepted for it.
var headerAliases = map[string][]string{
	"operator":    {"operator", "operador"},
	"coordinator": {"coordinator", "coordinador"},
	"start":       {"start_date", "start", "fecha_inicio"},
	"end":         {"end_date", "end", "fecha_fin"},
	"shift":       {"shift", "turno"},
	"machine":     {"machine", "máquina", "maquina"},
}

var requiredFields = []string{"operator", "coordinator", "start", "end", "shift", "machine"}

// FromTable turns a roster sheet into validated assignment rules.
func FromTable(t *loader.Table) ([]storage.AssignmentRule, error) {
	cols := map[string]string{}
	var missing []string
	for _, field := range requiredFields {
		col := findColumn(t, headerAliases[field])
		if col == "" {
			missing = append(missing, field)
			continue
		}
		cols[field] = col
	}
	if len(missing) > 0 {
		return nil, storage.NewError(storage.KindRosterLoad, "roster is missing columns: %s", strings.Join(missing, ", "))
	}

	starts, err := ParseDateColumn(cols["start"], t.Column(cols["start"]))
	if err != nil {
		return nil, storage.WrapError(storage.KindRosterLoad, err, "roster dates")
	}
	ends, err := ParseDateColumn(cols["end"], t.Column(cols["end"]))
	if err != nil {
		return nil, storage.WrapError(storage.KindRosterLoad, err, "roster dates")
	}

	operators := t.Column(cols["operator"])
	coordinators := t.Column(cols["coordinator"])
	shifts := t.Column(cols["shift"])
	machines := t.Column(cols["machine"])

	rules := make([]storage.AssignmentRule, t.Len())
	for i := range rules {
		rules[i] = storage.AssignmentRule{
			Operator:    strings.TrimSpace(operators[i]),
			Coordinator: strings.TrimSpace(coordinators[i]),
			Start:       truncate(starts[i]),
			End:         truncate(ends[i]),
			Shift:       strings.ToUpper(strings.TrimSpace(shifts[i])),
			Machine:     strings.TrimSpace(machines[i]),
		}
	}

	if err := Validate(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func findColumn(t *loader.Table, aliases []string) string {
	for _, c := range t.Columns {
		for _, a := range aliases {
			if strings.EqualFold(c, a) {
				return c
			}
		}
	}
	return ""
}

// Validate checks every rule and rejects overlapping windows for the same machine and shift.
func Validate(rules []storage.AssignmentRule) error {
	for i, r := range rules {
		if err := validate.Struct(r); err != nil {
			return storage.WrapError(storage.KindRosterLoad, err, "invalid roster rule %d", i+1)
		}
	}

	overlaps := assign.Overlaps(rules)
	if len(overlaps) == 0 {
		return nil
	}

	pairs := make([]string, 0, len(overlaps))
	for _, o := range overlaps {
		a, b := rules[o.First], rules[o.Second]
		pairs = append(pairs, fmt.Sprintf("rules %d and %d (%s %s: %s..%s / %s..%s)",
			o.First+1, o.Second+1, a.Machine, a.Shift,
			a.Start.Format(time.DateOnly), a.End.Format(time.DateOnly),
			b.Start.Format(time.DateOnly), b.End.Format(time.DateOnly)))
	}
	return storage.NewError(storage.KindRosterLoad, "overlapping roster assignments: %s", strings.Join(pairs, "; "))
}

// FileSource reads the roster from a .csv or .xlsx file on every load.
type FileSource struct {
	Path string
}

func (s FileSource) LoadRoster(ctx context.Context) (*storage.Roster, error) {
	const op = "service.roster.FileSource.LoadRoster"

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, storage.WrapError(storage.KindRosterLoad, err, "%s: roster file not found: %s", op, s.Path)
	}
	defer f.Close()

	t, err := loader.Read(s.Path, f, 0)
	if err != nil {
		return nil, storage.WrapError(storage.KindRosterLoad, err, "%s: error loading roster", op)
	}

	rules, err := FromTable(t)
	if err != nil {
		return nil, err
	}

	return &storage.Roster{Rules: rules, Source: s.Path, LoadedAt: time.Now()}, nil
}

type RosterStorage interface {
	GetRoster(ctx context.Context) ([]storage.AssignmentRule, error)
}

// StoreSource reads the roster table from the database.
type StoreSource struct {
	Storage RosterStorage
}

func (s StoreSource) LoadRoster(ctx context.Context) (*storage.Roster, error) {
	const op = "service.roster.StoreSource.LoadRoster"

	rules, err := s.Storage.GetRoster(ctx)
	if err != nil {
		return nil, storage.WrapError(storage.KindRosterLoad, err, "%s: error loading roster", op)
	}
	if err := Validate(rules); err != nil {
		return nil, err
	}

	return &storage.Roster{Rules: rules, Source: "database", LoadedAt: time.Now()}, nil
}
