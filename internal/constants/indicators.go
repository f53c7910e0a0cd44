package constants

import "strings"

const (
	MTBF        = "MTBF"
	UPDT        = "UPDT"
	RejectRate  = "Reject Rate"
	StrategicPR = "Strategic PR"
)

// Unassigned marks operator/coordinator when no roster rule covers a record.
const Unassigned = "UNASSIGNED"

// ShiftColumn is the shift label column shared by every indicator file.
const ShiftColumn = "Shift"

// HeaderRowsToSkip are metadata rows above the real header in exported files.
const HeaderRowsToSkip = 2

const ShiftDateLayout = "02-01-2006"

type Direction string

const (
	HigherIsBetter Direction = "high"
	LowerIsBetter  Direction = "low"
)

type IndicatorDefinition struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Unit        string    `json:"unit"`
	Better      Direction `json:"better"`
	Description string    `json:"description"`
	Aliases     []string  `json:"aliases"`
	// Fractional values arrive on a 0-1 scale and are rescaled to 0-100.
	Fractional bool `json:"fractional"`
	// Percent indicators are range-checked against 0..100, others only against 0.
	Percent bool `json:"percent"`
}

var (
	Machines = []string{"KDF-7", "KDF-8", "KDF-9", "KDF-10", "KDF-11", "KDF-17"}

	Shifts = []string{"S1", "S2", "S3"}

	AllowedExtensions = []string{".csv", ".xlsx", ".xls"}

	// Indicators is ordered; filename detection and output follow this order.
	Indicators = []IndicatorDefinition{
		{
			Name:        MTBF,
			FullName:    "Mean Time Between Failures",
			Unit:        "minutes",
			Better:      HigherIsBetter,
			Description: "Average running time between machine failures",
			Aliases:     []string{"MTBF"},
		},
		{
			Name:        UPDT,
			FullName:    "Unplanned Downtime",
			Unit:        "%",
			Better:      LowerIsBetter,
			Description: "Share of time lost to unplanned stops",
			Aliases:     []string{"UPDT", "Unplanned Downtime"},
			Percent:     true,
		},
		{
			Name:        RejectRate,
			FullName:    "Reject Rate",
			Unit:        "%",
			Better:      LowerIsBetter,
			Description: "Share of rejected product",
			Aliases:     []string{"Reject Rate", "RejectRate"},
			Fractional:  true,
			Percent:     true,
		},
		{
			Name:        StrategicPR,
			FullName:    "Strategic Performance Rate",
			Unit:        "%",
			Better:      HigherIsBetter,
			Description: "Share of time the machine ran correctly",
			Aliases:     []string{"Strategic PR", "Stratergic PR", "StrategicPR", "StratergicPR"},
			Fractional:  true,
			Percent:     true,
		},
	}
)

func Indicator(name string) (IndicatorDefinition, bool) {
	for _, def := range Indicators {
		if def.Name == name {
			return def, true
		}
	}
	return IndicatorDefinition{}, false
}

func IndicatorNames() []string {
	names := make([]string, 0, len(Indicators))
	for _, def := range Indicators {
		names = append(names, def.Name)
	}
	return names
}

func IsMachine(name string) bool {
	for _, m := range Machines {
		if m == name {
			return true
		}
	}
	return false
}

func IsShift(code string) bool {
	for _, s := range Shifts {
		if s == code {
			return true
		}
	}
	return false
}

// NormalizeIndicator accepts the canonical name or any alias, case-insensitively.
func NormalizeIndicator(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, def := range Indicators {
		if strings.EqualFold(def.Name, name) {
			return def.Name, true
		}
		for _, alias := range def.Aliases {
			if strings.EqualFold(alias, name) {
				return def.Name, true
			}
		}
	}
	return "", false
}
