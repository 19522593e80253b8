// Package aggregate derives the published summaries from the final event
// list: a monthly exit series, organ rankings and destination categories.
package aggregate

import (
	"sort"
	"strings"
	"unicode"

	"movement-tracker/pipeline/internal/model"
)

// DefaultTopN bounds the organ ranking.
const DefaultTopN = 50

// Destination categories.
const (
	CategoryDeath      = "death"
	CategoryRetirement = "retirement"
	CategoryOther      = "other organs"
)

// OtherInstitution replaces placeholder destinations in organ details.
const OtherInstitution = "other institution"

type MonthCount struct {
	Month string `json:"month"`
	Exits int    `json:"exits"`
}

type Detail struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Destination string `json:"destination"`
}

type OrganSummary struct {
	Organ   string   `json:"organ"`
	Total   int      `json:"total"`
	Details []Detail `json:"details"`
}

type DestinationCount struct {
	Destination string `json:"destination"`
	Total       int    `json:"total"`
}

type Aggregates struct {
	Series          []MonthCount       `json:"series"`
	TopOrgans       []OrganSummary     `json:"top_organs"`
	TopDestinations []DestinationCount `json:"top_destinations"`
}

// Build summarizes the exits in events. Entries are ignored. topN <= 0
// means DefaultTopN.
func Build(events []model.Event, topN int) Aggregates {
	if topN <= 0 {
		topN = DefaultTopN
	}
	byMonth := map[string]int{}
	byOrgan := map[string]*OrganSummary{}
	byCategory := map[string]int{}

	for _, e := range events {
		if e.Type != model.Exit {
			continue
		}
		month := e.Month
		if month == "" {
			month = model.MonthOf(e.Date)
		}
		byMonth[month]++

		label := OrganLabel(e.Organ)
		s, ok := byOrgan[label]
		if !ok {
			s = &OrganSummary{Organ: label}
			byOrgan[label] = s
		}
		dest := e.Destination
		if dest == "" || dest == model.Unknown || dest == model.DestIncompatibleUnspecified {
			dest = OtherInstitution
		}
		s.Total++
		s.Details = append(s.Details, Detail{Name: e.Name, Date: e.Date, Destination: dest})

		byCategory[CategorizeDestination(e.Destination)]++
	}

	var a Aggregates
	for m, n := range byMonth {
		a.Series = append(a.Series, MonthCount{Month: m, Exits: n})
	}
	sort.Slice(a.Series, func(i, j int) bool { return a.Series[i].Month < a.Series[j].Month })

	for _, s := range byOrgan {
		a.TopOrgans = append(a.TopOrgans, *s)
	}
	sort.Slice(a.TopOrgans, func(i, j int) bool {
		if a.TopOrgans[i].Total != a.TopOrgans[j].Total {
			return a.TopOrgans[i].Total > a.TopOrgans[j].Total
		}
		return a.TopOrgans[i].Organ < a.TopOrgans[j].Organ
	})
	if len(a.TopOrgans) > topN {
		a.TopOrgans = a.TopOrgans[:topN]
	}

	for c, n := range byCategory {
		a.TopDestinations = append(a.TopDestinations, DestinationCount{Destination: c, Total: n})
	}
	sort.Slice(a.TopDestinations, func(i, j int) bool {
		if a.TopDestinations[i].Total != a.TopDestinations[j].Total {
			return a.TopDestinations[i].Total > a.TopDestinations[j].Total
		}
		return a.TopDestinations[i].Destination < a.TopDestinations[j].Destination
	})
	return a
}

// OrganLabel is the lowercase key organs are ranked under: "5" and "TRT5"
// become "trt5", "TRE-SP" becomes "tre_sp", a bare or missing court code
// becomes "trt_indefinido". Long free-text names are kept as written.
func OrganLabel(organ string) string {
	o := strings.TrimSpace(organ)
	upper := strings.ToUpper(o)
	switch {
	case o == "", upper == "TRT":
		return "trt_indefinido"
	case isDigits(o):
		return "trt" + o
	case strings.HasPrefix(upper, "TRT") && strings.IndexFunc(o, unicode.IsDigit) >= 0:
		return strings.ToLower(o)
	case strings.HasPrefix(upper, "TRF"):
		return strings.ToLower(o)
	case strings.HasPrefix(upper, "TRE"):
		return strings.ToLower(strings.NewReplacer(" ", "_", "-", "_").Replace(o))
	case len(o) < 10:
		return strings.ToLower(o)
	}
	return o
}

// CategorizeDestination buckets an exit destination into death, retirement
// or other organs.
func CategorizeDestination(dest string) string {
	d := strings.ToLower(dest)
	switch {
	case d == model.DestDeath, strings.Contains(d, "falec"), strings.Contains(d, "óbito"):
		return CategoryDeath
	case d == model.DestRetirement, strings.Contains(d, "aposentadoria"), strings.Contains(d, "aposentar"):
		return CategoryRetirement
	}
	return CategoryOther
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
