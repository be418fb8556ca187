package analytics

import (
	"math"
	"sort"

	"github.com/teleportme/compass/pkg/compass/catalog"
	"github.com/teleportme/compass/pkg/compass/signal"
)

// Analyzer aggregates catalog coverage: which categories cities are scored
// on, which vibe tags they carry and how tags co-occur.
type Analyzer struct {
	totalCities int64
	categoryDF  map[string]int64
	categorySum map[string]float64
	tagDF       map[string]int64
	pairCounts  map[pair]int64 // city-level tag co-occurrence
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		categoryDF:  make(map[string]int64),
		categorySum: make(map[string]float64),
		tagDF:       make(map[string]int64),
		pairCounts:  make(map[pair]int64),
	}
}

// Process consumes one city's scores and tags. Tags with zero strength
// are ignored.
func (a *Analyzer) Process(city catalog.City) {
	a.totalCities++

	for cat, score := range city.Scores {
		a.categoryDF[cat]++
		a.categorySum[cat] += score
	}

	tags := make([]string, 0, len(city.Tags))
	for tag, strength := range city.Tags {
		if tag == "" || strength <= 0 {
			continue
		}
		tags = append(tags, tag)
		a.tagDF[tag]++
	}
	sort.Strings(tags)
	for i := 0; i < len(tags); i++ {
		for j := i + 1; j < len(tags); j++ {
			a.pairCounts[newPair(tags[i], tags[j])]++
		}
	}
}

// Analyze runs a fresh analyzer over pool.
func Analyze(pool []catalog.City) Stats {
	a := NewAnalyzer()
	for _, c := range pool {
		a.Process(c)
	}
	return a.Snapshot()
}

// Stats exposes the aggregated counts.
type Stats struct {
	TotalCities int64
	CategoryDF  map[string]int64
	CategorySum map[string]float64
	TagDF       map[string]int64
	PairCounts  map[pair]int64
}

// Snapshot returns a copy of the accumulated statistics.
func (a *Analyzer) Snapshot() Stats {
	catDF := make(map[string]int64, len(a.categoryDF))
	for k, v := range a.categoryDF {
		catDF[k] = v
	}
	catSum := make(map[string]float64, len(a.categorySum))
	for k, v := range a.categorySum {
		catSum[k] = v
	}
	tagDF := make(map[string]int64, len(a.tagDF))
	for k, v := range a.tagDF {
		tagDF[k] = v
	}
	pairs := make(map[pair]int64, len(a.pairCounts))
	for p, v := range a.pairCounts {
		pairs[p] = v
	}
	return Stats{
		TotalCities: a.totalCities,
		CategoryDF:  catDF,
		CategorySum: catSum,
		TagDF:       tagDF,
		PairCounts:  pairs,
	}
}

// CategoryCoverage describes how much of the catalog is scored on a category.
type CategoryCoverage struct {
	Category string  `json:"category"`
	Cities   int64   `json:"cities"`
	Percent  float64 `json:"percent"`
	Mean     float64 `json:"mean"`
}

// Coverage reports coverage for categories, in the order given.
func (s Stats) Coverage(categories []string) []CategoryCoverage {
	out := make([]CategoryCoverage, 0, len(categories))
	for _, cat := range categories {
		cov := CategoryCoverage{Category: cat, Cities: s.CategoryDF[cat]}
		if s.TotalCities > 0 {
			cov.Percent = 100 * float64(cov.Cities) / float64(s.TotalCities)
		}
		if cov.Cities > 0 {
			cov.Mean = s.CategorySum[cat] / float64(cov.Cities)
		}
		out = append(out, cov)
	}
	return out
}

// TagCount is a tag with the number of cities carrying it.
type TagCount struct {
	Tag    string `json:"tag"`
	Cities int64  `json:"cities"`
}

// Drift lists where the catalog's tags and the signal vocabulary disagree.
type Drift struct {
	// Orphans are common tags no signal maps to.
	Orphans []TagCount `json:"orphans"`
	// Missing are signal-mapped tags no city carries.
	Missing []string `json:"missing"`
}

// Drift compares catalog tags with the tags signals map to. Orphans must
// be carried by at least minPercent of cities.
func (s Stats) Drift(minPercent float64) Drift {
	mapped := make(map[string]struct{})
	for _, sig := range signal.All() {
		for _, tag := range sig.Info().Tags {
			mapped[tag] = struct{}{}
		}
	}

	d := Drift{Orphans: []TagCount{}, Missing: []string{}}
	for tag, df := range s.TagDF {
		if _, ok := mapped[tag]; ok {
			continue
		}
		if s.TotalCities == 0 || 100*float64(df)/float64(s.TotalCities) < minPercent {
			continue
		}
		d.Orphans = append(d.Orphans, TagCount{Tag: tag, Cities: df})
	}
	sort.Slice(d.Orphans, func(i, j int) bool {
		if d.Orphans[i].Cities != d.Orphans[j].Cities {
			return d.Orphans[i].Cities > d.Orphans[j].Cities
		}
		return d.Orphans[i].Tag < d.Orphans[j].Tag
	})

	for tag := range mapped {
		if s.TagDF[tag] == 0 {
			d.Missing = append(d.Missing, tag)
		}
	}
	sort.Strings(d.Missing)
	return d
}

// PairStat describes how strongly two tags go together.
type PairStat struct {
	A       string  `json:"a"`
	B       string  `json:"b"`
	PMI     float64 `json:"pmi"`
	Support int64   `json:"support"` // cities carrying both
}

// TopPairs returns tag pairs seen together in at least minSupport cities,
// strongest association first.
func (s Stats) TopPairs(limit int, minSupport int64) []PairStat {
	if s.TotalCities == 0 {
		return nil
	}
	var stats []PairStat
	for p, count := range s.PairCounts {
		if count < minSupport {
			continue
		}
		stats = append(stats, PairStat{
			A:       p.A,
			B:       p.B,
			PMI:     computePMI(count, s.TagDF[p.A], s.TagDF[p.B], s.TotalCities),
			Support: count,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].PMI != stats[j].PMI {
			return stats[i].PMI > stats[j].PMI
		}
		if stats[i].Support != stats[j].Support {
			return stats[i].Support > stats[j].Support
		}
		if stats[i].A != stats[j].A {
			return stats[i].A < stats[j].A
		}
		return stats[i].B < stats[j].B
	})
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

// Summary is a printable digest of Stats.
type Summary struct {
	TotalCities int64              `json:"total_cities"`
	Coverage    []CategoryCoverage `json:"coverage"`
	Drift       Drift              `json:"drift"`
	Pairs       []PairStat         `json:"pairs"`
}

// Summarize digests s for the given categories.
func (s Stats) Summarize(categories []string, minPercent float64, pairLimit int) Summary {
	return Summary{
		TotalCities: s.TotalCities,
		Coverage:    s.Coverage(categories),
		Drift:       s.Drift(minPercent),
		Pairs:       s.TopPairs(pairLimit, 2),
	}
}

func computePMI(pairCount, dfA, dfB, total int64) float64 {
	if dfA == 0 || dfB == 0 || total == 0 {
		return 0
	}
	smooth := 1.0
	numerator := (float64(pairCount) + smooth) / float64(total)
	denominator := ((float64(dfA) + smooth) / float64(total)) * ((float64(dfB) + smooth) / float64(total))
	return math.Log(numerator / denominator)
}

type pair struct {
	A string
	B string
}

func newPair(a, b string) pair {
	if a > b {
		a, b = b, a
	}
	return pair{A: a, B: b}
}
