package similar

import (
	"math"
	"sort"

	"github.com/teleportme/compass/pkg/compass/catalog"
)

// Categories are the dimensions cities are compared on.
var Categories = []string{
	"Cost of Living",
	"Environmental Quality",
	"Leisure & Culture",
	"Economy",
	"Safety",
	"Outdoors",
	"Commute",
	"Healthcare",
}

// scoreScale lifts 0-10 category scores onto the 0-100 scale the distance
// normaliser assumes.
const scoreScale = 10.0

var maxDistance = math.Sqrt(float64(len(Categories)) * 100 * 100)

// Result is one neighbour of the target city.
type Result struct {
	City               catalog.City `json:"city"`
	Similarity         float64      `json:"similarity"`
	CategorySimilarity float64      `json:"category_similarity"`
	TagSimilarity      float64      `json:"tag_similarity"`
	SharedCategories   int          `json:"shared_categories"`
	Tag                string       `json:"tag"`
}

// Finder performs content-based nearest-neighbour search over cities.
//
// sim(a, b) = w_cat * (1 - dist(a, b)/max) + w_tag * jaccard(tags_a, tags_b)
type Finder struct {
	CategoryWeight float64
	TagWeight      float64
	// MinShared is the minimum number of categories both cities must
	// have a score for.
	MinShared int
}

// NewFinder returns a finder with the production blend.
func NewFinder() Finder {
	return Finder{CategoryWeight: 0.4, TagWeight: 0.6, MinShared: 4}
}

// Similar returns up to k cities from pool most similar to target, best
// first. The target itself and candidates sharing too few scored
// categories are skipped. k <= 0 returns every eligible city.
func (f Finder) Similar(target catalog.City, pool []catalog.City, k int) []Result {
	out := make([]Result, 0, len(pool))
	for _, c := range pool {
		if c.ID == target.ID {
			continue
		}
		r, ok := f.Compare(target, c)
		if !ok {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		if out[i].City.Name != out[j].City.Name {
			return out[i].City.Name < out[j].City.Name
		}
		return out[i].City.ID < out[j].City.ID
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// Compare scores a single candidate against target. ok is false when the
// two share fewer than MinShared categories.
func (f Finder) Compare(target, candidate catalog.City) (Result, bool) {
	catSim, shared := CategorySimilarity(target.Scores, candidate.Scores)
	if shared < f.MinShared {
		return Result{}, false
	}
	tagSim := TagSimilarity(target.Tags, candidate.Tags)
	return Result{
		City:               candidate,
		Similarity:         f.CategoryWeight*catSim + f.TagWeight*tagSim,
		CategorySimilarity: catSim,
		TagSimilarity:      tagSim,
		SharedCategories:   shared,
		Tag:                ComparisonTag(target, candidate),
	}, true
}

// CategorySimilarity is one minus the Euclidean distance over categories
// present on both sides, normalised by the maximum possible distance.
func CategorySimilarity(a, b map[string]float64) (float64, int) {
	var sum float64
	shared := 0
	for _, cat := range Categories {
		av, aok := a[cat]
		bv, bok := b[cat]
		if !aok || !bok {
			continue
		}
		d := (av - bv) * scoreScale
		sum += d * d
		shared++
	}
	return 1 - math.Sqrt(sum)/maxDistance, shared
}

// TagSimilarity is the Jaccard index of two tag sets. Two empty sets are
// neutral (0.5); a single empty set shares nothing (0).
func TagSimilarity(a, b map[string]float64) float64 {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 0.5
	case len(a) == 0 || len(b) == 0:
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
