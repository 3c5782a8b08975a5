package narration

import "github.com/japaniel/narrator/pkg/lexicon"

// Score weights for the distance between a candidate and the target. Tone
// (severity) matters most, then quality, then elegance.
const (
	SeverityWeight = 4
	QualityWeight  = 2
	EleganceWeight = 1
)

// Distance is the weighted L1 distance between two score triples.
func Distance(a, b lexicon.Scores) int {
	return SeverityWeight*abs(a.Severity-b.Severity) +
		EleganceWeight*abs(a.Elegance-b.Elegance) +
		QualityWeight*abs(a.Quality-b.Quality)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Best returns the candidate whose primary form is closest to target. Ties
// go to the alphabetically first word. It returns nil for no candidates.
func Best(candidates []*lexicon.Lexeme, target lexicon.Scores) *lexicon.Lexeme {
	var best *lexicon.Lexeme
	bestDist := 0
	for _, c := range candidates {
		if c == nil {
			continue
		}
		d := Distance(c.Primary().Scores, target)
		if best == nil || d < bestDist || (d == bestDist && c.Word() < best.Word()) {
			best, bestDist = c, d
		}
	}
	return best
}
