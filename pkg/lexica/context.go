package lexica

// Context is the per-observer rendering configuration.
type Context struct {
	Language string

	// Deltas applied to a word's own scores when choosing a synonym.
	Severity int
	Elegance int
	Quality  int

	Tense         Tense
	Perspective   Perspective
	Normalization Normalization
	SentenceType  SentenceType

	// Verbosity (0-100) gates how eagerly synonyms replace the base word.
	Verbosity int
}

// DefaultVerbosity is used by DefaultContext.
const DefaultVerbosity = 50

// DefaultContext returns a neutral context for language: no score deltas,
// present tense, second person, a single unsplit sentence.
func DefaultContext(language string) Context {
	return Context{
		Language:      language,
		Tense:         TensePresent,
		Perspective:   SecondPerson,
		Normalization: NormalizeNone,
		SentenceType:  SentenceStatement,
		Verbosity:     DefaultVerbosity,
	}
}

// WithDeltas returns a copy of c with the given score deltas.
func (c Context) WithDeltas(severity, elegance, quality int) Context {
	c.Severity = severity
	c.Elegance = elegance
	c.Quality = quality
	return c
}

// ClampedVerbosity returns Verbosity limited to 0-100.
func (c Context) ClampedVerbosity() int {
	switch {
	case c.Verbosity < 0:
		return 0
	case c.Verbosity > 100:
		return 100
	default:
		return c.Verbosity
	}
}
