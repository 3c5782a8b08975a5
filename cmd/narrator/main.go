// Command narrator administers the lexicon behind the narration engine:
// it seeds lexemes from a corpus, harvests synonyms from a thesaurus and
// renders a demo event for a few observers.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/japaniel/narrator/internal/config"
	"github.com/japaniel/narrator/internal/logging"
	"github.com/japaniel/narrator/pkg/db"
	"github.com/japaniel/narrator/pkg/ingest"
	"github.com/japaniel/narrator/pkg/lexica"
	"github.com/japaniel/narrator/pkg/lexicon"
	"github.com/japaniel/narrator/pkg/messaging"
	"github.com/japaniel/narrator/pkg/narration"
	"github.com/japaniel/narrator/pkg/segment"
	"github.com/japaniel/narrator/pkg/thesaurus"
)

func main() {
	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "narrator: %v\n", err)
		os.Exit(2)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "narrator: %v\n", err)
		os.Exit(2)
	}
	logging.Init(cfg.LogJSON, level)

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("narrator failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	dbPath          string
	language        string
	seedURL         string
	seedFile        string
	harvest         bool
	thesaurusPath   string
	thesaurusURL    string
	thesaurusRemote string
	demo            bool
	verbosity       int
}

func parseFlags(cfg config.Config, args []string, out io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("narrator", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&o.dbPath, "db", cfg.DBPath, "Path to SQLite database")
	fs.StringVar(&o.language, "lang", cfg.DefaultLanguage, "Language of the corpus and lexicon")
	fs.StringVar(&o.seedURL, "seed-url", "", "URL of an article to seed the lexicon from")
	fs.StringVar(&o.seedFile, "seed-file", "", "HTML or plain text file to seed the lexicon from")
	fs.BoolVar(&o.harvest, "harvest", cfg.HarvestEnabled, "Harvest synonyms for every unmapped lexeme")
	fs.StringVar(&o.thesaurusPath, "thesaurus", cfg.ThesaurusPath, "Path to a JSON synset file")
	fs.StringVar(&o.thesaurusURL, "thesaurus-download", "", "URL to download the synset file from when it is missing")
	fs.StringVar(&o.thesaurusRemote, "thesaurus-url", cfg.ThesaurusURL, "Base URL of a remote synset service")
	fs.BoolVar(&o.demo, "demo", false, "Render a demo event for three observers")
	fs.IntVar(&o.verbosity, "verbosity", lexica.DefaultVerbosity, "Demo verbosity (0-100)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.seedURL == "" && o.seedFile == "" && !o.harvest && !o.demo {
		fs.Usage()
		return o, errors.New("nothing to do: pass -seed-url, -seed-file, -harvest or -demo")
	}
	return o, nil
}

func run(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	o, err := parseFlags(cfg, args, out)
	if err != nil {
		return err
	}
	logger := slog.Default()

	conn, err := db.Open(o.dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info("database ready", "path", o.dbPath)

	store := lexicon.NewStore(db.NewLexemeRepo(conn), lexicon.WithLogger(logger))
	loaded, err := store.Load(ctx, o.language)
	if err != nil {
		return fmt.Errorf("warm lexicon: %w", err)
	}
	logger.Info("lexicon loaded", "language", o.language, "lexemes", loaded)

	if o.seedURL != "" || o.seedFile != "" {
		if err := seed(ctx, conn, store, o, out); err != nil {
			return err
		}
	}
	if o.harvest {
		if err := harvest(ctx, cfg, store, o, out); err != nil {
			return err
		}
	}
	if o.demo {
		return demo(ctx, store, o, out)
	}
	return nil
}

func seed(ctx context.Context, conn *sql.DB, store *lexicon.Store, o options, out io.Writer) error {
	var (
		article    *segment.Article
		sourceType string
		err        error
	)
	switch {
	case o.seedURL != "":
		sourceType = "website_article"
		article, err = segment.FetchArticle(ctx, nil, o.seedURL)
	default:
		sourceType = "file"
		article, err = readArticleFile(o.seedFile)
	}
	if err != nil {
		return err
	}

	sourceID, err := db.CreateOrGetSource(conn, sourceType, article.Title, article.Byline, article.SiteName, article.URL, "")
	if err != nil {
		return fmt.Errorf("persist source: %w", err)
	}

	seg, err := segment.ForLanguage(o.language)
	if err != nil {
		return err
	}
	sentences, err := seg.Segment(article.Text)
	if err != nil {
		return fmt.Errorf("segment %q: %w", article.Title, err)
	}

	seeder := ingest.NewSeeder(conn, store, o.language)
	seeder.OnProgress = func(current, total int) {
		slog.Debug("seed progress", "current", current, "total", total)
	}
	count, err := seeder.Seed(ctx, sourceID, sentences)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d occurrences from %d sentences of %q\n", count, len(sentences), article.Title)
	return nil
}

// readArticleFile treats .html/.htm files as web pages and anything else as
// plain text.
func readArticleFile(path string) (*segment.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pageURL, err := fileURL(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return segment.ExtractArticle(f, pageURL)
	}
	b, err := io.ReadAll(io.LimitReader(f, segment.MaxArticleSize))
	if err != nil {
		return nil, err
	}
	return &segment.Article{URL: pageURL, Title: filepath.Base(path), Text: string(b)}, nil
}

// fileURL is the source URL recorded for a local file.
func fileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func oracle(ctx context.Context, o options) (lexicon.Oracle, error) {
	switch {
	case o.thesaurusPath != "":
		if err := thesaurus.EnsureThesaurus(ctx, o.thesaurusPath, o.thesaurusURL); err != nil {
			return nil, err
		}
		entries, err := thesaurus.Load(o.thesaurusPath)
		if err != nil {
			return nil, err
		}
		return thesaurus.NewIndex(entries), nil
	case o.thesaurusRemote != "":
		return thesaurus.NewClient(o.thesaurusRemote), nil
	default:
		return nil, errors.New("harvest needs -thesaurus or -thesaurus-url")
	}
}

func harvest(ctx context.Context, cfg config.Config, store *lexicon.Store, o options, out io.Writer) error {
	src, err := oracle(ctx, o)
	if err != nil {
		return err
	}
	h := lexicon.NewHarvester(store, src)
	h.Timeout = cfg.HarvestTimeout
	h.Depth = cfg.HarvestDepth

	report, err := ingest.HarvestAll(ctx, h, store.Unmapped(o.language), cfg.HarvestWorkers, slog.Default())
	fmt.Fprintf(out, "Harvested %d of %d lexemes (%d failed, %d words visited)\n",
		report.Mapped, report.Requested, report.Failed, report.Visited)
	return err
}

type demoObserver struct {
	id        string
	ctx       lexica.Context
	threshold int
}

func (o demoObserver) ObserverID() string                            { return o.id }
func (o demoObserver) LexicalContext() lexica.Context                { return o.ctx }
func (o demoObserver) PerceptionThreshold(messaging.SensoryType) int { return o.threshold }

// demoCluster is Ann striking Bob: everyone sees the blow, only those close
// by hear the crash.
func demoCluster() *messaging.Cluster {
	strike := func(subject, verb, object string, subjectType lexica.Type) *messaging.Occurrence {
		n := lexica.New(lexica.TypeVerb, lexica.RoleVerb, verb)
		n.Modify(subjectType, lexica.RoleSubject, subject, false)
		n.Modify(lexica.TypeProperNoun, lexica.RoleDirectObject, object, false)
		return messaging.NewOccurrence(messaging.Visible, messaging.AlwaysPerceivable, n)
	}
	crash := lexica.New(lexica.TypeNoun, lexica.RoleSubject, "crash")
	crash.Modify(lexica.TypeAdjective, lexica.RoleDescriptive, "loud", false)
	sound := messaging.NewOccurrence(messaging.Audible, 40, crash)

	return messaging.NewCluster(
		messaging.Party{ID: "ann", Name: "Ann"},
		messaging.Party{ID: "bob", Name: "Bob"},
		messaging.Message{
			ToActor:  []*messaging.Occurrence{strike("you", "hit", "$T$", lexica.TypePronoun), sound},
			ToTarget: []*messaging.Occurrence{strike("$A$", "hits", "you", lexica.TypeProperNoun), sound},
			ToOrigin: []*messaging.Occurrence{strike("$A$", "hits", "$T$", lexica.TypeProperNoun), sound},
		},
	)
}

func demo(ctx context.Context, store *lexicon.Store, o options, out io.Writer) error {
	lc := lexica.DefaultContext(o.language)
	lc.Normalization = lexica.NormalizeSemantic
	lc.Verbosity = o.verbosity

	observers := []messaging.Observer{
		demoObserver{id: "ann", ctx: lc, threshold: 10},
		demoObserver{id: "bob", ctx: lc, threshold: 10},
		demoObserver{id: "cid", ctx: lc, threshold: 60},
	}
	d := messaging.NewDispatcher(
		narration.New(store),
		&messaging.WriterTransport{W: out},
		messaging.WithConcurrency(1),
	)
	return d.Deliver(ctx, demoCluster(), observers)
}
