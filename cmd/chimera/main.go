// Package main is the chimera CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/chimera/internal/backtest"
	"github.com/hyperjump/chimera/internal/cli"
	"github.com/hyperjump/chimera/internal/config"
	"github.com/hyperjump/chimera/internal/indexer"
	"github.com/hyperjump/chimera/internal/keyword"
	"github.com/hyperjump/chimera/internal/models"
	"github.com/hyperjump/chimera/internal/server"
	"github.com/hyperjump/chimera/internal/storage"
	"github.com/hyperjump/chimera/internal/watcher"
	"github.com/hyperjump/chimera/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/chimera/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "backtest":
		runBacktest()
	case "search":
		runSearch()
	case "import":
		runImport()
	case "stats":
		runStats()
	case "reports":
		runReports()
	case "version", "--version", "-v":
		fmt.Printf("chimera version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (requests, corpus reloads, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Engine, components.Indexer, components.Storage, cfg, logger)
	if _, err := srv.ReloadCorpus(context.Background()); err != nil {
		logger.Warn("initial corpus load failed; backtests return 503 until a dataset is imported", zap.Error(err))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Dataset.Path != "" && cfg.Dataset.WatchOrDefault() {
		watchSvc, err := watcher.NewWatcher([]string{cfg.Dataset.Path}, func(path string) {
			if _, err := srv.ReloadCorpus(watchCtx); err != nil {
				logger.Warn("dataset reload failed", zap.String("path", path), zap.Error(err))
			}
		}, watcher.WithLogger(logger))
		if err != nil {
			logger.Fatal("Failed to create watcher", zap.Error(err))
		}
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// backtestFlags holds the strategy given on the command line.
type backtestFlags struct {
	title, cover, hashtags, postingTime string
	category, platform                  string
	save                                bool
}

func (f *backtestFlags) request() *models.BacktestRequest {
	return &models.BacktestRequest{
		Strategy: models.Strategy{
			Title:       strings.TrimSpace(f.title),
			Cover:       strings.TrimSpace(f.cover),
			Hashtags:    strings.TrimSpace(f.hashtags),
			PostingTime: f.postingTime,
		},
		Features: models.VideoFeatures{Category: strings.TrimSpace(f.category)},
		Platform: strings.ToLower(strings.TrimSpace(f.platform)),
		Save:     f.save,
	}
}

func runBacktest() {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = load the corpus directly)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	var bf backtestFlags
	fs.StringVar(&bf.title, "title", "", "strategy title (required)")
	fs.StringVar(&bf.cover, "cover", "", "cover description")
	fs.StringVar(&bf.hashtags, "hashtags", "", "hashtags, e.g. \"#spicy #noodles\"")
	fs.StringVar(&bf.postingTime, "posting-time", "", "planned posting time")
	fs.StringVar(&bf.category, "category", "", "video category (required)")
	fs.StringVar(&bf.platform, "platform", "", "target platform: youtube, tiktok, or shorts (required)")
	fs.BoolVar(&bf.save, "save", false, "save the result as a report")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	req := bf.request()
	if err := req.Validate(); err != nil {
		fatalf("Invalid strategy: %v", err)
	}

	var resp *models.BacktestResponse
	if *serverURL != "" {
		resp = new(models.BacktestResponse)
		if err := apiRequest(http.MethodPost, *serverURL+"/api/v1/backtest", req, resp); err != nil {
			fatalf("Backtest failed: %v", err)
		}
	} else {
		components, _ := openDirect(*configPath, true)
		defer components.Close()
		resp, err = components.Engine.Run(context.Background(), req)
		if err != nil {
			fatalf("Backtest failed: %v", err)
		}
	}
	if err := cli.WriteBacktest(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	limit := fs.Int("limit", 10, "number of results")
	platform := fs.String("platform", "", "only videos of this platform")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := buildSearchQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: chimera search [flags] <query>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}

	var hits []backtest.SearchHit
	if *serverURL != "" {
		params := url.Values{}
		params.Set("q", query)
		params.Set("limit", fmt.Sprint(*limit))
		if *platform != "" {
			params.Set("platform", *platform)
		}
		if *fuzzy {
			params.Set("fuzzy", "true")
		}
		var out struct {
			Results []backtest.SearchHit `json:"results"`
		}
		if err := apiRequest(http.MethodGet, *serverURL+"/api/v1/videos/search?"+params.Encode(), nil, &out); err != nil {
			fatalf("Search failed: %v", err)
		}
		hits = out.Results
	} else {
		components, _ := openDirect(*configPath, true)
		defer components.Close()
		opts := &keyword.SearchOptions{Platform: strings.ToLower(*platform), FuzzyEnabled: *fuzzy}
		hits, err = components.Engine.Search(context.Background(), query, *limit, opts)
		if err != nil {
			fatalf("Search failed: %v", err)
		}
	}
	if err := cli.WriteSearchHits(os.Stdout, query, hits, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: chimera import [flags] <dataset.csv|.tsv|.xlsx>")
		os.Exit(1)
	}
	components, _ := openDirect(*configPath, false)
	defer components.Close()

	info, err := components.Indexer.ImportFile(context.Background(), fs.Arg(0))
	if err != nil {
		fatalf("Import failed: %v", err)
	}
	fmt.Printf("Imported %d videos from %s (import #%d)\n", info.Videos, info.Source, info.ID)
}

// statsResponse is the shape of the GET /api/v1/stats response.
type statsResponse struct {
	Corpus         *backtest.CorpusStats `json:"corpus"`
	Reports        int64                 `json:"reports"`
	LastImport     *models.ImportInfo    `json:"last_import,omitempty"`
	DiskUsageBytes *int64                `json:"disk_usage_bytes,omitempty"`
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var stats statsResponse
	if *serverURL != "" {
		if err := apiRequest(http.MethodGet, *serverURL+"/api/v1/stats", nil, &stats); err != nil {
			fatalf("Stats failed: %v", err)
		}
	} else {
		components, cfg := openDirect(*configPath, true)
		defer components.Close()
		ctx := context.Background()
		corpus, err := components.Engine.Stats()
		if err != nil {
			fatalf("Stats failed: %v", err)
		}
		stats.Corpus = corpus
		if stats.Reports, err = components.Storage.CountReports(ctx); err != nil {
			fatalf("Count reports failed: %v", err)
		}
		stats.LastImport, _ = components.Storage.LatestImport(ctx)
		if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.BleveIndexPath); err == nil {
			stats.DiskUsageBytes = &diskBytes
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			fatalf("Output failed: %v", err)
		}
	case "text":
		if stats.Corpus != nil {
			fmt.Printf("videos:            %d   # videos in the loaded corpus\n", stats.Corpus.TotalVideos)
			fmt.Printf("platforms:         %s\n", strings.Join(stats.Corpus.Platforms, ", "))
			fmt.Printf("categories:        %s\n", strings.Join(stats.Corpus.Categories, ", "))
			fmt.Printf("corpus_version:    %d\n", stats.Corpus.CorpusVersion)
			fmt.Printf("source:            %s\n", stats.Corpus.Source)
		}
		fmt.Printf("reports:           %d   # saved backtest reports\n", stats.Reports)
		if stats.LastImport != nil {
			fmt.Printf("last_import:       %s\n", stats.LastImport.ImportedAt.Format(time.RFC3339))
		}
		if stats.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:  %d   # database + keyword index on disk\n", *stats.DiskUsageBytes)
		}
	default:
		fatalf("Unknown output format %q; use text or json", *outputFormat)
	}
}

func runReports() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: chimera reports <list|get|delete> [flags] [id]")
		fmt.Println("  chimera reports list          List saved reports, newest first")
		fmt.Println("  chimera reports get <id>      Show a saved report")
		fmt.Println("  chimera reports delete <id>   Delete a saved report")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("reports", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	offset := fs.Int("offset", 0, "number of reports to skip (list)")
	limit := fs.Int("limit", backtest.DefaultReportLimit, "number of reports (list)")
	_ = fs.Parse(argsReorder(os.Args[3:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	var engine *backtest.Engine
	if *serverURL == "" {
		components, _ := openDirect(*configPath, false)
		defer components.Close()
		engine = components.Engine
	}
	ctx := context.Background()

	switch sub {
	case "list":
		var reports []*models.Report
		if engine != nil {
			reports, err = engine.ListReports(ctx, *offset, *limit)
		} else {
			var out struct {
				Reports []*models.Report `json:"reports"`
			}
			endpoint := fmt.Sprintf("%s/api/v1/reports?offset=%d&limit=%d", *serverURL, *offset, *limit)
			err = apiRequest(http.MethodGet, endpoint, nil, &out)
			reports = out.Reports
		}
		if err != nil {
			fatalf("List failed: %v", err)
		}
		if err := cli.WriteReports(os.Stdout, reports, format); err != nil {
			fatalf("Output failed: %v", err)
		}
	case "get":
		id := requireID(fs, "get")
		var report *models.Report
		if engine != nil {
			report, err = engine.GetReport(ctx, id)
		} else {
			report = new(models.Report)
			err = apiRequest(http.MethodGet, *serverURL+"/api/v1/reports/"+url.PathEscape(id), nil, report)
		}
		if err != nil {
			fatalf("Get failed: %v", err)
		}
		if err := cli.WriteReport(os.Stdout, report, format); err != nil {
			fatalf("Output failed: %v", err)
		}
	case "delete":
		id := requireID(fs, "delete")
		if engine != nil {
			err = engine.DeleteReport(ctx, id)
		} else {
			err = apiRequest(http.MethodDelete, *serverURL+"/api/v1/reports/"+url.PathEscape(id), nil, nil)
		}
		if err != nil {
			fatalf("Delete failed: %v", err)
		}
		fmt.Printf("Report deleted: %s\n", id)
	default:
		fatalf("Unknown reports subcommand: %s", sub)
	}
}

func requireID(fs *flag.FlagSet, sub string) string {
	if fs.NArg() < 1 {
		fmt.Printf("Usage: chimera reports %s <id>\n", sub)
		os.Exit(1)
	}
	return fs.Arg(0)
}

// apiError is the error body returned by the server.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// apiRequest sends body as JSON (when non-nil) and decodes a 2xx response into out (when non-nil).
func apiRequest(method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d (%s): %s", resp.StatusCode, apiErr.Code, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// openDirect opens storage and indices for commands running without a server.
// With withCorpus set, the stored corpus is loaded into the engine, importing the
// configured dataset first when storage is still empty.
func openDirect(configPath string, withCorpus bool) (*Components, *config.Config) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	if withCorpus {
		if err := components.loadCorpus(context.Background(), cfg.Dataset.Path); err != nil {
			components.Close()
			fatalf("Failed to load corpus: %v", err)
		}
	}
	return components, cfg
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	KeywordIndex keyword.KeywordIndex
	Engine       *backtest.Engine
	Indexer      *indexer.Indexer
	logger       *zap.Logger
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func (c *Components) loadCorpus(ctx context.Context, datasetPath string) error {
	ds, err := c.Indexer.Load(ctx)
	if err != nil {
		return err
	}
	if ds.Len() == 0 && datasetPath != "" {
		if _, err := c.Indexer.ImportFile(ctx, datasetPath); err != nil {
			return err
		}
		if ds, err = c.Indexer.Load(ctx); err != nil {
			return err
		}
	}
	if n, err := c.KeywordIndex.DocCount(); err == nil && n == 0 && ds.Len() > 0 {
		// in-memory or removed index
		if _, err := c.Indexer.Reindex(ctx); err != nil {
			return err
		}
	}
	c.Engine.SetCorpus(ds)
	return nil
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	indexPath := cfg.Storage.BleveIndexPath
	if indexPath == ":memory:" {
		indexPath = ""
	}
	keywordIndex, err := keyword.NewBleveIndex(indexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	engine, err := backtest.NewEngine(&cfg.Matching.Config,
		backtest.WithLogger(logger),
		backtest.WithStorage(store),
		backtest.WithKeywordIndex(keywordIndex),
		backtest.WithCacheSize(cfg.Matching.CacheSize),
	)
	if err != nil {
		_ = store.Close()
		_ = keywordIndex.Close()
		return nil, err
	}
	idx := indexer.NewIndexer(store, keywordIndex, indexer.WithLogger(logger))

	return &Components{
		Storage:      store,
		KeywordIndex: keywordIndex,
		Engine:       engine,
		Indexer:      idx,
		logger:       logger,
	}, nil
}

func printUsage() {
	fmt.Println(`chimera - Video strategy backtest engine

Usage:
  chimera server [flags]              Start the HTTP server
  chimera backtest [flags]            Predict 24h performance of a strategy
  chimera search [flags] <query>      Keyword search over historical videos
  chimera import [flags] <file>       Import a historical dataset (.csv, .tsv, .xlsx)
  chimera stats [flags]               Show corpus and storage statistics
  chimera reports <list|get|delete>   Manage saved backtest reports
  chimera version                     Show version
  chimera help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/chimera/config.yaml)
  --debug            Enable debug logging

Backtest Flags:
  --title string         Strategy title (required)
  --cover string         Cover description
  --hashtags string      Hashtags, e.g. "#spicy #noodles"
  --category string      Video category (required)
  --platform string      youtube, tiktok, or shorts (required)
  --save                 Save the result as a report
  --output string        text, compact, or json (default: text)
  --server string        Server URL (default: http://localhost:8080). Use --server "" to load the corpus directly.

Search Flags:
  --limit int            Number of results (default: 10)
  --platform string      Only videos of this platform
  --fuzzy                Enable typo tolerance
  --output string        text, compact, or json (default: text)

Stats / Reports Flags:
  --server string        Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --output string        Output format (default: text)
  --offset, --limit int  Paging for reports list

Examples:
  chimera server
  chimera import ./data/videos.csv
  chimera backtest --title "Spiciest noodles challenge" --hashtags "#spicy #noodles" --category "Food & Cooking" --platform youtube
  chimera backtest --output json --save --title "..." --category Gaming --platform tiktok
  chimera search --platform tiktok spicy noodles
  chimera reports list
  chimera stats --output json`)
}
