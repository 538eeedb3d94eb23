package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/api"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/auth"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/config"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/crypto"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/llm"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/report"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/storage"
)

// application satisfies api.App.
type application struct {
	logger  internal.Logger
	repos   *storage.Repositories
	cipher  *crypto.Service
	reports *report.Service
}

func (a *application) Logger() internal.Logger          { return a.logger }
func (a *application) Reports() *report.Service         { return a.reports }
func (a *application) Entries() storage.EntryRepository { return a.repos.Entries }
func (a *application) Events() storage.EventRepository  { return a.repos.Events }
func (a *application) Cipher() *crypto.Service          { return a.cipher }

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := internal.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	repos, err := buildRepositories(cfg, logger)
	if err != nil {
		logger.Fatalf("failed to init storage: %v", err)
	}

	encKey := cfg.EncryptionKey
	if encKey == "" {
		// Validate() guarantees a key outside development.
		logger.Warn("ENCRYPTION_KEY not set; using an insecure development key")
		encKey = "dev-only-insecure-key"
	}
	cipher, err := crypto.NewService(encKey, cfg.PreviousEncKey)
	if err != nil {
		logger.Fatalf("failed to init encryption: %v", err)
	}

	var gen llm.TextGenerator
	if cfg.LLMAPIKey != "" {
		gen = llm.NewOpenAIClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
	} else {
		logger.Warn("no LLM API key configured; reports will carry deterministic narratives only")
	}

	var provider auth.Provider
	if cfg.JWTSecret != "" {
		provider = auth.NewJWTAuthProvider(cfg.JWTSecret, logger)
	} else {
		provider = auth.NewLocalAuthProvider(cfg.AuthToken, logger)
	}

	app := &application{
		logger:  logger,
		repos:   repos,
		cipher:  cipher,
		reports: report.NewService(repos, cipher, gen, logger),
	}

	r := api.NewRouter(app, provider)
	logger.Infof("server listening on %s (env=%s, storage=%s)", cfg.Addr, cfg.Env, cfg.DBType)
	if err := r.Run(cfg.Addr); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func buildRepositories(cfg *config.Config, logger internal.Logger) (*storage.Repositories, error) {
	if cfg.DBType == "postgres" {
		return storage.NewPostgresRepositories(cfg.DBDSN, logger)
	}
	for _, f := range []string{cfg.FileEntries, cfg.FileFortunes, cfg.FileReports} {
		if dir := filepath.Dir(f); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	}
	return storage.NewFileRepositories(cfg.FileEntries, cfg.FileFortunes, cfg.FileReports, logger)
}
