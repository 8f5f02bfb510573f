package main

import (
	"flag"
	"os"
	"path/filepath"
	"runtime/pprof"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/cpu"

	"github.com/hailam/shogiplay/internal/config"
	"github.com/hailam/shogiplay/internal/engine"
	"github.com/hailam/shogiplay/internal/nnue"
	"github.com/hailam/shogiplay/internal/storage"
	"github.com/hailam/shogiplay/internal/usi"
)

// Weight file looked for in the eval directory when eval_file is unset.
const defaultEvalFile = "nn.bin"

var (
	configPath  = flag.String("config", "", "path to "+config.FileName)
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
	writeConfig = flag.String("write-config", "", "write the default config to this path and exit")
)

func main() {
	flag.Parse()

	if *writeConfig != "" {
		if err := config.WriteDefault(*writeConfig); err != nil {
			log.Fatal().Err(err).Str("path", *writeConfig).Msg("could not write config")
		}
		return
	}

	searchDirs := []string{}
	if dir, err := storage.GetDataDir(); err == nil {
		searchDirs = append(searchDirs, dir)
	}
	cfg, err := config.Load(*configPath, searchDirs...)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load config")
	}
	setupLogging(cfg)

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", profilePath).Msg("CPU profiling enabled")
	}

	log.Debug().Bool("avx2", cpu.X86.HasAVX2).Bool("accelerated", nnue.HasAcceleration()).Msg("evaluator kernels")

	eng := engine.NewEngine(cfg.HashMB, cfg.Threads)
	eng.SetTTHorizon(cfg.TTHorizon)

	opts := []usi.Option{usi.WithSettings(settingsFrom(cfg))}
	store, err := storage.NewStorage(cfg.DataDir)
	if err != nil {
		log.Warn().Err(err).Msg("storage unavailable, games and analysis are not kept")
	} else {
		defer store.Close()
		opts = append(opts, usi.WithStorage(store, cfg.RecordGames))
	}

	protocol := usi.New(eng, opts...)
	if err := protocol.LoadConfiguredEvaluator(); err != nil {
		log.Warn().Err(err).Msg("evaluator not loaded, set EvalFile before go")
	}

	if err := protocol.Run(); err != nil {
		log.Error().Err(err).Msg("usi loop")
	}
	log.Info().Msg("bye")
}

func setupLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if cfg.LogPretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	logger = logger.With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	log.Debug().Interface("config", cfg).Msg("loaded config")
}

// settingsFrom maps the config onto USI option values. An unset eval_file
// falls back to nn.bin in the eval directory.
func settingsFrom(cfg config.Config) usi.Settings {
	s := usi.DefaultSettings()
	s.HashMB = cfg.HashMB
	s.Threads = cfg.Threads
	s.BookFile = cfg.BookFile
	s.NetworkDelay = time.Duration(cfg.NetworkDelayMS) * time.Millisecond
	s.MinThinkingTime = time.Duration(cfg.MinThinkMS) * time.Millisecond
	s.EnteringKingRule = cfg.EnteringKingRule

	s.EvalFile = cfg.EvalFile
	if s.EvalFile == "" {
		if dir, err := storage.GetEvalDir(cfg.DataDir); err == nil {
			s.EvalFile = filepath.Join(dir, defaultEvalFile)
		}
	}
	return s
}
