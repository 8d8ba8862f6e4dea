package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	orchestration "github.com/kurtvoice/kurt-core/core"
	"github.com/kurtvoice/kurt-core/core/audio/miniaudio"
	"github.com/kurtvoice/kurt-core/core/calendar/forecast"
	"github.com/kurtvoice/kurt-core/core/calendar/google"
	"github.com/kurtvoice/kurt-core/core/nlp/huggingface"
	"github.com/kurtvoice/kurt-core/core/skills"
	sttdeepgram "github.com/kurtvoice/kurt-core/core/speechtotext/deepgram"
	ttsdeepgram "github.com/kurtvoice/kurt-core/core/texttospeech/deepgram"
	"github.com/kurtvoice/kurt-core/core/voice/serving"
	"github.com/kurtvoice/kurt-core/internal/config"
	"github.com/kurtvoice/kurt-core/internal/store"
)

func newApp() *cli.App {
	return &cli.App{
		Name:    "kurt",
		Usage:   "Voice-driven personal assistant",
		Version: Version,
		Commands: []*cli.Command{
			runCmd(),
			usersCmd(),
			retrainCmd(),
		},
		// Running without a subcommand starts the assistant.
		Action: func(c *cli.Context) error {
			return runAssistant(c)
		},
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Start the engagement loop",
		Action: runAssistant,
	}
}

func runAssistant(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := store.NewRegistry(db)
	corpus, err := store.NewCorpus(db, afero.NewOsFs(), filepath.Join(cfg.DataDir, "recordings"))
	if err != nil {
		return err
	}

	audioClient, err := miniaudio.NewClient()
	if err != nil {
		return err
	}
	defer audioClient.Close()

	listenClient, err := sttdeepgram.NewListenClient(audioClient)
	if err != nil {
		return err
	}

	speakVoice, err := ttsdeepgram.VoiceFromName(cfg.Voice)
	if err != nil {
		return err
	}
	speakClient, err := ttsdeepgram.NewSpeakClient(audioClient, speakVoice)
	if err != nil {
		return err
	}

	extractor, err := huggingface.NewClient(huggingface.WithModel(cfg.QAModel))
	if err != nil {
		return err
	}

	classifier, err := serving.NewClient(cfg.ClassifierUrl, registry)
	if err != nil {
		return err
	}

	dispatcher := skills.NewDispatcher(
		skills.WithForecaster(forecast.NewForecaster()),
		skills.WithEncyclopedia(skills.NewWikipedia()),
	)

	orchestrator := orchestration.NewOrchestrator(
		orchestration.WithSpeechCapture(listenClient),
		orchestration.WithSpeechOutput(speakClient),
		orchestration.WithVoiceClassifier(classifier),
		orchestration.WithNameExtractor(extractor),
		orchestration.WithCalendarService(google.NewService(cfg.DataDir)),
		orchestration.WithRegistry(registry),
		orchestration.WithCorpus(corpus),
		orchestration.WithSkillDispatcher(dispatcher),
		orchestration.WithTeleprompter(skills.NewTeleprompter(os.Stdout)),
		orchestration.WithActivationPhrase(cfg.ActivationPhrase),
		orchestration.WithIdentityThreshold(cfg.IdentityThreshold),
		orchestration.WithExtractionThreshold(cfg.ExtractionThreshold),
		orchestration.WithIdentityAttempts(cfg.IdentityAttempts),
		orchestration.WithBootstrapSamples(cfg.BootstrapSamples),
	)

	return orchestrator.Run(ctx)
}

func usersCmd() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "List registered users",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer db.Close()

			users, err := store.NewRegistry(db).List(c.Context)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCALENDAR\tREGISTERED")
			for _, user := range users {
				calendarState := "-"
				if user.HasToken {
					calendarState = "authorized"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", user.Name, calendarState, user.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
}

func retrainCmd() *cli.Command {
	return &cli.Command{
		Name:  "retrain",
		Usage: "Rebuild the voice-classifier model from the current registry and corpus",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer db.Close()

			classifier, err := serving.NewClient(cfg.ClassifierUrl, store.NewRegistry(db))
			if err != nil {
				return err
			}
			if err := classifier.Retrain(c.Context); err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, "Voice model retrained.")
			return nil
		},
	}
}
