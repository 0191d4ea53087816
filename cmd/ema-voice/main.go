// Command ema-voice is a terminal client for talking to the Ema assistant.
//
// Keys:
//
//	ctrl+l  start or stop listening
//	ctrl+b  interrupt the assistant and start listening
//	esc     interrupt the assistant
//	ctrl+t  switch between push-to-talk and continuous mode
//	enter   send the typed message
//	ctrl+c  quit
//
// Environment variables:
//
//	DEEPGRAM_API_KEY  - streaming speech recognition (optional)
//	EMA_GATEWAY_TOKEN - bearer token for the dialogue backend (optional)
package main

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"

	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/audio/miniaudio"
	"github.com/koscakluka/ema-voice/core/audio/portaudio"
	"github.com/koscakluka/ema-voice/core/dialogue"
	"github.com/koscakluka/ema-voice/core/speechtotext/deepgram"
	"github.com/koscakluka/ema-voice/core/texttospeech"
	deepgramtts "github.com/koscakluka/ema-voice/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-voice/core/transcription"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

const portaudioBufferSize = 1024

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	baseURL := cli.StringP("url", "u", "http://localhost:3000/api", "Base URL of the dialogue backend")
	modeName := cli.StringP("mode", "m", "push-to-talk", "Conversation mode: push-to-talk or continuous")
	recognizerName := cli.StringP("recognizer", "r", "deepgram", "Streaming recognizer: deepgram or none")
	captureName := cli.StringP("capture", "c", "miniaudio", "Capture backend for streaming recognition: miniaudio or portaudio")
	voice := cli.StringP("voice", "v", "", "Deepgram voice for replies that arrive without audio, empty to keep them silent")
	logFile := cli.String("log-file", "ema-voice.log", "Log file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	_ = godotenv.Load(*envFile)

	if err := run(*baseURL, *modeName, *recognizerName, *captureName, *voice, *logFile, *logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(baseURL, modeName, recognizerName, captureName, voice, logPath, logLevel string) error {
	mode, err := parseMode(modeName)
	if err != nil {
		return err
	}

	logOut, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logOut.Close()
	log.SetDefault(log.New(tint.NewHandler(logOut, &tint.Options{
		Level:   logLevelMap[logLevel],
		NoColor: true,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	speaker, err := miniaudio.NewClient()
	if err != nil {
		return err
	}
	defer speaker.Close()

	sink := newConversationSink()
	opts := []orchestration.OrchestratorOption{
		orchestration.WithMode(mode),
		orchestration.WithAudioOutput(speaker),
		orchestration.WithMicrophone(speaker),
		orchestration.WithTranscriber(transcription.NewClient(baseURL,
			transcription.WithToken(os.Getenv("EMA_GATEWAY_TOKEN")),
		)),
		orchestration.WithDialogueGateway(dialogue.NewClient(baseURL,
			dialogue.WithToken(os.Getenv("EMA_GATEWAY_TOKEN")),
		)),
		orchestration.WithConversationLog(sink),
	}

	switch recognizerName {
	case "deepgram":
		source, closeSource, err := newCaptureSource(captureName)
		if err != nil {
			return err
		}
		defer closeSource()

		recognizer, err := deepgram.NewRecognizer(source)
		if err != nil {
			log.Warn("continuing without streaming recognition", "error", err)
			break
		}
		opts = append(opts, orchestration.WithRecognizer(recognizer))
	case "none":
	default:
		return fmt.Errorf("unknown recognizer %q", recognizerName)
	}

	if voice != "" {
		synthesizer, err := deepgramtts.NewSynthesizer(
			deepgramtts.WithSynthesisOptions(texttospeech.WithVoice(voice)),
		)
		if err != nil {
			log.Warn("continuing without speech synthesis", "error", err)
		} else {
			opts = append(opts, orchestration.WithSynthesizer(synthesizer))
		}
	}

	orchestrator := orchestration.NewOrchestrator(opts...)
	defer orchestrator.Close()

	program := tea.NewProgram(newModel(orchestrator), tea.WithAltScreen(), tea.WithContext(ctx))
	go sink.forward(ctx, program)

	orchestrator.Orchestrate(ctx,
		orchestration.WithInterimTranscriptCallback(sink.interim),
		orchestration.WithModeChangedCallback(sink.modeChanged),
	)
	log.Info("conversation started", "session", orchestrator.SessionID(), "mode", mode.String())

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal ui failed: %w", err)
	}
	return nil
}

func parseMode(name string) (orchestration.ConversationMode, error) {
	switch name {
	case "push-to-talk", "ptt":
		return orchestration.ModePushToTalk, nil
	case "continuous":
		return orchestration.ModeContinuous, nil
	}
	return 0, fmt.Errorf("unknown mode %q", name)
}

// newCaptureSource opens a capture device for the recognizer separate from
// the one used for fallback recording.
func newCaptureSource(name string) (deepgram.AudioSource, func(), error) {
	switch name {
	case "miniaudio":
		client, err := miniaudio.NewClient()
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	case "portaudio":
		client, err := portaudio.NewClient(portaudioBufferSize)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown capture backend %q", name)
}
