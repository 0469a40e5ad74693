package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/koscakluka/gisa/core/audio/miniaudio"
	"github.com/koscakluka/gisa/core/events"
	"github.com/koscakluka/gisa/internal/voice"
	"github.com/spf13/cobra"
)

var (
	callerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	noteStyle      = lipgloss.NewStyle().Faint(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

const playbackDrainTimeout = 5 * time.Second

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Talk to GISA with the local microphone and speaker",
	Long: `Run one session against the local sound card. The microphone stays open
while the assistant speaks, so use headphones to keep its voice out of the
transcript.

Press Ctrl+C to end the session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateVoice(); err != nil {
			return err
		}

		logOutput := io.Discard
		if verbose {
			logOutput = os.Stderr
		}
		flushLogs, err := setupLogging(logOutput)
		if err != nil {
			return err
		}
		defer func() { _ = flushLogs(context.Background()) }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		device, err := miniaudio.NewDevice(voice.EncodingInfo())
		if err != nil {
			return err
		}
		defer device.Close()

		o, err := voice.NewOrchestrator(ctx, cfg, "console-"+uuid.NewString())
		if err != nil {
			return err
		}
		defer o.Shutdown()

		stream, unsubscribe := o.Subscribe(64)
		defer unsubscribe()
		rendered := make(chan struct{})
		go func() {
			defer close(rendered)
			render(cmd.OutOrStdout(), device, stream)
		}()

		if err := o.Initialize(ctx); err != nil {
			return err
		}
		if err := device.StartCapture(func(audio []byte) {
			if err := o.SendAudio(audio); err != nil {
				logger.Debug("dropping microphone audio", "error", err)
			}
		}); err != nil {
			return err
		}

		<-ctx.Done()
		_ = device.StopCapture()
		o.Shutdown()
		<-rendered

		// Let the last reply finish before closing the device.
		drainCtx, cancel := context.WithTimeout(context.Background(), playbackDrainTimeout)
		defer cancel()
		if err := device.WaitPlayback(drainCtx); err != nil {
			device.ClearPlayback()
		}
		fmt.Fprintln(cmd.OutOrStdout(), noteStyle.Render("session ended"))
		return nil
	},
}

func init() {
	consoleCmd.Flags().BoolP("verbose", "v", false, "write logs to stderr")
	rootCmd.AddCommand(consoleCmd)
}

// render plays speech and prints the conversation until the stream closes.
func render(w io.Writer, device *miniaudio.Device, stream <-chan events.Event) {
	for event := range stream {
		switch e := event.(type) {
		case events.AssistantSpeechFrame:
			device.Play(e.Audio)
		case events.UserTranscriptFinal:
			fmt.Fprintf(w, "%s %s\n", callerStyle.Render("Você:"), e.Transcript)
		case events.UserTranscriptDropped:
			if e.Reason == events.DropReasonTurnInFlight {
				fmt.Fprintln(w, noteStyle.Render("(ignorado, GISA ainda está respondendo: "+e.Transcript+")"))
			}
		case events.AssistantResponseFinalized:
			label := fmt.Sprintf("GISA [%s]:", e.Metadata.Phase)
			fmt.Fprintf(w, "%s %s\n", assistantStyle.Render(label), e.Text)
			if e.Metadata.Protocol != "" {
				fmt.Fprintln(w, noteStyle.Render("protocolo "+e.Metadata.Protocol))
			}
		case events.SessionPhaseChanged:
			fmt.Fprintln(w, noteStyle.Render(fmt.Sprintf("%s -> %s", e.From, e.To)))
		case events.TurnFailed:
			fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("turn failed at %s: %v", e.Stage, e.Err)))
		case events.SessionTransportFailed:
			fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("transport failed: %v", e.Err)))
		}
	}
}
