package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/SARVESHVARADKAR123/dmsync/internal/recorder"
	"github.com/SARVESHVARADKAR123/dmsync/internal/thread"
	"github.com/SARVESHVARADKAR123/dmsync/internal/upload"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(threadCmd)
}

var threadCmd = &cobra.Command{
	Use:   "thread [conversation-id]",
	Short: "Open a conversation and chat interactively",
	Long: `Opens the conversation, prints its newest messages and streams new
ones as they arrive. Lines typed on stdin are sent as text. Commands:

  /older          load the previous page of history
  /file <path>    send a file
  /voice <path>   send an audio file as a voice message
  /retry          retry every failed send
  /play <id>      toggle playback of a voice message
  /quit           leave`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := s.threadOptions()
		player := newTerminalPlayer(cmd.OutOrStdout())
		opts.Player = player
		v, err := thread.Open(ctx, s.client, args[0], opts)
		if err != nil {
			return err
		}
		defer v.Close()
		player.durationOf = voiceDuration(v.Store)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "conversation with %s\n", v.Conversation.OtherUser.Name)

		go printChanges(ctx, out, v, s.cfg.UserID)

		lines := make(chan string)
		go readLines(cmd.InOrStdin(), lines)

		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok || line == "/quit" {
					return nil
				}
				if err := handleLine(ctx, v, line); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "! %v\n", err)
				}
			}
		}
	},
}

func readLines(r io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		out <- sc.Text()
	}
}

func handleLine(ctx context.Context, v *thread.View, line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/older":
		made, err := v.History.LoadOlder(ctx)
		if err == nil && !made && !v.History.HasMore() {
			return fmt.Errorf("no older messages")
		}
		return err

	case "/file":
		data, err := os.ReadFile(arg)
		if err != nil {
			return err
		}
		_, err = v.Sender.SendFiles(ctx, upload.File{Name: filepath.Base(arg), Data: data})
		return err

	case "/voice":
		clip, err := recordFile(ctx, arg)
		if err != nil {
			return err
		}
		_, err = v.Sender.SendVoice(ctx, clip)
		return err

	case "/retry":
		for _, m := range v.Store.Messages() {
			if m.DeliveryState == domain.StateFailed {
				if _, err := v.Sender.Retry(ctx, m.ID); err != nil {
					return err
				}
			}
		}
		return nil

	case "/play":
		m, ok := v.Store.Get(arg)
		if !ok {
			return domain.ErrMessageNotFound
		}
		vp, ok := m.Payload.(domain.VoicePayload)
		if !ok || vp.Voice.URL == "" {
			return fmt.Errorf("%s is not a playable voice message", arg)
		}
		return v.Playback.Toggle(m.ID, vp.Voice.URL)

	default:
		_, err := v.Sender.SendText(ctx, line)
		return err
	}
}

// recordFile runs a file through the voice recorder.
func recordFile(ctx context.Context, path string) (upload.Clip, error) {
	rec := recorder.New(recorder.FileMicrophone{Path: path})
	if err := rec.Start(ctx); err != nil {
		return upload.Clip{}, err
	}
	if _, err := rec.Stop(); err != nil {
		return upload.Clip{}, err
	}
	blob, err := rec.Take()
	if err != nil {
		return upload.Clip{}, err
	}
	return upload.Clip{Data: blob.Data, MimeType: blob.MimeType, Elapsed: blob.Elapsed}, nil
}

// printChanges prints every message the first time it is seen and again
// whenever its id or delivery state changes.
func printChanges(ctx context.Context, out io.Writer, v *thread.View, self string) {
	changes, cancel := v.Store.Subscribe()
	defer cancel()

	seen := make(map[string]domain.DeliveryState)
	flush := func() {
		for _, m := range v.Store.Messages() {
			if st, ok := seen[m.ID]; ok && st == m.DeliveryState {
				continue
			}
			seen[m.ID] = m.DeliveryState
			renderMessage(out, m, self)
		}
	}

	flush()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			flush()
		}
	}
}
