package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/SARVESHVARADKAR123/dmsync/internal/outbox"
	"github.com/SARVESHVARADKAR123/dmsync/internal/thread"
	"github.com/SARVESHVARADKAR123/dmsync/internal/upload"
	"github.com/spf13/cobra"
)

var (
	sendFiles []string
	sendVoice string
)

func init() {
	sendCmd.Flags().StringSliceVarP(&sendFiles, "file", "f", nil, "attach a file (repeatable)")
	sendCmd.Flags().StringVar(&sendVoice, "voice", "", "send an audio file as a voice message")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send [conversation-id] [text...]",
	Short: "Send one message and wait for the server to confirm it",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		v, err := thread.Open(ctx, s.client, args[0], s.threadOptions())
		if err != nil {
			return err
		}
		defer v.Close()

		p, err := submit(ctx, v, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if err := p.Wait(ctx); err != nil {
			return fmt.Errorf("send failed: %w", err)
		}

		for _, m := range v.Store.Messages() {
			if m.ClientID == p.TempID {
				renderMessage(cmd.OutOrStdout(), m, s.cfg.UserID)
			}
		}
		return nil
	},
}

func submit(ctx context.Context, v *thread.View, text string) (*outbox.Pending, error) {
	switch {
	case sendVoice != "":
		clip, err := recordFile(ctx, sendVoice)
		if err != nil {
			return nil, err
		}
		return v.Sender.SendVoice(ctx, clip)

	case len(sendFiles) > 0:
		files := make([]upload.File, 0, len(sendFiles))
		for _, path := range sendFiles {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			files = append(files, upload.File{Name: filepath.Base(path), Data: data})
		}
		return v.Sender.SendFiles(ctx, files...)

	default:
		return v.Sender.SendText(ctx, text)
	}
}
