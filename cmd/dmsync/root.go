package main

import (
	"fmt"
	"os"

	"github.com/SARVESHVARADKAR123/dmsync/internal/api"
	"github.com/SARVESHVARADKAR123/dmsync/internal/cache"
	"github.com/SARVESHVARADKAR123/dmsync/internal/config"
	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"github.com/SARVESHVARADKAR123/dmsync/internal/thread"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "dmsync",
	Short: "Direct-message client for the dmsync API",
	Long: `dmsync opens a direct conversation, keeps it in sync by polling,
and sends text, file and voice messages with optimistic delivery.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().String("api", "", "API base URL (overrides API_BASE_URL)")
	rootCmd.PersistentFlags().String("token", "", "bearer token (overrides API_TOKEN)")
	rootCmd.PersistentFlags().String("user", "", "your user id (overrides USER_ID)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log to stderr")
}

// session is what every subcommand needs: config, logger and API client.
type session struct {
	cfg    *config.Config
	log    *zap.Logger
	client *api.Client
	cache  *cache.ConversationCache
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("api"); v != "" {
		cfg.APIBaseURL = v
	}
	if v, _ := flags.GetString("token"); v != "" {
		cfg.APIToken = v
	}
	if v, _ := flags.GetString("user"); v != "" {
		cfg.UserID = v
	}
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("no token: set API_TOKEN or --token")
	}

	log := zap.NewNop()
	if verbose, _ := flags.GetBool("verbose"); verbose {
		observability.InitLogger(cfg.ServiceName)
		log = observability.Log
	}

	client, err := api.New(cfg.APIBaseURL, api.StaticToken(cfg.APIToken),
		api.WithTimeouts(cfg.RequestTimeout, cfg.UploadTimeout),
		api.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, log: log, client: client}
	if cfg.RedisAddr != "" {
		s.cache = &cache.ConversationCache{
			R:   redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
			TTL: cfg.ConversationCacheTTL,
		}
	}
	return s, nil
}

func (s *session) threadOptions() thread.Options {
	opts := thread.Options{
		UserID:         s.cfg.UserID,
		PollInterval:   s.cfg.PollInterval,
		PageSize:       s.cfg.HistoryPageSize,
		MaxUploadBytes: s.cfg.MaxUploadBytes,
		Player:         newTerminalPlayer(nil),
		Logger:         s.log,
	}
	if s.cache != nil {
		opts.Cache = s.cache
	}
	return opts
}

func (s *session) Close() {
	if s.cache != nil {
		_ = s.cache.R.Close()
	}
	_ = s.log.Sync()
}
