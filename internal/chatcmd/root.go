package chatcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/gochat"
	"github.com/shaharia-lab/gochat/observability"
)

// NewRootCmd builds the gochat command: an interactive terminal chat
// backed by an OpenAI-compatible API.
func NewRootCmd(version string) *cobra.Command {
	var (
		configPath string
		flags      FileConfig
		noStream   bool
	)

	cmd := &cobra.Command{
		Use:     "gochat",
		Short:   "Chat with OpenAI-compatible APIs from the terminal",
		Version: version,
		Long: `gochat is an interactive terminal chatbot client for OpenAI-compatible
chat completion APIs (OpenAI, Azure, OpenRouter). It keeps the recent
conversation within a token budget and can attach images and files with
#file:path tokens.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			explicit := cmd.Flags().Changed("config")
			if !explicit {
				configPath = DefaultConfigPath()
			}

			config, err := LoadFileConfig(configPath, explicit)
			if err != nil {
				return err
			}
			mergeFlags(&config, flags, cmd)

			client, logger, err := buildClient(config)
			if err != nil {
				return err
			}

			repl := newREPL(cmd.InOrStdin(), cmd.OutOrStdout(), client, logger, !noStream)
			return repl.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path (default ~/.config/gochat.yaml)")
	cmd.Flags().StringVar(&flags.Token, "token", "", "bearer token (overrides config)")
	cmd.Flags().StringVar(&flags.APIKey, "api-key", "", "api-key header credential (Azure)")
	cmd.Flags().StringVarP(&flags.APIURL, "url", "u", "", "base API URL")
	cmd.Flags().StringVar(&flags.APIVersion, "api-version", "", "api-version query parameter (Azure)")
	cmd.Flags().StringVarP(&flags.Flavor, "flavor", "f", "", "API flavor: openai or openrouter")
	cmd.Flags().StringVarP(&flags.Model, "model", "m", "", "model ID")
	cmd.Flags().StringVarP(&flags.SystemMessage, "system-message", "s", "", "system message")
	cmd.Flags().StringVar(&flags.ReasoningEffort, "reasoning-effort", "", "reasoning effort: minimal, low, medium, or high")
	cmd.Flags().Int64Var(&flags.ReasoningBudget, "reasoning-budget", 0, "reasoning token budget (openrouter only)")
	cmd.Flags().StringVar(&flags.Verbosity, "verbosity", "", "answer verbosity: low, medium, or high")
	cmd.Flags().IntVar(&flags.MinHistoryTokens, "min-history-tokens", 0, "minimum context tokens to retain")
	cmd.Flags().IntVar(&flags.MaxHistoryTokens, "max-history-tokens", 0, "maximum context tokens to retain")
	cmd.Flags().IntVar(&flags.RequestsPerMinute, "requests-per-minute", 0, "client-side request throttle")
	cmd.Flags().StringVar(&flags.HistoryDB, "history-db", "", "SQLite file for session transcripts")
	cmd.Flags().BoolVar(&flags.Debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "wait for complete responses instead of streaming")

	return cmd
}

// mergeFlags overlays explicitly set flags onto the file config.
func mergeFlags(config *FileConfig, flags FileConfig, cmd *cobra.Command) {
	if cmd.Flags().Changed("token") {
		config.Token = flags.Token
	}
	if cmd.Flags().Changed("api-key") {
		config.APIKey = flags.APIKey
	}
	if cmd.Flags().Changed("url") {
		config.APIURL = flags.APIURL
	}
	if cmd.Flags().Changed("api-version") {
		config.APIVersion = flags.APIVersion
	}
	if cmd.Flags().Changed("flavor") {
		config.Flavor = flags.Flavor
	}
	if cmd.Flags().Changed("model") {
		config.Model = flags.Model
	}
	if cmd.Flags().Changed("system-message") {
		config.SystemMessage = flags.SystemMessage
	}
	if cmd.Flags().Changed("reasoning-effort") {
		config.ReasoningEffort = flags.ReasoningEffort
	}
	if cmd.Flags().Changed("reasoning-budget") {
		config.ReasoningBudget = flags.ReasoningBudget
	}
	if cmd.Flags().Changed("verbosity") {
		config.Verbosity = flags.Verbosity
	}
	if cmd.Flags().Changed("min-history-tokens") {
		config.MinHistoryTokens = flags.MinHistoryTokens
	}
	if cmd.Flags().Changed("max-history-tokens") {
		config.MaxHistoryTokens = flags.MaxHistoryTokens
	}
	if cmd.Flags().Changed("requests-per-minute") {
		config.RequestsPerMinute = flags.RequestsPerMinute
	}
	if cmd.Flags().Changed("history-db") {
		config.HistoryDB = flags.HistoryDB
	}
	if cmd.Flags().Changed("debug") {
		config.Debug = flags.Debug
	}
}

// buildClient assembles the chat client and its logger from the merged
// configuration.
func buildClient(config FileConfig) (*gochat.ChatClient, observability.Logger, error) {
	if config.Token == "" && config.APIKey == "" {
		return nil, nil, fmt.Errorf("no credential configured: set token or api_key in the config file, --token, or OPENAI_API_KEY")
	}

	logger := observability.NewNullLogger()
	if config.Debug {
		var err error
		logger, err = observability.NewProductionZapLogger()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build logger: %w", err)
		}
	}

	var history gochat.SessionStore
	if config.HistoryDB != "" {
		store, err := gochat.NewSQLiteSessionStore(config.HistoryDB, logger)
		if err != nil {
			return nil, nil, err
		}
		history = store
	}

	client, err := gochat.NewChatClient(gochat.Config{
		Auth:              gochat.Auth{Token: config.Token, APIKey: config.APIKey},
		APIURL:            config.APIURL,
		APIVersion:        config.APIVersion,
		Flavor:            gochat.APIFlavor(config.Flavor),
		Model:             config.Model,
		SystemMessage:     config.SystemMessage,
		ReasoningEffort:   config.ReasoningEffort,
		ReasoningBudget:   config.ReasoningBudget,
		Verbosity:         config.Verbosity,
		MinHistoryTokens:  config.MinHistoryTokens,
		MaxHistoryTokens:  config.MaxHistoryTokens,
		RequestsPerMinute: config.RequestsPerMinute,
		History:           history,
		Logger:            logger,
	})
	if err != nil {
		return nil, nil, err
	}

	return client, logger, nil
}
