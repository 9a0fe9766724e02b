// Package main provides the entry point for the ownbrief CLI application.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dltmdgh0611/ownbrief/briefing"
	"github.com/dltmdgh0611/ownbrief/internal/audio"
	"github.com/dltmdgh0611/ownbrief/internal/cache"
	"github.com/dltmdgh0611/ownbrief/internal/service"
	"github.com/dltmdgh0611/ownbrief/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile  string
	serverURL   string
	apiToken    string
	voice       string
	speed       float64
	trends      int
	userName    string
	tone        string
	plain       bool
	noInterlude bool
	debug       bool

	keyword = lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Render

	rootCmd = &cobra.Command{
		Use:   "ownbrief",
		Short: "Listen to your personal briefing, read aloud",
		Long: fmt.Sprintf(
			"\nGenerate and play your %s: calendar, inbox, work updates and trending\ntopics, spoken section by section with live captions.",
			keyword("personal briefing"),
		),
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadOptions(cmd)
		},
		RunE: execute,
	}

	cfg briefing.Config
)

// loadOptions merges defaults, the config file, environment variables and
// flags into the final configuration, in that order of precedence.
func loadOptions(cmd *cobra.Command) error {
	var err error
	cfg, err = briefing.LoadConfig()
	if err != nil {
		return err
	}

	// Config file values sit between env defaults and explicit flags.
	if v := viper.GetString("server_url"); v != "" {
		cfg.ServerURL = v
	}
	if v := viper.GetString("api_token"); v != "" {
		cfg.APIToken = v
	}
	if v := viper.GetString("voice"); v != "" {
		cfg.Voice = v
	}
	if viper.IsSet("speed") && viper.GetFloat64("speed") != 0 {
		cfg.Speed = viper.GetFloat64("speed")
	}
	if v := viper.GetString("tone_of_voice"); v != "" {
		cfg.ToneOfVoice = v
	}
	if v := viper.GetString("user_name"); v != "" {
		cfg.UserName = v
	}
	if viper.IsSet("trend_sections") {
		cfg.TrendSections = viper.GetInt("trend_sections")
	}
	if viper.IsSet("interlude") {
		cfg.InterludeEnabled = viper.GetBool("interlude")
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if v := viper.GetString("cache.dir"); v != "" {
		cfg.Cache.Dir = v
	}
	if viper.IsSet("cache.max_size_mb") {
		cfg.Cache.MaxSizeMB = viper.GetInt("cache.max_size_mb")
	}

	if cmd.Flags().Changed("server") {
		cfg.ServerURL = serverURL
	}
	if cmd.Flags().Changed("token") {
		cfg.APIToken = apiToken
	}
	if cmd.Flags().Changed("voice") {
		cfg.Voice = voice
	}
	if cmd.Flags().Changed("speed") {
		cfg.Speed = speed
	}
	if cmd.Flags().Changed("trends") {
		cfg.TrendSections = trends
	}
	if cmd.Flags().Changed("name") {
		cfg.UserName = userName
	}
	if cmd.Flags().Changed("tone") {
		cfg.ToneOfVoice = tone
	}
	if noInterlude {
		cfg.InterludeEnabled = false
	}

	return cfg.Validate()
}

func execute(*cobra.Command, []string) error {
	logger := log.Default()

	useTUI := !plain && term.IsTerminal(int(os.Stdout.Fd()))
	if useTUI {
		// Keep log output off the alternate screen.
		if f := openLogFile(); f != nil {
			defer f.Close() //nolint:errcheck
			logger.SetOutput(f)
		} else {
			logger.SetOutput(io.Discard)
		}
	}

	var audioCache *cache.Cache
	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			scope := gap.NewScope(gap.User, "ownbrief")
			if d, err := scope.CacheDir(); err == nil {
				dir = filepath.Join(d, "speech")
			}
		}
		if dir != "" {
			c, err := cache.New(dir, int64(cfg.Cache.MaxSizeMB)<<20, logger)
			if err != nil {
				logger.Warn("speech cache disabled", "error", err)
			} else {
				audioCache = c
			}
		}
	}

	client := service.NewClient(cfg.ServerURL, cfg.APIToken, cfg.GenerationTimeout, logger)
	scripts := service.NewScriptClient(client)
	speech := service.NewSpeechClient(client, cfg.Voice, cfg.Speed, audioCache)

	player, err := audio.NewPlayer(logger)
	if err != nil {
		return fmt.Errorf("unable to open audio output: %w", err)
	}
	defer player.Close() //nolint:errcheck

	var ambient briefing.Ambient = briefing.NopAmbient{}
	if cfg.InterludeEnabled {
		ambient = fetchInterlude(client, logger)
	}

	sections := briefing.DefaultSections(cfg.TrendSections)
	pipeline, err := briefing.New(cfg, sections, briefing.Deps{
		Scripts: scripts,
		Speech:  speech,
		Player:  player,
		Ambient: ambient,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		pipeline.Stop()
	}()

	if err := pipeline.Start(ctx); err != nil {
		return fmt.Errorf("unable to start briefing: %w", err)
	}

	if useTUI {
		if _, err := ui.NewProgram(pipeline, len(sections)).Run(); err != nil {
			return fmt.Errorf("unable to run tui program: %w", err)
		}
		pipeline.Stop()
		<-pipeline.Done()
		return pipeline.Err()
	}

	return runPlain(pipeline)
}

// runPlain consumes the event stream without a TUI, printing each section's
// transcript as it plays. Used for non-terminal stdout and --plain.
func runPlain(p *briefing.Pipeline) error {
	for ev := range p.Events() {
		switch ev.Kind {
		case briefing.EventSectionStarted:
			fmt.Printf("\n## %s\n\n%s\n", ev.Title, ev.Script)
		case briefing.EventPreparing:
			fmt.Printf("\n… preparing %s\n", ev.Title)
		case briefing.EventCompleted:
			fmt.Println("\nBriefing complete.")
		case briefing.EventStopped:
			fmt.Println("\nStopped.")
		case briefing.EventFailed:
			fmt.Fprintf(os.Stderr, "\nBriefing failed: %v\n", ev.Err)
		}
	}
	<-p.Done()
	return p.Err()
}

// fetchInterlude downloads and decodes the background track. Failures fall
// back to silence rather than aborting the briefing.
func fetchInterlude(client *service.Client, logger *log.Logger) briefing.Ambient {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	buf, err := service.NewInterludeClient(client).Fetch(ctx)
	if err != nil {
		logger.Warn("interlude unavailable, continuing without it", "error", err)
		return briefing.NopAmbient{}
	}
	interlude, err := audio.NewInterlude(buf, logger)
	if err != nil {
		logger.Warn("interlude playback unavailable", "error", err)
		return briefing.NopAmbient{}
	}
	return interlude
}

func openLogFile() *os.File {
	scope := gap.NewScope(gap.User, "ownbrief")
	dir, err := scope.CacheDir()
	if err != nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, "ownbrief.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil
	}
	return f
}

func setupLog() {
	log.SetReportTimestamp(false)
	if debug || viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
		log.SetReportCaller(true)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")
	rootCmd.Flags().StringVar(&serverURL, "server", "", "briefing server URL")
	rootCmd.Flags().StringVar(&apiToken, "token", "", "briefing server API token")
	rootCmd.Flags().StringVarP(&voice, "voice", "v", "", "synthesis voice")
	rootCmd.Flags().Float64VarP(&speed, "speed", "s", 0, "playback speed (0.5 to 2.0)")
	rootCmd.Flags().IntVarP(&trends, "trends", "t", -1, "number of trending-topic sections")
	rootCmd.Flags().StringVar(&userName, "name", "", "name used to address you")
	rootCmd.Flags().StringVar(&tone, "tone", "", "tone-of-voice hint for script generation")
	rootCmd.Flags().BoolVarP(&plain, "plain", "p", false, "print the transcript instead of the tui")
	rootCmd.Flags().BoolVar(&noInterlude, "no-interlude", false, "disable the background interlude")

	// Flags merge in loadOptions via Changed; only debug lives in viper.
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	cobra.OnInitialize(setupLog)

	rootCmd.AddCommand(configCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "ownbrief")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find the configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "ownbrief")}, dirs...)
	}

	if c := os.Getenv("OWNBRIEF_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("ownbrief")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("ownbrief")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	if len(dirs) > 0 {
		configFile = filepath.Join(dirs[0], "ownbrief.yml")
	}
}
