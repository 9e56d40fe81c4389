// Package commands implements the gamekitctl commands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gamekit/adapters/jsonfile"
	"gamekit/config"
	"gamekit/core"
	"gamekit/engine"
	"gamekit/gamify"
	"gamekit/metrics"
	sdk "gamekit/sdk/go"
)

const version = "0.1.0"

// options holds the persistent flags shared by every command.
type options struct {
	server      string
	apiKey      string
	user        string
	name        string
	catalogFile string
	prefsFile   string
	maxLogins   int
	verbosity   int
	logFormat   string
	jsonOut     bool

	// set by watch --metrics-addr
	metrics *metrics.Metrics
}

// NewRootCommand builds the gamekitctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "gamekitctl",
		Short: "Drive game services against a gamekit server",
		Long: `gamekitctl signs in as one player and talks to a gamekit server through the
same GameServices facade a game client uses: score loads go through the serialized
score request queue and login prompts are counted in a local preferences file.

Leaderboard and achievement arguments are catalog names. Without --catalog each
name doubles as the platform id.`,
		Example: `  # Show the scores around you
  gamekitctl --user alice scores global

  # First ten weekly scores among friends
  gamekitctl --user alice scores global --from 1 --count 10 --time week --scope friends

  # Report a score and unlock an achievement
  gamekitctl --user alice report global 1200
  gamekitctl --user alice unlock first_win`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(cmd.ErrOrStderr(), opts)
			if cmd == cmd.Root() || cmd.Name() == "help" {
				return nil
			}
			if opts.user == "" {
				return errors.New("--user is required (or set GAMEKIT_USER)")
			}
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.SetVersionTemplate("gamekitctl version {{.Version}}\n")

	home, _ := os.UserHomeDir()
	pf := root.PersistentFlags()
	pf.StringVar(&opts.server, "server", envOr("GAMEKIT_SERVER_URL", "http://localhost:8080/api"), "server base URL")
	pf.StringVar(&opts.apiKey, "api-key", os.Getenv("GAMEKIT_API_KEY"), "API key sent as X-API-Key")
	pf.StringVarP(&opts.user, "user", "u", os.Getenv("GAMEKIT_USER"), "player id to sign in as")
	pf.StringVar(&opts.name, "name", "", "display name registered on sign in")
	pf.StringVar(&opts.catalogFile, "catalog", os.Getenv("GAMEKIT_CATALOG_FILE"), "YAML catalog mapping names to ids")
	pf.StringVar(&opts.prefsFile, "prefs", filepath.Join(home, ".gamekit", "prefs.json"), "local preferences file")
	pf.IntVar(&opts.maxLogins, "max-logins", 3, "give up signing in after this many attempts (0 = unlimited)")
	pf.CountVarP(&opts.verbosity, "verbose", "v", "increase verbosity level (e.g., -v, -vv)")
	pf.StringVar(&opts.logFormat, "log-format", "text", "log format: text, json")
	pf.BoolVar(&opts.jsonOut, "json", false, "output in JSON format")

	root.AddCommand(
		newScoresCommand(opts),
		newLocalScoreCommand(opts),
		newReportCommand(opts),
		newUnlockCommand(opts),
		newFriendsCommand(opts),
		newWatchCommand(opts),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// setupLogging configures the default logger based on verbosity flags.
func setupLogging(w io.Writer, opts *options) {
	level := "warn"
	switch {
	case opts.verbosity == 1:
		level = "info"
	case opts.verbosity >= 2:
		level = "debug"
	}
	logger := config.LoggingConfig{Level: level, Format: opts.logFormat}.NewLoggerTo(w)
	slog.SetDefault(logger)
}

// session is a signed-in GameServices plus the client it talks through.
type session struct {
	client  *sdk.Client
	catalog *core.Catalog
	gs      *engine.GameServices
}

func (s *session) Close() { s.gs.Close() }

// openSession signs in through ManagedInit. names are the catalog names the command
// will use; without a catalog file they are mapped to themselves.
func openSession(cmd *cobra.Command, opts *options, leaderboards, achievements []string) (*session, error) {
	var clientOpts []sdk.Option
	if opts.apiKey != "" {
		clientOpts = append(clientOpts, sdk.WithAPIKey(opts.apiKey))
	}
	client, err := sdk.NewClient(opts.server, clientOpts...)
	if err != nil {
		return nil, err
	}

	catalog, err := loadCatalog(opts.catalogFile, leaderboards, achievements)
	if err != nil {
		return nil, err
	}
	prefs, err := jsonfile.New(opts.prefsFile)
	if err != nil {
		return nil, fmt.Errorf("open prefs: %w", err)
	}

	builder := []gamify.Option{
		gamify.WithBackend(client.Backend(core.UserProfile{ID: core.UserID(opts.user), Name: opts.name})),
		gamify.WithCatalog(catalog),
		gamify.WithPrefs(prefs),
		gamify.WithMaxLoginRequests(opts.maxLogins),
		gamify.WithQueueDispatch(engine.DispatchAsync),
		gamify.WithLogger(slog.Default()),
	}
	if opts.metrics != nil {
		builder = append(builder, gamify.WithQueueObserver(opts.metrics))
	}
	gs := gamify.New(builder...)

	if _, err := gs.ManagedInit(cmd.Context()); err != nil {
		gs.Close()
		return nil, err
	}
	if !gs.IsInitialized() {
		gs.Close()
		return nil, fmt.Errorf("not signed in: %d login attempts used, remove %s to retry", opts.maxLogins, opts.prefsFile)
	}
	return &session{client: client, catalog: catalog, gs: gs}, nil
}

func loadCatalog(path string, leaderboards, achievements []string) (*core.Catalog, error) {
	if path != "" {
		return config.LoadCatalogFile(path)
	}
	c := &core.Catalog{}
	for _, name := range leaderboards {
		c.Leaderboards = append(c.Leaderboards, core.Leaderboard{Name: name, ID: name})
	}
	for _, name := range achievements {
		c.Achievements = append(c.Achievements, core.Achievement{Name: name, ID: name})
	}
	return c, nil
}
