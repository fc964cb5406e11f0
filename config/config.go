// Package config loads settings from defaults, an optional config file, CYD_
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"cyd/engine"
)

const EnvPrefix = "CYD"

type Config struct {
	FEN       string        `mapstructure:"fen"`
	Moves     string        `mapstructure:"moves"`
	Depth     int           `mapstructure:"depth"`
	Threads   int           `mapstructure:"threads"`
	BookPath  string        `mapstructure:"book"`
	Debug     bool          `mapstructure:"debug"`
	LogLevel  string        `mapstructure:"log-level"`
	TimeLimit time.Duration `mapstructure:"time-limit"`
	NatsURL   string        `mapstructure:"nats-url"`
	Subject   string        `mapstructure:"subject"`
	Remote    bool          `mapstructure:"remote"`

	Search engine.SearchOptions `mapstructure:"search"`
}

// DefaultConfig is what Load returns when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Depth:    5,
		Threads:  1,
		BookPath: "opening_book.json",
		LogLevel: "info",
		NatsURL:  "nats://127.0.0.1:4222",
		Subject:  "cyd.findmove",
		Search:   engine.DefaultSearchOptions(),
	}
}

// flag name -> viper key, for flags that configure nested search options
var searchFlags = map[string]string{
	"quiescence-depth":   "search.quiescence_depth",
	"null-move":          "search.null_move.enabled",
	"null-reduction":     "search.null_move.reduction",
	"null-max-depth":     "search.null_move.max_depth",
	"psq-weight":         "search.eval.psq",
	"pinned-weight":      "search.eval.pinned",
	"king-safety-weight": "search.eval.king_safety",
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("fen", d.FEN)
	v.SetDefault("moves", d.Moves)
	v.SetDefault("depth", d.Depth)
	v.SetDefault("threads", d.Threads)
	v.SetDefault("book", d.BookPath)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("time-limit", d.TimeLimit)
	v.SetDefault("nats-url", d.NatsURL)
	v.SetDefault("subject", d.Subject)
	v.SetDefault("remote", d.Remote)

	s := d.Search
	v.SetDefault("search.quiescence_depth", s.QuiescenceDepth)
	v.SetDefault("search.null_move.enabled", s.NullMove.Enabled)
	v.SetDefault("search.null_move.reduction", s.NullMove.Reduction)
	v.SetDefault("search.null_move.max_depth", s.NullMove.MaxDepth)
	v.SetDefault("search.eval.psq", s.Params.PSQ)
	v.SetDefault("search.eval.pinned", s.Params.Pinned)
	v.SetDefault("search.eval.king_safety", s.Params.KingSafety)
}

// NewFlagSet declares every flag Load understands.
func NewFlagSet(name string) *pflag.FlagSet {
	d := DefaultConfig()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a config file (yaml, json or toml)")
	fs.StringP("fen", "f", d.FEN, "FEN to start the search from; empty means the start position")
	fs.StringP("moves", "m", d.Moves, "moves played from the start position, space or comma separated")
	fs.IntP("depth", "d", d.Depth, "search depth in plies")
	fs.IntP("threads", "n", d.Threads, "number of search workers")
	fs.String("book", d.BookPath, "opening book file; missing or malformed books are ignored")
	fs.Bool("debug", d.Debug, "play the game out from the position instead of printing one move")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error, disabled)")
	fs.Duration("time-limit", d.TimeLimit, "stop deepening once this much time is spent; 0 means no limit")
	fs.String("nats-url", d.NatsURL, "NATS server URL")
	fs.String("subject", d.Subject, "NATS subject served by the daemon")
	fs.Bool("remote", d.Remote, "ask a running daemon for the move instead of searching locally")

	s := d.Search
	fs.Int("quiescence-depth", s.QuiescenceDepth, "extra plies of capture/check search at the horizon")
	fs.Bool("null-move", s.NullMove.Enabled, "enable null-move pruning")
	fs.Int("null-reduction", s.NullMove.Reduction, "depth reduction of the null-move search")
	fs.Int("null-max-depth", s.NullMove.MaxDepth, "null move is only tried below this depth")
	fs.Float64("psq-weight", s.Params.PSQ, "piece-square weight")
	fs.Float64("pinned-weight", s.Params.Pinned, "pinned piece weight")
	fs.Float64("king-safety-weight", s.Params.KingSafety, "king safety weight")
	return fs
}

// Load parses args against fs and layers the result over the config file,
// the environment and the defaults.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		key := f.Name
		if nested, ok := searchFlags[f.Name]; ok {
			key = nested
		}
		if f.Name == "config" {
			return
		}
		bindErr = errors.Join(bindErr, v.BindPFlag(key, f))
	})
	if bindErr != nil {
		return nil, bindErr
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Depth < 1 {
		return fmt.Errorf("depth must be positive, got %d", c.Depth)
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be positive, got %d", c.Threads)
	}
	if c.Search.QuiescenceDepth < 0 {
		return fmt.Errorf("quiescence depth must not be negative, got %d", c.Search.QuiescenceDepth)
	}
	if c.Search.NullMove.Reduction < 1 {
		return fmt.Errorf("null-move reduction must be positive, got %d", c.Search.NullMove.Reduction)
	}
	return nil
}

// SearchOptions returns the search options with a timer started for this
// search when a time limit is configured.
func (c *Config) SearchOptions() engine.SearchOptions {
	opts := c.Search
	if c.TimeLimit > 0 {
		opts.Timer = engine.NewTimer(c.TimeLimit)
	}
	return opts
}

// ApplyLogLevel sets zerolog's global level from the config.
func (c *Config) ApplyLogLevel() error {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)
	return nil
}
