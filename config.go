package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/adrg/xdg"
	"github.com/antoto2021/nexus/internal/router"
	"github.com/caarlos0/env/v9"
	"github.com/charmbracelet/x/exp/ordered"
	"github.com/joho/godotenv"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

var help = map[string]string{
	"model":            "Model to try first, before the scanned and fallback models.",
	"fallback-models":  "Models tried, in order, when the scan failed and the others did not answer.",
	"transport":        "How to reach the Gemini API: rest or sdk.",
	"base-url":         "Override the Gemini API endpoint.",
	"grounding":        "Let the model ground its answers with Google Search.",
	"system-prompt":    "System prompt template. Use {{ join .Files \", \" }} for the context file names.",
	"max-input-chars":  "Maximum number of characters of context files injected into the system prompt.",
	"max-tokens":       "Maximum number of tokens in response.",
	"temp":             "Temperature (randomness) of results, from 0.0 to 2.0, -1.0 to disable.",
	"topp":             "TopP, an alternative to temperature that narrows response, from 0.0 to 1.0, -1.0 to disable.",
	"topk":             "TopK, only sample from the top K options for each subsequent token, -1 to disable.",
	"thinking-budget":  "Thinking budget in tokens for models that support it, 0 to use the model default.",
	"timeout":          "Timeout for each request to the API.",
	"streaming":        "Use the streaming endpoint for --stream. When false the reply is fetched whole and printed at once.",
	"raw":              "Print the cleaned reply without rendering it.",
	"quiet":            "Quiet mode (hide the spinner while loading and stderr messages for success).",
	"help":             "Show help and exit.",
	"version":          "Show version and exit.",
	"settings":         "Open settings in your $EDITOR.",
	"reset-settings":   "Backup your old settings file and reset everything to the defaults.",
	"continue":         "Continue from the last response or a given title or ID.",
	"continue-last":    "Continue from the last response.",
	"no-cache":         "Disables caching of the prompt/response.",
	"title":            "Saves the current conversation with the given title.",
	"file":             "Add a context file to the conversation (repeatable).",
	"copy":             "Copy the reply to the clipboard.",
	"stream":           "Stream the reply as it is generated instead of waiting for it.",
	"verbose":          "Log what the router does.",
	"log-level":        "Log level: debug, info, warn or error.",
	"cache-path":       "Directory where conversations and state are stored.",
	"github":           "Repository checked by `nexus update`.",
	"update-check-ttl": "How long the result of an update check is reused.",
	"serve":            "Settings of the local HTTP relay started by `nexus serve`.",
	"scan-timeout":     "Time allowed for a whole model scan started from the web front-end.",
}

// Transports.
const (
	transportREST = "rest"
	transportSDK  = "sdk"
)

// GitHubConfig is the repository checked for updates.
type GitHubConfig struct {
	Owner  string `yaml:"owner" env:"OWNER"`
	Repo   string `yaml:"repo" env:"REPO"`
	Branch string `yaml:"branch" env:"BRANCH"`
}

// ServeConfig configures `nexus serve`.
type ServeConfig struct {
	Addr        string        `yaml:"addr" env:"ADDR"`
	Rate        float64       `yaml:"rate" env:"RATE"`
	Burst       int           `yaml:"burst" env:"BURST"`
	ScanTimeout time.Duration `yaml:"scan-timeout" env:"SCAN_TIMEOUT"`
}

// Config holds the main configuration and is mapped to the YAML settings file.
type Config struct {
	Model          string        `yaml:"default-model" env:"MODEL"`
	FallbackModels []string      `yaml:"fallback-models" env:"FALLBACK_MODELS" envSeparator:","`
	Transport      string        `yaml:"transport" env:"TRANSPORT"`
	BaseURL        string        `yaml:"base-url" env:"BASE_URL"`
	Grounding      bool          `yaml:"grounding" env:"GROUNDING"`
	SystemPrompt   string        `yaml:"system-prompt" env:"SYSTEM_PROMPT"`
	MaxInputChars  int64         `yaml:"max-input-chars" env:"MAX_INPUT_CHARS"`
	MaxTokens      int64         `yaml:"max-tokens" env:"MAX_TOKENS"`
	Temperature    float64       `yaml:"temp" env:"TEMP"`
	TopP           float64       `yaml:"topp" env:"TOPP"`
	TopK           int64         `yaml:"topk" env:"TOPK"`
	ThinkingBudget int           `yaml:"thinking-budget" env:"THINKING_BUDGET"`
	Timeout        time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Streaming      bool          `yaml:"streaming" env:"STREAMING"`
	Raw            bool          `yaml:"raw" env:"RAW"`
	Quiet          bool          `yaml:"quiet" env:"QUIET"`
	NoCache        bool          `yaml:"no-cache" env:"NO_CACHE"`
	CachePath      string        `yaml:"cache-path" env:"CACHE_PATH"`
	LogLevel       string        `yaml:"log-level" env:"LOG_LEVEL"`
	GitHub         GitHubConfig  `yaml:"github" envPrefix:"GITHUB_"`
	UpdateCheckTTL time.Duration `yaml:"update-check-ttl" env:"UPDATE_CHECK_TTL"`
	Serve          ServeConfig   `yaml:"serve" envPrefix:"SERVE_"`

	Files         []string
	Stream        bool
	Copy          bool
	Verbose       bool
	ShowHelp      bool
	ResetSettings bool
	Version       bool
	Settings      bool
	SettingsPath  string
	ContinueLast  bool
	Continue      string
	Title         string
}

func defaultConfig() Config {
	return Config{
		FallbackModels: router.DefaultFallbackModels,
		Transport:      transportREST,
		MaxInputChars:  24500,
		Temperature:    -1,
		TopP:           -1,
		TopK:           -1,
		Timeout:        time.Minute,
		Streaming:      true,
		LogLevel:       "warn",
		GitHub: GitHubConfig{
			Owner:  "antoto2021",
			Repo:   "Appli-agent-ia",
			Branch: "main",
		},
		UpdateCheckTTL: time.Hour,
		Serve: ServeConfig{
			Addr:        "127.0.0.1:8787",
			Rate:        2,
			Burst:       10,
			ScanTimeout: 5 * time.Minute,
		},
	}
}

func ensureConfig() (Config, error) {
	c := defaultConfig()
	sp, err := xdg.ConfigFile(filepath.Join("nexus", "nexus.yml"))
	if err != nil {
		return c, nexusError{err, "Could not find settings path."}
	}
	c.SettingsPath = sp

	dir := filepath.Dir(sp)
	if dirErr := os.MkdirAll(dir, 0o700); dirErr != nil { //nolint:mnd
		return c, nexusError{dirErr, "Could not create cache directory."}
	}

	if dirErr := writeConfigFile(sp); dirErr != nil {
		return c, dirErr
	}
	content, err := os.ReadFile(sp)
	if err != nil {
		return c, nexusError{err, "Could not read settings file."}
	}
	if err := yaml.Unmarshal(content, &c); err != nil {
		return c, nexusError{err, "Could not parse settings file."}
	}

	if err := loadDotEnv(".env", filepath.Join(dir, ".env")); err != nil {
		return c, nexusError{err, "Could not read .env file."}
	}
	if err := env.ParseWithOptions(&c, env.Options{Prefix: "NEXUS_"}); err != nil {
		return c, nexusError{err, "Could not parse environment into settings file."}
	}

	if c.CachePath == "" {
		c.CachePath = filepath.Join(xdg.DataHome, "nexus")
	}
	if err := os.MkdirAll(c.CachePath, 0o700); err != nil { //nolint:mnd
		return c, nexusError{err, "Could not create cache directory."}
	}

	if err := c.normalize(); err != nil {
		return c, err
	}
	return c, nil
}

// normalize clamps numeric settings into the ranges the API accepts and
// checks the enumerations.
func (c *Config) normalize() error {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	if c.Transport == "" {
		c.Transport = transportREST
	}
	if c.Transport != transportREST && c.Transport != transportSDK {
		return nexusError{
			err:    fmt.Errorf("unknown transport %q", c.Transport),
			reason: fmt.Sprintf("Transport must be %s.", orList(transportREST, transportSDK)),
		}
	}
	if c.Temperature >= 0 {
		c.Temperature = ordered.Clamp(c.Temperature, 0, 2)
	}
	if c.TopP >= 0 {
		c.TopP = ordered.Clamp(c.TopP, 0, 1)
	}
	c.MaxTokens = ordered.Max(c.MaxTokens, 0)
	c.MaxInputChars = ordered.Max(c.MaxInputChars, 0)
	if c.Timeout <= 0 {
		c.Timeout = time.Minute
	}
	if len(c.FallbackModels) == 0 {
		c.FallbackModels = router.DefaultFallbackModels
	}
	return nil
}

// loadDotEnv loads the given .env files, skipping the ones that do not exist.
// Variables already set in the environment win.
func loadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...) //nolint:wrapcheck
}

func writeConfigFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return createConfigFile(path)
	} else if err != nil {
		return nexusError{err, "Could not stat path."}
	}
	return nil
}

func createConfigFile(path string) error {
	tmpl := template.Must(template.New("config").Parse(configTemplate))

	f, err := os.Create(path)
	if err != nil {
		return nexusError{err, "Could not create configuration file."}
	}
	defer func() { _ = f.Close() }()

	m := struct {
		Config Config
		Help   map[string]string
	}{
		Config: defaultConfig(),
		Help:   help,
	}
	if err := tmpl.Execute(f, m); err != nil {
		return nexusError{err, "Could not render template."}
	}
	return nil
}

func useLine() string {
	appName := filepath.Base(os.Args[0])

	if stdoutRenderer().ColorProfile() == termenv.TrueColor {
		appName = stdoutStyles().AppName.Render(appName)
	}

	return fmt.Sprintf(
		"%s %s",
		appName,
		stdoutStyles().CliArgs.Render("[OPTIONS] [PROMPT]"),
	)
}

func usageFunc(cmd *cobra.Command) error {
	fmt.Printf("A freelance job-hunting assistant backed by Gemini.\n\n")
	fmt.Printf(
		"Usage:\n  %s\n\n",
		useLine(),
	)
	if cmd.HasAvailableSubCommands() {
		fmt.Println("Commands:")
		for _, sub := range cmd.Commands() {
			if !sub.IsAvailableCommand() {
				continue
			}
			fmt.Printf(
				"  %-20s %s\n",
				stdoutStyles().Flag.Render(sub.Name()),
				stdoutStyles().FlagDesc.Render(sub.Short),
			)
		}
		fmt.Println()
	}
	fmt.Println("Options:")
	cmd.Flags().VisitAll(func(f *flag.Flag) {
		if f.Hidden {
			return
		}
		if f.Shorthand == "" {
			fmt.Printf(
				"  %-44s %s\n",
				stdoutStyles().Flag.Render("--"+f.Name),
				stdoutStyles().FlagDesc.Render(f.Usage),
			)
		} else {
			fmt.Printf(
				"  %s%s %-40s %s\n",
				stdoutStyles().Flag.Render("-"+f.Shorthand),
				stdoutStyles().FlagComma,
				stdoutStyles().Flag.Render("--"+f.Name),
				stdoutStyles().FlagDesc.Render(f.Usage),
			)
		}
	})
	desc, example := randomExample()
	fmt.Printf(
		"\nExample:\n  %s\n  %s\n",
		stdoutStyles().Comment.Render("# "+desc),
		example,
	)

	return nil
}
