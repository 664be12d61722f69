// Package version compares the local build marker with the latest commit of
// the upstream repository on GitHub.
package version

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/antoto2021/nexus/internal/cache"
	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the GitHub REST API.
const DefaultBaseURL = "https://api.github.com"

const shortSHA = 7

// ErrRepoNotFound is returned when GitHub does not answer with a commit.
var ErrRepoNotFound = errors.New("repository not found")

// Config configures a Checker.
type Config struct {
	BaseURL string
	Owner   string
	Repo    string
	Branch  string
	Timeout time.Duration
	// TTL is how long a remote hash is reused before asking GitHub again.
	TTL time.Duration
}

// Status is the result of a check.
type Status struct {
	Local           string
	Remote          string
	UpdateAvailable bool
	Cached          bool
}

// Checker looks up the latest commit of a branch.
type Checker struct {
	client *resty.Client
	config Config
	cache  *cache.ExpiringCache[string]
	logger *log.Logger
}

// New creates a Checker. cache may be nil to disable caching.
func New(config Config, c *cache.ExpiringCache[string], logger *log.Logger) *Checker {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Branch == "" {
		config.Branch = "main"
	}
	if logger == nil {
		logger = log.Default()
	}
	client := resty.New().
		SetBaseURL(config.BaseURL).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("User-Agent", "nexus")
	if config.Timeout > 0 {
		client.SetTimeout(config.Timeout)
	}
	return &Checker{
		client: client,
		config: config,
		cache:  c,
		logger: logger.WithPrefix("version"),
	}
}

type commit struct {
	SHA string `json:"sha"`
}

func (c *Checker) cacheKey() string {
	return fmt.Sprintf("github-%s-%s-%s", c.config.Owner, c.config.Repo, c.config.Branch)
}

// Remote returns the short hash of the branch head.
func (c *Checker) Remote(ctx context.Context) (string, bool, error) {
	if c.cache != nil && c.config.TTL > 0 {
		hash, err := c.cache.Get(c.cacheKey())
		if err == nil && hash != "" {
			return hash, true, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Debug("could not read cached version", "err", err)
		}
	}

	var result commit
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"owner":  c.config.Owner,
			"repo":   c.config.Repo,
			"branch": c.config.Branch,
		}).
		SetResult(&result).
		Get("/repos/{owner}/{repo}/commits/{branch}")
	if err != nil {
		return "", false, fmt.Errorf("check version: %w", err)
	}
	if resp.IsError() || result.SHA == "" {
		return "", false, fmt.Errorf("%w: %s/%s (%s)", ErrRepoNotFound, c.config.Owner, c.config.Repo, resp.Status())
	}

	hash := result.SHA
	if len(hash) > shortSHA {
		hash = hash[:shortSHA]
	}
	if c.cache != nil && c.config.TTL > 0 {
		if err := c.cache.Set(c.cacheKey(), hash, c.config.TTL); err != nil {
			c.logger.Debug("could not cache version", "err", err)
		}
	}
	return hash, false, nil
}

// Check compares local with the branch head.
func (c *Checker) Check(ctx context.Context, local string) (Status, error) {
	remote, cached, err := c.Remote(ctx)
	if err != nil {
		return Status{Local: local}, err
	}
	return Status{
		Local:           local,
		Remote:          remote,
		UpdateAvailable: remote != local,
		Cached:          cached,
	}, nil
}
