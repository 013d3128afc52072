package internal

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every knob the resolver and the bot consume. It is
// assembled once at startup and passed into constructors; nothing in
// the resolver reads process environment on its own, so resolution
// behavior stays deterministic under test.
type Config struct {
	// Telegram credentials.
	BotToken string `yaml:"bot_token"`
	APIID    int32  `yaml:"api_id"`
	APIHash  string `yaml:"api_hash"`

	// Network.
	ProxyURL       string `yaml:"proxy_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent"`

	// Pre-authenticated cookies, Netscape format. Needed only when the
	// upstream answers with its verification-required code.
	CookieFile string `yaml:"cookie_file"`

	// Upstream endpoints. PageBase serves the share page; APIBases is
	// the static fallback host list for listing and download calls,
	// tried once each per resolution.
	PageBase string   `yaml:"page_base"`
	APIBases []string `yaml:"api_bases"`

	// Upstream constants that have drifted across site revisions.
	VerifyErrno int      `yaml:"verify_errno"`
	LinkFields  []string `yaml:"link_fields"`

	// Bot transfer limits.
	UploadLimit int64  `yaml:"upload_limit"`
	CacheDir    string `yaml:"cache_dir"`
	CacheTTL    int    `yaml:"cache_ttl_seconds"`

	// Logging.
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	Debug    bool   `yaml:"debug"`
	Quiet    bool   `yaml:"quiet"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		TimeoutSeconds: 30,
		UserAgent:      "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Mobile Safari/537.36",
		PageBase:       "https://www.terabox.app",
		APIBases: []string{
			"https://www.terabox.com",
			"https://www.1024terabox.com",
			"https://www.terabox.app",
		},
		VerifyErrno: -9,
		LinkFields:  []string{"dlink", "list", "download_link"},
		UploadLimit: 50 * 1024 * 1024,
		CacheDir:    "cache",
		CacheTTL:    300,
		LogLevel:    "info",
	}
}

// LoadFile merges settings from a YAML file into the config. A missing
// file is not an error; a malformed one is.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return NewConfigError("config_file", err.Error())
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return NewConfigError("config_file", "malformed YAML: "+err.Error())
	}
	return nil
}

// LoadFromEnv overlays TERAGRAB_* environment variables. Telegram
// credentials also accept the bare names used by common bot hosts.
func (c *Config) LoadFromEnv() {
	if v := firstEnv("TERAGRAB_TOKEN", "TOKEN"); v != "" {
		c.BotToken = v
	}
	if v := firstEnv("TERAGRAB_API_HASH", "API_HASH"); v != "" {
		c.APIHash = v
	}
	if v := firstEnv("TERAGRAB_API_ID", "API_ID"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			c.APIID = int32(id)
		}
	}
	if v := os.Getenv("TERAGRAB_PROXY"); v != "" {
		c.ProxyURL = v
	}
	if v := os.Getenv("TERAGRAB_COOKIES"); v != "" {
		c.CookieFile = v
	}
	if v := os.Getenv("TERAGRAB_TIMEOUT"); v != "" {
		if t, err := strconv.Atoi(v); err == nil && t > 0 {
			c.TimeoutSeconds = t
		}
	}
	if v := os.Getenv("TERAGRAB_UPLOAD_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.UploadLimit = n
		}
	}
	if v := os.Getenv("TERAGRAB_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("TERAGRAB_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv("TERAGRAB_DEBUG"); v != "" {
		c.Debug = v == "true" || v == "1"
	}
	if v := os.Getenv("TERAGRAB_QUIET"); v != "" {
		c.Quiet = v == "true" || v == "1"
	}
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks the parts of the config the resolver depends on.
// Telegram credentials are checked separately by the bot, so the
// resolve/get CLI paths work without them.
func (c *Config) Validate() error {
	if c.TimeoutSeconds < 1 {
		return NewConfigError("timeout_seconds", "must be positive")
	}
	if c.PageBase == "" {
		return NewConfigError("page_base", "must not be empty")
	}
	if len(c.APIBases) == 0 {
		return NewConfigError("api_bases", "need at least one API host")
	}
	if len(c.APIBases) > 3 {
		return NewConfigError("api_bases", "at most three fallback hosts are tried per call")
	}
	if c.UploadLimit < 1 {
		return NewConfigError("upload_limit", "must be positive")
	}
	if len(c.LinkFields) == 0 {
		return NewConfigError("link_fields", "need at least one link field name")
	}
	return nil
}

// ValidateBot additionally checks the Telegram credentials.
func (c *Config) ValidateBot() error {
	if c.BotToken == "" {
		return NewConfigError("bot_token", "missing bot token (TERAGRAB_TOKEN)")
	}
	if c.APIID == 0 {
		return NewConfigError("api_id", "missing Telegram API id (TERAGRAB_API_ID)")
	}
	if c.APIHash == "" {
		return NewConfigError("api_hash", "missing Telegram API hash (TERAGRAB_API_HASH)")
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
