package cmd

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"teragrab/bot"
	"teragrab/internal"
	"teragrab/resolver"
	"teragrab/utils"
)

var (
	configPath  string
	cookiesPath string
	proxyURL    string
	timeoutSecs int
	logLevel    string
	logFile     string
	debug       bool
	quiet       bool

	config *internal.Config
)

var rootCmd = &cobra.Command{
	Use:     "teragrab",
	Short:   "Resolve and fetch TeraBox share links",
	Version: "v1.0.0",
	Long: `TeraGrab resolves public TeraBox share links into direct download
URLs. Run without a subcommand to start the Telegram bot; use the
resolve and get subcommands for one-off CLI work.

Examples:
  teragrab                                  # start the bot (needs TOKEN, API_ID, API_HASH)
  teragrab resolve https://terabox.com/s/1AbC123
  teragrab resolve --json https://1024terabox.com/s/1AbC123
  teragrab get -o video.mp4 -r 5M https://terabox.com/s/1AbC123

Environment Variables:
  TERAGRAB_TOKEN / TOKEN       Telegram bot token
  TERAGRAB_API_ID / API_ID     Telegram application id
  TERAGRAB_API_HASH / API_HASH Telegram application hash
  TERAGRAB_PROXY               Proxy URL (http, https or socks5)
  TERAGRAB_COOKIES             Path to a Netscape cookie file
  TERAGRAB_TIMEOUT             HTTP timeout in seconds`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfiguration(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if err := internal.InitLogger(config); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		internal.LogDebug("configuration loaded: timeout=%ds, debug=%v, quiet=%v",
			config.TimeoutSeconds, config.Debug, config.Quiet)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := resolver.New(config)
		if err != nil {
			return err
		}
		b, err := bot.New(config, r)
		if err != nil {
			return err
		}
		internal.LogInfo("starting bot")
		b.Run()
		return nil
	},
}

var (
	outputJSON bool

	resolveCmd = &cobra.Command{
		Use:   "resolve <URL>",
		Short: "Resolve a share link and print the file descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := resolver.New(config)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			file, err := r.Resolve(ctx, args[0])
			if err != nil {
				return err
			}

			if outputJSON {
				out, err := sonic.MarshalIndent(file, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("Name: %s\n", file.Name)
			fmt.Printf("Size: %s\n", file.Size)
			fmt.Printf("URL:  %s\n", file.URL)
			if file.RequiresBrowser {
				fmt.Println("Note: no direct link available, URL opens the share page in a browser")
			}
			return nil
		},
	}
)

var (
	outputPath string
	rateLimit  string
	maxSize    string

	getCmd = &cobra.Command{
		Use:   "get <URL>",
		Short: "Resolve a share link and download the file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := resolver.New(config)
			if err != nil {
				return err
			}

			var limiter *utils.ByteLimiter
			if rateLimit != "" {
				bps, err := utils.ParseRateLimit(rateLimit)
				if err != nil {
					return fmt.Errorf("invalid rate limit %q: %w", rateLimit, err)
				}
				limiter = utils.NewByteLimiter(bps)
			}

			// CLI downloads are not subject to the bot upload ceiling.
			cliCfg := *config
			cliCfg.UploadLimit = math.MaxInt64
			if maxSize != "" {
				n := resolver.ParseSizeToBytes(maxSize)
				if n < 0 {
					return fmt.Errorf("invalid max size %q", maxSize)
				}
				cliCfg.UploadLimit = n
			}

			ctx, cancel := signalContext()
			defer cancel()

			file, err := r.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			if !file.HasDirectLink() {
				return fmt.Errorf("no direct download link available, open %s in a browser", file.URL)
			}

			session, err := bot.NewTransferSession(&cliCfg)
			if err != nil {
				return err
			}

			tracker := utils.NewProgressTracker(file.SizeBytes, cliCfg.Quiet)
			fetcher := bot.NewFetcher(&cliCfg, limiter)
			path, _, err := fetcher.Fetch(ctx, session, file, tracker.Update)
			if err != nil {
				return err
			}

			dest := outputPath
			if dest == "" {
				dest = filepath.Base(file.Name)
			}
			if err := os.Rename(path, dest); err != nil {
				utils.NewFileOperations().RemoveQuiet(path)
				return fmt.Errorf("move downloaded file: %w", err)
			}
			tracker.Finish(dest)
			return nil
		},
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a YAML config file")
	pf.StringVarP(&cookiesPath, "cookies", "c", "", "Path to a Netscape-format cookie file")
	pf.StringVar(&proxyURL, "proxy", "", "Proxy URL (http://, https:// or socks5://)")
	pf.IntVar(&timeoutSecs, "timeout", 0, "HTTP timeout in seconds")
	pf.StringVar(&logLevel, "log-level", "", "Log level (error, warn, info, debug)")
	pf.StringVar(&logFile, "log-file", "", "Write logs to a file instead of stderr")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")

	resolveCmd.Flags().BoolVar(&outputJSON, "json", false, "Print the descriptor as JSON")

	getCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (defaults to the remote filename)")
	getCmd.Flags().StringVarP(&rateLimit, "limit-rate", "r", "", "Bandwidth limit, e.g. 5M or 500K")
	getCmd.Flags().StringVar(&maxSize, "max-size", "", "Abort downloads larger than this, e.g. 200MB")

	rootCmd.AddCommand(resolveCmd, getCmd)
}

// loadConfiguration layers defaults, the YAML file, environment
// variables and finally command-line flags.
func loadConfiguration() error {
	config = internal.DefaultConfig()

	if configPath != "" {
		if err := config.LoadFile(configPath); err != nil {
			return err
		}
	}
	config.LoadFromEnv()

	if cookiesPath != "" {
		config.CookieFile = cookiesPath
	}
	if proxyURL != "" {
		config.ProxyURL = proxyURL
	}
	if timeoutSecs > 0 {
		config.TimeoutSeconds = timeoutSecs
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if logFile != "" {
		config.LogFile = logFile
	}
	if debug {
		config.Debug = true
		config.LogLevel = "debug"
	}
	if quiet {
		config.Quiet = true
	}

	return config.Validate()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		internal.LogError("%v", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
