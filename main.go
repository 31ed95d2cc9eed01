// propkit is a Java .properties translation kit: parse, sort and machine-translate
// message catalogs.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/propkit/config"
	"github.com/minios-linux/propkit/i18n"
	"github.com/minios-linux/propkit/langmeta"
	"github.com/minios-linux/propkit/merge"
	"github.com/minios-linux/propkit/propfile"
	"github.com/minios-linux/propkit/settings"
	"github.com/minios-linux/propkit/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

var (
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

// logOut receives all log lines; stdout is reserved for command output.
var logOut io.Writer = os.Stderr

func logInfo(format string, args ...any) {
	fmt.Fprintf(logOut, blue("[INFO]")+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(logOut, green("[OK]")+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(logOut, yellow("[WARN]")+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(logOut, red("[ERROR]")+" "+format+"\n", args...)
}

func logDebug(format string, args ...any) {
	if verbose {
		fmt.Fprintf(logOut, faint("[DEBUG] "+format)+"\n", args...)
	}
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	configPath string
	verbose    bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "propkit",
		Short: i18n.T("Java .properties translation kit"),
		Long: i18n.T(`propkit: parse, sort and machine-translate Java .properties message files.

Commands:
  parse              Print the messages of a properties file
  sort               Reorder a translation to follow its source file
  translate          Translate a whole properties file
  translate-missing  Translate only the messages a translation lacks
  auth               Manage the stored translator API key

Providers:
  azure   Azure Translator v3 (API key, default)
  google  Google Translate web endpoint (no key)`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", i18n.T("Config file (default ./.propkit.yaml)"))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, i18n.T("Enable detailed logging"))

	root.AddCommand(
		newParseCmd(),
		newSortCmd(),
		newTranslateCmd(),
		newTranslateMissingCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// reportError logs err and, for errors the user can act on, a hint.
func reportError(err error) {
	logError("%v", err)

	var apiErr *translate.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			logWarning(i18n.T("Check the API key and that region %q matches the translator resource"), apiErr.Region)
		case http.StatusTooManyRequests:
			logWarning(i18n.T("The translator quota is exhausted; try again later"))
		}
	}
	var dupErr *propfile.DuplicateKeyError
	if errors.As(err, &dupErr) {
		logWarning(i18n.T("Remove the repeated keys and run the command again"))
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "propkit version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
			lang := i18n.Language()
			if lang == "" {
				lang = "en"
			}
			fmt.Fprintf(out, "  messages:  %s\n", lang)
		},
	}
}

// ---------------------------------------------------------------------------
// parse
// ---------------------------------------------------------------------------

func newParseCmd() *cobra.Command {
	var (
		input             string
		removeBackslashes bool
	)

	cmd := &cobra.Command{
		Use:   "parse",
		Short: i18n.T("Print the messages of a properties file"),
		Long: i18n.T(`Parse a properties file and print its messages as key=value lines.

Fails on duplicate keys and on continuation lines that precede every key.
With -b multiline values are printed flattened to one line.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := propfile.Raw
			if removeBackslashes {
				mode = propfile.Normalized
			}
			m, err := propfile.ParseFile(input, mode)
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(m.Marshal()); err != nil {
				return err
			}
			logDebug("%s: %d keys", input, m.Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", i18n.T("Properties file to parse (required)"))
	cmd.Flags().BoolVarP(&removeBackslashes, "remove-backslashes", "b", false, i18n.T("Flatten multiline values"))
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// ---------------------------------------------------------------------------
// sort
// ---------------------------------------------------------------------------

func newSortCmd() *cobra.Command {
	var input, to, output string

	cmd := &cobra.Command{
		Use:   "sort",
		Short: i18n.T("Reorder a translation to follow its source file"),
		Long: i18n.T(`Rewrite a translated file in the order and layout of its source file.

Comments and blank lines are taken from the source. Keys that only exist in
the translation are dropped. Keys without a translation are reported.

Examples:
  propkit sort -i messages.properties -t de
  propkit sort -i messages.properties -t de -o i18n/messages_de.properties`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := langmeta.Validate(to); err != nil {
				return err
			}
			if output == "" {
				output = propfile.LocalizedPath(input, to)
			}

			missing, err := merge.SortFile(input, output)
			if err != nil {
				return err
			}
			logSuccess(i18n.T("Sorted %s"), output)
			if len(missing) > 0 {
				logWarning(i18n.N("%d message has no translation: %s", "%d messages have no translation: %s", len(missing)),
					len(missing), strings.Join(missing, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", i18n.T("Source properties file (required)"))
	cmd.Flags().StringVarP(&to, "to", "t", "", i18n.T("Target language (required)"))
	cmd.Flags().StringVarP(&output, "output", "o", "", i18n.T("Translated file (default: derived from input and language)"))
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

// ---------------------------------------------------------------------------
// Shared translation flags
// ---------------------------------------------------------------------------

// translateFlags holds the flags shared by translate and translate-missing.
type translateFlags struct {
	input, output, from, to, region string
	removeBackslashes                 bool

	provider, apiKey, endpoint, proxy string
	timeout                           time.Duration
}

func (f *translateFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.input, "input", "i", "", i18n.T("Source properties file (required)"))
	fs.StringVarP(&f.to, "to", "t", "", i18n.T("Target language (required)"))
	fs.StringVarP(&f.output, "output", "o", "", i18n.T("Translated file (default: derived from input and language)"))
	fs.StringVarP(&f.from, "from", "f", config.DefaultSourceLang, i18n.T("Source language"))
	fs.StringVarP(&f.region, "region", "r", config.DefaultRegion, i18n.T("Azure translator region"))
	fs.BoolVarP(&f.removeBackslashes, "remove-backslashes", "b", false, i18n.T("Send multiline values flattened to one line"))

	fs.StringVar(&f.provider, "provider", config.DefaultProvider, i18n.T("Translation provider: azure, google"))
	fs.StringVar(&f.apiKey, "api-key", "", fmt.Sprintf(i18n.T("API key (or %s env var)"), settings.APIKeyEnv))
	fs.StringVar(&f.endpoint, "endpoint", config.DefaultEndpoint, i18n.T("Translator API base URL"))
	fs.StringVar(&f.proxy, "proxy", "", i18n.T("HTTP/HTTPS proxy URL"))
	fs.DurationVar(&f.timeout, "timeout", config.DefaultTimeout, i18n.T("Request timeout"))
}

// runSettings is the effective configuration of a translation run. A flag
// given on the command line wins over .propkit.yaml, which wins over the
// built-in defaults.
type runSettings struct {
	from, to, region, provider, endpoint, proxy string
	timeout                                     time.Duration
	removeBackslashes, sort                     bool
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath, true)
	}
	return config.Load(config.FileName, false)
}

func resolveSettings(fs *pflag.FlagSet, f *translateFlags, cfg *config.Config) runSettings {
	pick := func(name, flagValue, cfgValue string) string {
		if fs.Changed(name) {
			return flagValue
		}
		return cfgValue
	}

	s := runSettings{
		to:       f.to,
		from:     pick("from", f.from, cfg.SourceLang),
		region:   pick("region", f.region, cfg.Region),
		provider: strings.ToLower(pick("provider", f.provider, cfg.Provider)),
		endpoint: pick("endpoint", f.endpoint, cfg.Endpoint),
		proxy:    pick("proxy", f.proxy, cfg.Proxy),
		timeout:  cfg.Timeout,
		sort:     cfg.Sort,
	}
	if fs.Changed("timeout") {
		s.timeout = f.timeout
	}
	s.removeBackslashes = cfg.RemoveBackslashes
	if fs.Changed("remove-backslashes") {
		s.removeBackslashes = f.removeBackslashes
	}
	if fs.Changed("sort") {
		s.sort, _ = fs.GetBool("sort")
	}
	return s
}

// newTranslator resolves the credential and builds the provider client.
// For Azure a region or endpoint stored with `propkit auth login` is used
// unless one was given on the command line.
func newTranslator(fs *pflag.FlagSet, f *translateFlags, s runSettings) (translate.Translator, error) {
	prov := translate.Provider{
		ID:       s.provider,
		Endpoint: s.endpoint,
		Region:   s.region,
		Proxy:    s.proxy,
		Timeout:  s.timeout,
	}

	if s.provider == translate.ProviderAzure {
		key, source := settings.LookupAPIKey(translate.ProviderAzure, f.apiKey)
		prov.APIKey = key
		if source != "" {
			logDebug("API key from %s: %s", source, settings.MaskKey(key))
		}
		if stored := settings.Get(translate.ProviderAzure); stored != nil {
			if stored.Region != "" && !fs.Changed("region") {
				prov.Region = stored.Region
			}
			if stored.Endpoint != "" && !fs.Changed("endpoint") {
				prov.Endpoint = stored.Endpoint
			}
		}
	}

	return translate.NewTranslator(prov, logDebug)
}

func validateLanguages(s runSettings) error {
	if err := langmeta.Validate(s.from); err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	if err := langmeta.Validate(s.to); err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	return nil
}

// buildOptions turns resolved settings into workflow options. The
// translator is built last so flag and language errors are reported
// before credential problems.
func buildOptions(fs *pflag.FlagSet, f *translateFlags) (translate.Options, error) {
	cfg, err := loadConfig()
	if err != nil {
		return translate.Options{}, err
	}
	if cfg.Path != "" {
		logDebug("Using config %s", cfg.Path)
	}

	s := resolveSettings(fs, f, cfg)
	if err := validateLanguages(s); err != nil {
		return translate.Options{}, err
	}
	if err := propfile.RequireFile(f.input); err != nil {
		return translate.Options{}, err
	}

	tr, err := newTranslator(fs, f, s)
	if err != nil {
		return translate.Options{}, err
	}

	return translate.Options{
		Input:             f.input,
		Output:            f.output,
		From:              s.from,
		To:                s.to,
		RemoveBackslashes: s.removeBackslashes,
		Sort:              s.sort,
		Translator:        tr,
		OnLog:             logInfo,
		Verbose:           verbose,
	}, nil
}

// interruptContext returns a context canceled on SIGINT.
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		select {
		case <-sigCh:
			logWarning(i18n.T("Interrupted, no files were changed"))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// newProgress returns an OnProgress callback drawing a bar on stderr. The
// bar is created on the first report, when the total is known.
func newProgress(lang string) func(done, total int) {
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(logOut),
				progressbar.OptionEnableColorCodes(!color.NoColor),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", lang)),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() { fmt.Fprintln(logOut) }),
			)
		}
		_ = bar.Set(done)
	}
}

func describeLang(code string) string {
	return langmeta.Resolve(code).Label()
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var f translateFlags

	cmd := &cobra.Command{
		Use:   "translate",
		Short: i18n.T("Translate a whole properties file"),
		Long: i18n.T(`Translate every message of a properties file and write the target file.

The target file follows the layout of the source file and is overwritten if
it exists. All messages are sent in a single request. Checksums of the
source messages are recorded in propkit.lock next to the target file, for
later use by translate-missing --changed.

Examples:
  propkit translate -i messages.properties -t de
  propkit translate -i messages.properties -t pt-BR -b -o out/messages_pt.properties
  propkit translate -i messages.properties -t fr --provider google`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(cmd.Flags(), &f)
			if err != nil {
				return err
			}
			opts.OnProgress = newProgress(opts.To)

			ctx, stop := interruptContext()
			defer stop()

			logInfo(i18n.T("Translating %s into %s"), opts.Input, describeLang(opts.To))
			res, err := translate.TranslateFile(ctx, opts)
			if err != nil {
				return err
			}
			logSuccess(i18n.N("Wrote %s (%d message)", "Wrote %s (%d messages)", len(res.Translated)),
				res.Output, len(res.Translated))
			return nil
		},
	}

	f.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("to")
	registerProviderCompletion(cmd)

	return cmd
}

// ---------------------------------------------------------------------------
// translate-missing
// ---------------------------------------------------------------------------

func newTranslateMissingCmd() *cobra.Command {
	var (
		f       translateFlags
		sort    bool
		changed bool
	)

	cmd := &cobra.Command{
		Use:   "translate-missing",
		Short: i18n.T("Translate only the messages a translation lacks"),
		Long: i18n.T(`Translate the messages of the source file that the target file lacks.

Both files must exist. New messages are appended to the target file, or with
-s the whole target file is rewritten in the order of the source file.

Every run that writes the target file records checksums of the source
messages in propkit.lock next to it, creating the file when needed. With
--changed, messages whose source text changed since propkit last translated
them are translated again.

Examples:
  propkit translate-missing -i messages.properties -t de
  propkit translate-missing -i messages.properties -t de -s --changed`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(cmd.Flags(), &f)
			if err != nil {
				return err
			}
			opts.Changed = changed
			opts.OnProgress = newProgress(opts.To)

			ctx, stop := interruptContext()
			defer stop()

			res, err := translate.TranslateMissing(ctx, opts)
			if err != nil {
				return err
			}
			if !res.Written {
				logSuccess(i18n.T("%s is up to date"), res.Output)
				return nil
			}
			logSuccess(i18n.N("Added %d message to %s", "Added %d messages to %s", len(res.Missing)),
				len(res.Missing), res.Output)
			if len(res.Changed) > 0 {
				logInfo(i18n.N("Retranslated %d changed message", "Retranslated %d changed messages", len(res.Changed)),
					len(res.Changed))
			}
			return nil
		},
	}

	f.register(cmd.Flags())
	cmd.Flags().BoolVarP(&sort, "sort", "s", false, i18n.T("Rewrite the target file in source order"))
	cmd.Flags().BoolVar(&changed, "changed", false, i18n.T("Also retranslate messages whose source text changed"))
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("to")
	registerProviderCompletion(cmd)

	return cmd
}

func registerProviderCompletion(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"azure\tAzure Translator v3 (API key)",
			"google\tGoogle Translate web endpoint (no key)",
		}, cobra.ShellCompDirectiveNoFileComp
	})
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: i18n.T("Manage the stored translator API key"),
		Long: fmt.Sprintf(i18n.T(`Manage the Azure Translator API key stored in %s.

The key is looked up in this order:
  1. --api-key flag
  2. %s environment variable
  3. the stored key

Examples:
  propkit auth login                  Prompt for the key
  propkit auth login --region westeurope
  propkit auth logout                 Remove all stored credentials
  propkit auth list                   Show the stored credentials`), settings.FilePath(), settings.APIKeyEnv),
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var provider, key, region, endpoint string

	cmd := &cobra.Command{
		Use:   "login",
		Short: i18n.T("Store a translator API key"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider != translate.ProviderAzure {
				return fmt.Errorf(i18n.T("provider %q does not use an API key"), provider)
			}

			existing := settings.Get(provider)
			if key == "" {
				var err error
				if key, err = promptKey(cmd.InOrStdin(), existing); err != nil {
					return err
				}
			}
			if key == "" {
				if existing != nil && existing.Key != "" {
					logInfo(i18n.T("Keeping existing key"))
					return nil
				}
				return errors.New(i18n.T("no API key provided"))
			}

			info := &settings.Info{Key: key, Region: region, Endpoint: strings.TrimRight(endpoint, "/")}
			if existing != nil {
				if info.Region == "" {
					info.Region = existing.Region
				}
				if info.Endpoint == "" {
					info.Endpoint = existing.Endpoint
				}
			}
			if err := settings.Set(provider, info); err != nil {
				return fmt.Errorf("saving API key: %w", err)
			}
			logSuccess(i18n.T("API key saved to %s"), settings.FilePath())
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", translate.ProviderAzure, i18n.T("Provider the key belongs to"))
	cmd.Flags().StringVar(&key, "key", "", i18n.T("API key (prompted for when omitted)"))
	cmd.Flags().StringVar(&region, "region", "", i18n.T("Region of the translator resource"))
	cmd.Flags().StringVar(&endpoint, "endpoint", "", i18n.T("Translator API base URL"))

	return cmd
}

func promptKey(in io.Reader, existing *settings.Info) (string, error) {
	if existing != nil && existing.Key != "" {
		fmt.Fprintf(logOut, i18n.T("  Current key: %s")+"\n", yellow(settings.MaskKey(existing.Key)))
		fmt.Fprint(logOut, i18n.T("  Enter new key to replace, or press Enter to keep: "))
	} else {
		fmt.Fprint(logOut, i18n.T("  Enter API key: "))
	}

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return "", errors.New(i18n.T("no input received"))
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func newAuthLogoutCmd() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: i18n.T("Remove stored credentials"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider != "" {
				if err := settings.Remove(provider); err != nil {
					return fmt.Errorf("removing %s credentials: %w", provider, err)
				}
				logSuccess(i18n.T("%s credentials removed"), provider)
				return nil
			}
			if err := settings.RemoveAll(); err != nil {
				return err
			}
			logSuccess(i18n.T("All stored credentials removed"))
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", i18n.T("Provider to log out (default: all)"))
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   i18n.T("Show stored credentials"),
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", blue(i18n.T("Stored credentials")))
			fmt.Fprintln(out, strings.Repeat("─", 60))

			entry := settings.Get(translate.ProviderAzure)
			if entry != nil && entry.Key != "" {
				fmt.Fprintf(out, "  %-8s %s (%s)\n", translate.ProviderAzure, green(i18n.T("configured")), settings.MaskKey(entry.Key))
				if entry.Region != "" {
					fmt.Fprintf(out, "  %-8s region: %s\n", "", entry.Region)
				}
				if entry.Endpoint != "" {
					fmt.Fprintf(out, "  %-8s endpoint: %s\n", "", entry.Endpoint)
				}
			} else {
				fmt.Fprintf(out, "  %-8s %s\n", translate.ProviderAzure, red(i18n.T("not configured")))
			}
			fmt.Fprintf(out, "  %-8s %s\n", translate.ProviderGoogle, i18n.T("no key needed"))

			fmt.Fprintln(out)
			if envKey := os.Getenv(settings.APIKeyEnv); envKey != "" {
				fmt.Fprintf(out, "  %s: %s %s\n", settings.APIKeyEnv, green(settings.MaskKey(envKey)), i18n.T("(overrides the stored key)"))
			} else {
				fmt.Fprintf(out, "  %s: %s\n", settings.APIKeyEnv, red(i18n.T("not set")))
			}
		},
	}
}
