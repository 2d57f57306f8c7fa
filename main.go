// bbt: collects locale files into one master table, machine-translates the
// gaps and writes the locale files back.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bbt-i18n/bbt/collect"
	"github.com/bbt-i18n/bbt/config"
	"github.com/bbt-i18n/bbt/i18n"
	"github.com/bbt-i18n/bbt/master"
	"github.com/bbt-i18n/bbt/merge"
	"github.com/bbt-i18n/bbt/parser"
	"github.com/bbt-i18n/bbt/plugin"
	"github.com/bbt-i18n/bbt/resource"
	"github.com/bbt-i18n/bbt/settings"
	"github.com/bbt-i18n/bbt/translate"
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
	logOut io.Writer = color.Error

	infoLabel    = color.New(color.FgBlue).Sprint("[INFO]")
	successLabel = color.New(color.FgGreen).Sprint("[OK]")
	warnLabel    = color.New(color.FgYellow, color.Bold).Sprint("[WARN]")
	errorLabel   = color.New(color.FgRed).Sprint("[ERROR]")
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(logOut, infoLabel+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(logOut, successLabel+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(logOut, warnLabel+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(logOut, errorLabel+" "+format+"\n", args...)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configPath string
)

// fs is the filesystem every command reads and writes. Tests swap it.
var fs afero.Fs = afero.NewOsFs()

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bbt",
		Short: i18n.T("Collect, translate and write back i18n resource files"),
		Long: `bbt keeps the locale files scattered through a source tree in one
master table (.xlsx or .csv) that translators can edit.

Commands:
  init        Create a default bbt.yaml
  collect     Gather locale files into the master table
  translate   Machine-translate missing texts in the master table
  write       Regenerate locale files from the master table
  config      Manage translator API keys`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", i18n.T("Project root directory"))
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", i18n.T("Configuration file (default: <root>/bbt.yaml)"))

	root.AddCommand(
		newInitCmd(),
		newCollectCmd(),
		newTranslateCmd(),
		newWriteCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logError("%v", err)
		stop()
		os.Exit(1)
	}
}

// loadProject reads the configuration and the optional .env next to it.
func loadProject() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(rootDir)
	}
	if err != nil {
		return nil, err
	}
	if err := settings.LoadDotEnv(cfg.Root); err != nil {
		logWarning("%v", err)
	}
	return cfg, nil
}

func warnRow(row int, err error) {
	logWarning(i18n.T("master table row %d skipped: %v"), row, err)
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bbt version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit:    %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// init
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: i18n.T("Create a default bbt.yaml"),
		Long: `Write a commented bbt.yaml with every option at its default value
into the project root. Fails if the file already exists.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Init(rootDir)
			if err != nil {
				return err
			}
			logSuccess(i18n.T("Created %s"), path)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// collect
// ---------------------------------------------------------------------------

func newCollectCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "collect",
		Short: i18n.T("Gather locale files into the master table"),
		Long: `Scan the source directory for locale files, fold them into one key tree
and merge it into the master table.

When the master table already exists the collected tree is diffed against
it: keys that disappeared from the sources are dropped, new keys are added,
and texts are merged according to diff_mode.

  relaxed  new texts win unless they are empty
  strict   a changed reference text clears every other locale`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject()
			if err != nil {
				return err
			}
			return runCollect(cmd.Context(), cfg, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, i18n.T("Use strict diff mode regardless of the configuration"))
	return cmd
}

// newRegistry returns the plugins enabled by cfg.
func newRegistry(cfg *config.Config) *plugin.Registry {
	r := plugin.NewRegistry(plugin.CheckNullValue())
	if cfg.RemoveNullKeys {
		r.Register(plugin.RemoveNullValueKey())
	}
	r.OnError = func(name string, hook plugin.Hook, err error) {
		logWarning(i18n.T("plugin %s failed in %s: %v"), name, hook, err)
	}
	return r
}

func runCollect(ctx context.Context, cfg *config.Config, strict bool) error {
	p, err := parser.ByName(cfg.Parser)
	if err != nil {
		return err
	}

	files := 0
	tree, err := collect.Collect(ctx, collect.Options{
		Fs:      fs,
		Root:    cfg.Root,
		Src:     cfg.Src,
		Test:    cfg.TestRegexp(),
		Exclude: cfg.Exclude,
		Langs:   cfg.Langs,
		Parser:  p,
		OnFile:  func(string) { files++ },
	})
	if err != nil {
		return err
	}
	logInfo(i18n.N("Read %d locale file", "Read %d locale files", files), files)

	registry := newRegistry(cfg)
	pctx := &plugin.Context{Langs: cfg.Langs, Warn: logWarning}
	registry.Run(plugin.CollectCompleted, tree, pctx)

	masterPath := cfg.MasterPath()
	if master.Exists(fs, masterPath) {
		old, _, err := master.Load(fs, masterPath, warnRow)
		if err != nil {
			return err
		}

		registry.Run(plugin.CollectBeforeDiff, tree, pctx)

		mode := merge.Mode(cfg.DiffMode)
		if strict {
			mode = merge.ModeStrict
		}
		fn, err := merge.Policy(mode, cfg.Langs)
		if err != nil {
			return err
		}
		tree, err = merge.Diff(tree, old, fn)
		if err != nil {
			return fmt.Errorf("merging with %s: %w", masterPath, err)
		}
		logInfo(i18n.T("Merged with %s (%s)"), masterPath, mode)

		registry.Run(plugin.CollectAfterDiff, tree, pctx)
	}

	if err := master.Save(fs, masterPath, tree, cfg.Langs); err != nil {
		return err
	}
	logSuccess(i18n.T("Collected %d keys"), len(tree.Leaves()))
	logSuccess(i18n.T("Saved %s"), masterPath)
	return nil
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	translator string
	apiKey     string
	baseURL    string
	model      string
	proxy      string
	langs      string
	global     bool
	dryRun     bool
	verbose    bool

	maxConcurrent int
	batchSize     int
	requestDelay  time.Duration
	maxRetries    int
	timeout       time.Duration
}

func addTranslateFlags(flags *pflag.FlagSet, a *translateArgs) {
	flags.StringVarP(&a.translator, "translator", "t", "", i18n.T("Translation service: google, deepl, chatgpt (default from bbt.yaml)"))
	flags.StringVarP(&a.apiKey, "api-key", "k", "", i18n.T("API key (or BBT_<TRANSLATOR>_KEY, or bbt config)"))
	flags.StringVar(&a.baseURL, "base-url", "", i18n.T("Custom API base URL"))
	flags.StringVarP(&a.model, "model", "m", "", i18n.T("Chat model for the chatgpt translator"))
	flags.StringVarP(&a.proxy, "proxy", "p", "", i18n.T("HTTP/HTTPS proxy URL"))
	flags.StringVar(&a.langs, "lang", "", i18n.T("Target locales (comma-separated, default: all but the reference)"))
	flags.BoolVarP(&a.global, "global", "g", false, i18n.T("Re-translate every text, not only the empty ones"))
	flags.BoolVar(&a.dryRun, "dry-run", false, i18n.T("Show what would be translated without calling the service"))
	flags.BoolVar(&a.verbose, "verbose", false, i18n.T("Enable detailed logging"))

	flags.IntVar(&a.maxConcurrent, "max-concurrent", 0, i18n.T("Maximum in-flight requests (default from bbt.yaml)"))
	flags.IntVar(&a.batchSize, "batch-size", 0, i18n.T("Texts per request (default from bbt.yaml)"))
	flags.DurationVar(&a.requestDelay, "request-delay", 0, i18n.T("Delay between requests (default from bbt.yaml)"))
	flags.IntVar(&a.maxRetries, "max-retries", -1, i18n.T("Retries per failed request (default from bbt.yaml)"))
	flags.DurationVar(&a.timeout, "timeout", 0, i18n.T("Request timeout (default from bbt.yaml)"))
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate",
		Short: i18n.T("Machine-translate missing texts in the master table"),
		Long: `Translate the master table's empty texts from the reference locale (the
first entry of langs) into every other locale, then save the table.

Texts are sent in batches. A batch that keeps failing after the last retry
is skipped and recorded in bbt-translate-error-<date>.log; the rest of the
run continues.

Examples:
  # Translate with Google (key from BBT_GOOGLE_KEY or bbt config)
  bbt translate

  # Re-translate everything into Japanese with DeepL
  bbt translate -t deepl --lang ja --global

  # Use a chat model through a proxy
  bbt translate -t chatgpt -m gpt-4o -p http://127.0.0.1:7890`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject()
			if err != nil {
				return err
			}
			return runTranslate(cmd.Context(), cfg, a)
		},
	}

	addTranslateFlags(cmd.Flags(), &a)

	_ = cmd.RegisterFlagCompletionFunc("translator", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"google\tGoogle Cloud Translation",
			"deepl\tDeepL API",
			"chatgpt\tOpenAI chat completions",
		}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("model", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{translate.DefaultChatModel, "gpt-4o", "gpt-4.1-mini", "gpt-3.5-turbo"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// resolveProvider merges command flags, bbt.yaml and stored settings.
func resolveProvider(cfg *config.Config, a translateArgs) translate.Provider {
	id := a.translator
	if id == "" {
		id = cfg.Translator.Name
	}
	prov := translate.Provider{ID: id}
	if def, ok := translate.DefaultProviders()[id]; ok {
		prov = def
	}

	prov.APIKey = settings.ResolveAPIKey(id, a.apiKey)
	for _, baseURL := range []string{a.baseURL, cfg.Translator.BaseURL, settings.GetBaseURL(id)} {
		if baseURL != "" {
			prov.BaseURL = baseURL
			break
		}
	}
	if a.model != "" {
		prov.Model = a.model
	} else if cfg.Translator.Model != "" {
		prov.Model = cfg.Translator.Model
	}
	prov.Proxy = a.proxy
	if prov.Proxy == "" {
		prov.Proxy = cfg.Translator.Proxy
	}
	prov.Timeout = cfg.Translator.Timeout
	if a.timeout > 0 {
		prov.Timeout = a.timeout
	}
	return prov
}

// translateOptions merges command flags over bbt.yaml.
func translateOptions(cfg *config.Config, a translateArgs) translate.Options {
	t := cfg.Translator
	opts := translate.Options{
		BatchSize:     t.BatchSize,
		MaxConcurrent: t.Concurrency,
		RequestDelay:  t.Delay,
		MaxRetries:    t.Retries,
		Verbose:       a.verbose,
		OnLog:         logInfo,
		OnError:       logWarning,
	}
	if a.batchSize > 0 {
		opts.BatchSize = a.batchSize
	}
	if a.maxConcurrent > 0 {
		opts.MaxConcurrent = a.maxConcurrent
	}
	if a.requestDelay > 0 {
		opts.RequestDelay = a.requestDelay
	}
	if a.maxRetries >= 0 {
		opts.MaxRetries = a.maxRetries
	}
	// Options reads zero as "default"; bbt.yaml's zero means none.
	if opts.MaxRetries == 0 {
		opts.MaxRetries = -1
	}
	return opts
}

func runTranslate(ctx context.Context, cfg *config.Config, a translateArgs) error {
	masterPath := cfg.MasterPath()
	if !master.Exists(fs, masterPath) {
		return fmt.Errorf(i18n.T("master table %s not found, run \"bbt collect\" first"), masterPath)
	}
	tree, _, err := master.Load(fs, masterPath, warnRow)
	if err != nil {
		return err
	}

	source := cfg.ReferenceLang()
	targets := filterOutLang(cfg.Langs, source)
	if a.langs != "" {
		targets = intersectLanguages(targets, strings.Split(a.langs, ","))
		if len(targets) == 0 {
			return fmt.Errorf(i18n.T("none of %q is a target locale of this project"), a.langs)
		}
	}

	jobs := translate.Pending(tree, source, targets, a.global)
	if len(jobs) == 0 {
		logSuccess(i18n.T("All translations are complete!"))
		return nil
	}

	if a.dryRun {
		for _, job := range jobs {
			logInfo(i18n.T("%s -> %s: %d texts"), job.Source, job.Target, job.Size())
		}
		return nil
	}

	prov := resolveProvider(cfg, a)
	backend, err := translate.NewBackend(prov)
	if err != nil {
		if errors.Is(err, translate.ErrMissingAPIKey) {
			return fmt.Errorf(i18n.T("%w: pass --api-key, set %s or run \"bbt config --set %s=<key>\""), err, settings.EnvVar(prov.ID), prov.ID)
		}
		return err
	}

	var bar *progress
	opts := translateOptions(cfg, a)
	opts.TokenHook = newRegistry(cfg).TokenHook()
	opts.OnProgress = func(target string, done, total int) { bar.set(target, done, total) }
	tr := translate.New(backend, opts)
	defer tr.Close()

	logInfo(i18n.T("Translator: %s"), backend.Name())

	var runErr error
	for _, job := range jobs {
		bar = newProgress(job.Target, job.Size())
		summary, err := tr.Translate(ctx, job.Record, job.Target, job.Source, func(results []translate.Result) {
			translate.Apply(tree, source, results)
		})
		bar.finish()
		if err != nil {
			runErr = err
			logWarning(i18n.T("Translation interrupted, saving partial progress"))
			break
		}
		if summary.Failed > 0 {
			logWarning(i18n.T("%s: %d translated, %d failed"), job.Target, summary.Translated, summary.Failed)
		} else {
			logSuccess(i18n.T("%s: %d translated"), job.Target, summary.Translated)
		}
	}

	if path := tr.ErrorLogPath(); path != "" {
		logWarning(i18n.T("Some texts could not be translated, see %s"), path)
	}
	if err := master.Save(fs, masterPath, tree, cfg.Langs); err != nil {
		return err
	}
	logSuccess(i18n.T("Saved %s"), masterPath)
	return runErr
}

// progress renders a bar on terminals and plain log lines elsewhere.
type progress struct {
	target string
	total  int
	bar    *progressbar.ProgressBar
	last   time.Time
}

func newProgress(target string, total int) *progress {
	p := &progress{target: target, total: total}
	if isTerminal(os.Stderr) {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(target),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
	}
	return p
}

func (p *progress) set(target string, done, total int) {
	if p.bar != nil {
		_ = p.bar.Set(done)
		return
	}
	if done == total || time.Since(p.last) > 2*time.Second {
		p.last = time.Now()
		logInfo(i18n.T("%s: %d/%d"), target, done, total)
	}
}

func (p *progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// ---------------------------------------------------------------------------
// write
// ---------------------------------------------------------------------------

func newWriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "write",
		Short: i18n.T("Regenerate locale files from the master table"),
		Long: `Group the master table's keys by the directory they were collected from
and write one <locale>.<out_ext> file per directory and locale under
resource_path.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject()
			if err != nil {
				return err
			}
			return runWrite(cfg)
		},
	}
}

func runWrite(cfg *config.Config) error {
	masterPath := cfg.MasterPath()
	tree, _, err := master.Load(fs, masterPath, warnRow)
	if err != nil {
		return err
	}
	p, err := parser.ByName(cfg.Parser)
	if err != nil {
		return err
	}
	written, err := resource.Write(tree, resource.Options{
		Fs:     fs,
		Root:   cfg.ResourceRoot(),
		Langs:  cfg.Langs,
		Ext:    cfg.OutExt,
		Parser: p,
	})
	if err != nil {
		return err
	}
	logSuccess(i18n.N("Wrote %d file", "Wrote %d files", len(written)), len(written))
	return nil
}

// ---------------------------------------------------------------------------
// config (translator credentials)
// ---------------------------------------------------------------------------

// legacyNames maps the old camel-case setting names to translator IDs.
var legacyNames = map[string]string{
	"googlekey":  translate.ProviderGoogle,
	"deeplkey":   translate.ProviderDeepL,
	"chatgptkey": translate.ProviderChatGPT,
}

// parseSettingName splits "google", "google.key" or "google.base_url" into
// a translator ID and a field.
func parseSettingName(name string) (id, field string, err error) {
	name = strings.TrimSpace(name)
	if id, ok := legacyNames[strings.ToLower(name)]; ok {
		return id, "key", nil
	}
	id, field, _ = strings.Cut(name, ".")
	id = strings.ToLower(id)
	switch field {
	case "":
		field = "key"
	case "key":
	case "base_url", "baseUrl", "baseurl":
		field = "base_url"
	default:
		return "", "", fmt.Errorf(i18n.T("unknown setting %q (valid: key, base_url)"), name)
	}
	for _, t := range settings.Translators {
		if t == id {
			return id, field, nil
		}
	}
	return "", "", fmt.Errorf(i18n.T("unknown translator %q (valid: %s)"), id, strings.Join(settings.Translators, ", "))
}

func newConfigCmd() *cobra.Command {
	var set, get string

	cmd := &cobra.Command{
		Use:   "config",
		Short: i18n.T("Manage translator API keys"),
		Long: `Store translator credentials in the user data directory
($XDG_DATA_HOME/bbt/settings.json, mode 0600).

Setting names are <translator> or <translator>.<field>, where translator
is google, deepl or chatgpt and field is key (the default) or base_url.

Examples:
  bbt config --set google=AIza...
  bbt config --set chatgpt.base_url=https://api.example.com
  bbt config --get deepl
  bbt config list
  bbt config unset chatgpt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case set != "":
				return runConfigSet(set)
			case get != "":
				return runConfigGet(cmd.OutOrStdout(), get)
			}
			return cmd.Help()
		},
	}

	cmd.Flags().StringVarP(&set, "set", "s", "", i18n.T("Store a setting: <name>=<value>"))
	cmd.Flags().StringVarP(&get, "get", "g", "", i18n.T("Print a stored setting"))
	cmd.MarkFlagsMutuallyExclusive("set", "get")

	cmd.AddCommand(newConfigListCmd(), newConfigUnsetCmd())
	return cmd
}

func runConfigSet(pair string) error {
	name, value, ok := strings.Cut(pair, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf(i18n.T("expected <name>=<value>, got %q"), pair)
	}
	id, field, err := parseSettingName(name)
	if err != nil {
		return err
	}
	if field == "base_url" {
		err = settings.SetBaseURL(id, value)
	} else {
		err = settings.SetAPIKey(id, value)
	}
	if err != nil {
		return err
	}
	logSuccess(i18n.T("Saved %s.%s to %s"), id, field, settings.FilePath())
	return nil
}

func runConfigGet(w io.Writer, name string) error {
	id, field, err := parseSettingName(name)
	if err != nil {
		return err
	}
	if field == "base_url" {
		fmt.Fprintln(w, settings.GetBaseURL(id))
	} else {
		fmt.Fprintln(w, settings.GetAPIKey(id))
	}
	return nil
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   i18n.T("Show stored credentials and status"),
		Run: func(cmd *cobra.Command, args []string) {
			printSettings(cmd.OutOrStdout())
		},
	}
}

func printSettings(w io.Writer) {
	heading := color.New(color.FgBlue)
	ok := color.New(color.FgGreen).SprintFunc()
	missing := color.New(color.FgRed).SprintFunc()

	heading.Fprintf(w, "\n%s\n", i18n.T("Stored Credentials"))
	fmt.Fprintln(w, strings.Repeat("─", 60))

	store := settings.Load()
	ids := append([]string(nil), settings.Translators...)
	sort.Strings(ids)
	for _, id := range ids {
		entry := store[id]
		if entry != nil && entry.Key != "" {
			fmt.Fprintf(w, "  %-10s %s (key: %s)\n", id, ok(i18n.T("configured")), settings.MaskKey(entry.Key))
		} else {
			fmt.Fprintf(w, "  %-10s %s\n", id, missing(i18n.T("not configured")))
		}
		if entry != nil && entry.BaseURL != "" {
			fmt.Fprintf(w, "  %10s endpoint: %s\n", "", entry.BaseURL)
		}
		if env := os.Getenv(settings.EnvVar(id)); env != "" {
			fmt.Fprintf(w, "  %10s %s: %s (%s)\n", "", settings.EnvVar(id), settings.MaskKey(env), i18n.T("overrides stored key"))
		}
	}
	fmt.Fprintf(w, "\n  %s: %s\n\n", i18n.T("File"), settings.FilePath())
}

func newConfigUnsetCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "unset [translator]",
		Short: i18n.T("Remove stored credentials"),
		Args:  cobra.MaximumNArgs(1),
		ValidArgs: []string{
			translate.ProviderGoogle,
			translate.ProviderDeepL,
			translate.ProviderChatGPT,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess(i18n.T("All stored credentials removed"))
				return nil
			}
			if len(args) == 0 {
				return errors.New(i18n.T("name a translator or pass --all"))
			}
			id, _, err := parseSettingName(args[0])
			if err != nil {
				return err
			}
			if err := settings.Remove(id); err != nil {
				return err
			}
			logSuccess(i18n.T("%s credentials removed"), id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, i18n.T("Remove the whole settings file"))
	return cmd
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

// intersectLanguages keeps the entries of available that appear in filter,
// in available's order.
func intersectLanguages(available, filter []string) []string {
	want := make(map[string]bool, len(filter))
	for _, f := range filter {
		want[strings.TrimSpace(f)] = true
	}
	var out []string
	for _, lang := range available {
		if want[lang] {
			out = append(out, lang)
		}
	}
	return out
}

// filterOutLang removes every occurrence of lang.
func filterOutLang(langs []string, lang string) []string {
	var out []string
	for _, l := range langs {
		if l != lang {
			out = append(out, l)
		}
	}
	return out
}
