// Package translate sends the texts of a record to a machine translation
// backend (Google Cloud Translation, DeepL or the OpenAI chat API) in
// batches, with bounded concurrency and retries, and streams the results
// back keyed like the input.
//
// Interpolation expressions are shielded from the backend with an
// interpolation.Guard. Batches that still fail after the last retry are
// written to a JSON-lines side log and skipped; they never abort the run.
package translate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bbt-i18n/bbt/interpolation"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderGoogle  = "google"
	ProviderDeepL   = "deepl"
	ProviderChatGPT = "chatgpt"
)

// DefaultChatModel is used by the chatgpt backend when no model is set.
const DefaultChatModel = "gpt-4o-mini"

// ErrMissingAPIKey is returned by NewBackend when the provider has no key.
var ErrMissingAPIKey = errors.New("missing API key")

// Provider describes a translation backend.
type Provider struct {
	// ID is the provider identifier (google, deepl, chatgpt).
	ID string
	// Name is the display name, also used to label error log records.
	Name string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey is the authentication key.
	APIKey string
	// Model is the chat model (chatgpt only).
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the per-request timeout.
	Timeout time.Duration
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		ProviderGoogle: {
			ID:      ProviderGoogle,
			Name:    "Google Translation",
			BaseURL: "https://translation.googleapis.com",
			Timeout: 60 * time.Second,
		},
		ProviderDeepL: {
			ID:      ProviderDeepL,
			Name:    "DeepL",
			BaseURL: "https://api-free.deepl.com",
			Timeout: 60 * time.Second,
		},
		ProviderChatGPT: {
			ID:      ProviderChatGPT,
			Name:    "ChatGPT",
			BaseURL: "https://api.openai.com",
			Model:   DefaultChatModel,
			Timeout: 120 * time.Second,
		},
	}
}

// Backend translates one batch of texts. The result must have the same
// length and order as texts.
type Backend interface {
	Name() string
	TranslateTexts(ctx context.Context, texts []string, target, source string) ([]string, error)
}

// NewBackend returns the backend for prov.ID. Empty BaseURL, Model and
// Timeout fields fall back to DefaultProviders.
func NewBackend(prov Provider) (Backend, error) {
	def, ok := DefaultProviders()[prov.ID]
	if !ok {
		return nil, fmt.Errorf("unknown translator %q (valid: google, deepl, chatgpt)", prov.ID)
	}
	if prov.Name == "" {
		prov.Name = def.Name
	}
	if prov.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", prov.Name, ErrMissingAPIKey)
	}
	if prov.BaseURL == "" {
		prov.BaseURL = def.BaseURL
	}
	if prov.Model == "" {
		prov.Model = def.Model
	}
	if prov.Timeout <= 0 {
		prov.Timeout = def.Timeout
	}
	client := makeHTTPClient(prov.Proxy, prov.Timeout)

	switch prov.ID {
	case ProviderGoogle:
		return &googleBackend{prov: prov, client: client}, nil
	case ProviderDeepL:
		return &deeplBackend{prov: prov, client: client}, nil
	default:
		return &chatBackend{prov: prov, client: client}, nil
	}
}

// ---------------------------------------------------------------------------
// Translation options
// ---------------------------------------------------------------------------

// Options controls the translation pipeline.
type Options struct {
	// BatchSize is how many texts go into one request. Default: 50.
	BatchSize int
	// MaxConcurrent bounds the number of in-flight batches. Default: 6.
	MaxConcurrent int
	// RequestDelay spaces out batch launches and is the base of the
	// exponential retry backoff. Zero means no delay.
	RequestDelay time.Duration
	// MaxRetries is the number of retries after the first failed attempt.
	// Zero selects 3; a negative value disables retries.
	MaxRetries int
	// TokenHook overrides the interpolation tokens.
	TokenHook interpolation.TokenHook
	// ErrorLogDir is where the error side log is created. Default: the
	// working directory.
	ErrorLogDir string
	// OnProgress is called after each batch, successful or not.
	OnProgress func(target string, done, total int)
	// OnLog emits log messages during translation.
	OnLog func(format string, args ...any)
	// OnError emits error messages during translation.
	OnError func(format string, args ...any)
	// Verbose enables per-attempt logging.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) effectiveMaxRetries() int {
	switch {
	case o.MaxRetries > 0:
		return o.MaxRetries
	case o.MaxRetries < 0:
		return 0
	}
	return 3
}

func (o *Options) effectiveBatchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return 50
}

func (o *Options) effectiveMaxConcurrent() int {
	if o.MaxConcurrent > 0 {
		return o.MaxConcurrent
	}
	return 6
}

// ---------------------------------------------------------------------------
// Rate limit state (global pause for parallel workers)
// ---------------------------------------------------------------------------

type rateLimitState struct {
	mu       sync.Mutex
	paused   int32 // atomic: 1 = paused
	pauseEnd time.Time
}

func (r *rateLimitState) isPaused() bool {
	return atomic.LoadInt32(&r.paused) == 1
}

func (r *rateLimitState) pause(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if end := time.Now().Add(duration); end.After(r.pauseEnd) {
		r.pauseEnd = end
	}
	atomic.StoreInt32(&r.paused, 1)
}

func (r *rateLimitState) unpause() {
	atomic.StoreInt32(&r.paused, 0)
}

// waitIfPaused blocks until the rate limit pause is over.
func (r *rateLimitState) waitIfPaused(ctx context.Context) error {
	for r.isPaused() {
		r.mu.Lock()
		remaining := time.Until(r.pauseEnd)
		r.mu.Unlock()
		if remaining <= 0 {
			r.unpause()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(min(remaining, 100*time.Millisecond)):
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Translator
// ---------------------------------------------------------------------------

// Result is one translated text.
type Result struct {
	Key    string
	Target string
	Text   string
}

// Summary counts the texts of one Translate call.
type Summary struct {
	Total      int
	Translated int
	Failed     int
}

// Translator runs the batching pipeline on top of a Backend. It is safe
// for concurrent use; every call shares the same error log and run ID.
type Translator struct {
	backend Backend
	opts    Options
	guard   *interpolation.Guard
	rl      rateLimitState
	runID   string
	now     func() time.Time

	emitMu sync.Mutex

	logMu   sync.Mutex
	logFile *os.File
	logPath string
	errLog  zerolog.Logger
}

// New returns a Translator for backend.
func New(backend Backend, opts Options) *Translator {
	return &Translator{
		backend: backend,
		opts:    opts,
		guard:   interpolation.NewGuard(opts.TokenHook),
		runID:   uuid.NewString(),
		now:     time.Now,
	}
}

// RunID identifies this translator in the error log.
func (t *Translator) RunID() string { return t.runID }

// Name returns the backend name.
func (t *Translator) Name() string { return t.backend.Name() }

type batch struct {
	keys  []string
	texts []string
}

// Translate translates every non-empty value of record from source into
// target. Results are handed to emit one batch at a time; emit is never
// called concurrently. The returned error is non-nil only when ctx ends
// the run; failed batches are counted in the summary and logged.
func (t *Translator) Translate(ctx context.Context, record map[string]string, target, source string, emit func([]Result)) (Summary, error) {
	keys := make([]string, 0, len(record))
	for key, text := range record {
		if text != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	summary := Summary{Total: len(keys)}
	if len(keys) == 0 {
		return summary, nil
	}

	texts := make([]string, len(keys))
	for i, key := range keys {
		texts[i] = t.guard.Replace(key, record[key])
	}

	size := t.opts.effectiveBatchSize()
	var batches []batch
	for i, chunk := range splitStrings(texts, size) {
		start := i * size
		batches = append(batches, batch{keys: keys[start : start+len(chunk)], texts: chunk})
	}

	var done, translated, failed int64
	err := runParallelGeneric(ctx, batches, t.opts.effectiveMaxConcurrent(), t.opts.RequestDelay, func(ctx context.Context, b batch) error {
		out, err := t.withRetry(ctx, func() ([]string, error) {
			out, err := t.backend.TranslateTexts(ctx, b.texts, target, source)
			if err != nil {
				return nil, err
			}
			if len(out) != len(b.texts) {
				return nil, fmt.Errorf("got %d translations, expected %d", len(out), len(b.texts))
			}
			return out, nil
		})

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			atomic.AddInt64(&failed, int64(len(b.keys)))
			t.opts.logError("%s: %d texts to %s skipped: %v", t.backend.Name(), len(b.keys), target, err)
			originals := make([]string, len(b.keys))
			for i, key := range b.keys {
				originals[i] = record[key]
			}
			t.logFailure(target, b.keys, originals, err)
		} else {
			results := make([]Result, len(out))
			for i, text := range out {
				key := b.keys[i]
				results[i] = Result{Key: key, Target: target, Text: t.guard.Reduce(key, text)}
			}
			atomic.AddInt64(&translated, int64(len(results)))
			if emit != nil {
				t.emitMu.Lock()
				emit(results)
				t.emitMu.Unlock()
			}
		}

		n := atomic.AddInt64(&done, int64(len(b.keys)))
		if t.opts.OnProgress != nil {
			t.opts.OnProgress(target, int(n), len(keys))
		}
		return nil
	})

	summary.Translated = int(atomic.LoadInt64(&translated))
	summary.Failed = int(atomic.LoadInt64(&failed))
	if err == nil {
		err = ctx.Err()
	}
	return summary, err
}

// withRetry runs fn until it succeeds or the retries are used up. The
// n-th retry waits 2^n times the request delay. A 429 response pauses
// every worker of this translator for at least the server's Retry-After.
func (t *Translator) withRetry(ctx context.Context, fn func() ([]string, error)) ([]string, error) {
	maxRetries := t.opts.effectiveMaxRetries()
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := t.rl.waitIfPaused(ctx); err != nil {
			return nil, err
		}

		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == maxRetries {
			break
		}

		wait := time.Duration(math.Pow(2, float64(attempt+1))) * t.opts.RequestDelay
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == 429 {
			wait = max(wait, se.RetryAfter)
			t.rl.pause(wait)
		}
		if t.opts.Verbose {
			t.opts.log("%s: attempt %d/%d failed, retrying in %v: %v", t.backend.Name(), attempt+1, maxRetries+1, wait, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	if maxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", maxRetries+1, lastErr)
}

// ---------------------------------------------------------------------------
// Error side log
// ---------------------------------------------------------------------------

// ErrorLogName returns the side log file name for a day.
func ErrorLogName(day time.Time) string {
	return "bbt-translate-error-" + day.Format("2006-01-02") + ".log"
}

// ErrorLogPath returns the side log path, or "" if nothing failed yet.
func (t *Translator) ErrorLogPath() string {
	t.logMu.Lock()
	defer t.logMu.Unlock()
	return t.logPath
}

// logFailure appends one record per text. The file is opened on first use.
func (t *Translator) logFailure(target string, keys, texts []string, cause error) {
	t.logMu.Lock()
	defer t.logMu.Unlock()

	if t.logFile == nil {
		path := filepath.Join(t.opts.ErrorLogDir, ErrorLogName(t.now()))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			t.opts.logError("cannot open error log %s: %v", path, err)
			return
		}
		t.logFile = f
		t.logPath = path
		t.errLog = zerolog.New(f).With().
			Timestamp().
			Str("run", t.runID).
			Str("translator", t.backend.Name()).
			Logger()
	}

	for i, key := range keys {
		t.errLog.Error().
			Str("target", target).
			Str("key", key).
			Str("text", texts[i]).
			Err(cause).
			Msg("translation failed")
	}
}

// Close closes the error log, if one was opened.
func (t *Translator) Close() error {
	t.logMu.Lock()
	defer t.logMu.Unlock()
	if t.logFile == nil {
		return nil
	}
	err := t.logFile.Close()
	t.logFile = nil
	return err
}

// ---------------------------------------------------------------------------
// Generic parallel runner
// ---------------------------------------------------------------------------

// runParallelGeneric runs any typed tasks in parallel with concurrency limit and delay.
func runParallelGeneric[T any](ctx context.Context, tasks []T, maxConcurrent int, delay time.Duration, fn func(context.Context, T) error) error {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

launch:
	for i, task := range tasks {
		if ctx.Err() != nil {
			break
		}

		// Delay between launching tasks (skip first)
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				break launch
			case <-time.After(delay):
			}
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(t T) {
			defer func() {
				<-sem
				wg.Done()
			}()

			if err := fn(ctx, t); err != nil {
				errOnce.Do(func() {
					firstErr = err
				})
			}
		}(task)
	}

	wg.Wait()
	return firstErr
}

// splitStrings divides a string slice into chunks of the given size.
func splitStrings(items []string, chunkSize int) [][]string {
	if chunkSize <= 0 || chunkSize >= len(items) {
		return [][]string{items}
	}
	var chunks [][]string
	for i := 0; i < len(items); i += chunkSize {
		end := i + chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
