// Package app hosts the generation orchestrator: the state machine that takes
// an admitted request through prompt compilation, the remote image call, the
// authoritative quota commit, and persistence.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"akelarre/internal/admission"
	"akelarre/internal/quota"
	"akelarre/internal/util"
	"akelarre/pkg/ai"
	"akelarre/pkg/domain"
	"akelarre/pkg/events"
	"akelarre/pkg/prompt"
	"akelarre/pkg/storage"
	"akelarre/pkg/store"
)

const (
	imageContentType = "image/png"
	presignExpiry    = 1 * time.Hour
	filenameLayout   = "20060102_150405"
)

// Sampling defaults forwarded to the backend when a request omits them.
var defaultSampling = domain.SamplingParams{
	Temperature:     1.0,
	TopP:            0.95,
	TopK:            40,
	MaxOutputTokens: 8192,
}

// Config holds runtime configuration for the core application.
type Config struct {
	Store      store.Store
	Objects    storage.ObjectStore
	Images     ai.ImageGenerator
	Chat       ai.TextGenerator
	Admission  *admission.Controller
	Ledger     quota.Ledger
	Publisher  events.Publisher
	Compiler   *prompt.Compiler
	RootFolder string
	// Timeout bounds the remote generation call.
	Timeout time.Duration
}

// App wires admission, prompt compilation, the generation backend, the quota
// ledger and persistence into one service.
type App struct {
	store      store.Store
	objects    storage.ObjectStore
	images     ai.ImageGenerator
	chat       ai.TextGenerator
	admission  *admission.Controller
	ledger     quota.Ledger
	publisher  events.Publisher
	compiler   *prompt.Compiler
	rootFolder string
	timeout    time.Duration
}

// New validates the wiring and constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Objects == nil {
		return nil, fmt.Errorf("object store required")
	}
	if cfg.Images == nil {
		return nil, fmt.Errorf("image generator required")
	}
	if cfg.Admission == nil {
		return nil, fmt.Errorf("admission controller required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("quota ledger required")
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	compiler := cfg.Compiler
	if compiler == nil {
		compiler = prompt.NewCompiler(prompt.DefaultTables())
	}
	rootFolder := strings.Trim(strings.TrimSpace(cfg.RootFolder), "/")
	if rootFolder == "" {
		rootFolder = "psycho_generator_images"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &App{
		store:      cfg.Store,
		objects:    cfg.Objects,
		images:     cfg.Images,
		chat:       cfg.Chat,
		admission:  cfg.Admission,
		ledger:     cfg.Ledger,
		publisher:  publisher,
		compiler:   compiler,
		rootFolder: rootFolder,
		timeout:    timeout,
	}, nil
}

// GenerateRequest is one image request after HTTP decoding.
type GenerateRequest struct {
	UserID   string
	Prompt   string
	Style    domain.StyleConfig
	Sampling *domain.SamplingParams
	// Source marks the request as a transmutation of an existing image.
	Source *ai.SourceImage
	// SourceRecordID optionally names a prior generation whose stored asset
	// becomes the source. Ignored when Source is set directly.
	SourceRecordID string
}

// ProcessImage runs one request through the full pipeline.
//
// Order matters: the cooldown slot is reserved before any expensive work, the
// quota read at admission is advisory, and the authoritative ledger commit
// happens only after the backend returned a structurally valid image. A
// rejected commit is logged and published but the image is still delivered;
// the work is already paid for.
func (a *App) ProcessImage(ctx context.Context, req GenerateRequest) (domain.Generation, error) {
	logger := util.LoggerFromContext(ctx)
	if strings.TrimSpace(req.UserID) == "" {
		return domain.Generation{}, fmt.Errorf("user id required")
	}

	now := time.Now().UTC()
	day := quota.DayKey(now)
	result, err := a.admission.Admit(ctx, req.UserID, now, day)
	switch result.Decision {
	case admission.DeniedCooldown:
		return domain.Generation{}, &CooldownActiveError{Remaining: result.RetryAfter}
	case admission.DeniedQuotaExhausted:
		if err != nil {
			logger.Error("quota read failed, denying", "error", err)
		}
		a.publish(events.Event{Type: events.TypeQuotaExhausted, UserID: req.UserID, Day: day, OccurredAt: now})
		return domain.Generation{}, ErrQuotaExhausted
	}

	source, err := a.resolveSource(ctx, req)
	if err != nil {
		return domain.Generation{}, err
	}
	instruction := a.compiler.Compile(req.Prompt, req.Style)
	sampling := defaultSampling
	if req.Sampling != nil {
		sampling = *req.Sampling
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	image, err := a.images.GenerateImage(callCtx, instruction, source, ai.Sampling{
		Temperature:     sampling.Temperature,
		TopP:            sampling.TopP,
		TopK:            sampling.TopK,
		MaxOutputTokens: sampling.MaxOutputTokens,
	})
	cancel()
	if err != nil {
		// Caller cancellation aborts with no commit; it is not a backend
		// failure.
		if ctx.Err() != nil {
			return domain.Generation{}, ctx.Err()
		}
		if errors.Is(err, ai.ErrEmptyResponse) || errors.Is(err, ai.ErrNoImage) {
			return domain.Generation{}, fmt.Errorf("%w: %w", ErrBackendEmpty, err)
		}
		logger.Error("generation call failed", "user_id", req.UserID, "error", err)
		return domain.Generation{}, ErrBackendUnavailable
	}

	committed, err := a.ledger.TryIncrement(ctx, day)
	if err != nil || !committed {
		logger.Warn("quota commit rejected after successful generation",
			"user_id", req.UserID, "day", day, "error", err)
		a.publish(events.Event{Type: events.TypeLedgerCommitLost, UserID: req.UserID, Day: day, OccurredAt: time.Now().UTC()})
	}

	isModified := source != nil
	record := domain.GenerationRecord{
		ID:          util.NewID(),
		UserID:      req.UserID,
		UserPrompt:  req.Prompt,
		FinalPrompt: instruction,
		StorageKey:  a.storageKey(req.UserID, isModified, now),
		IsModified:  isModified,
		Style:       req.Style,
		Sampling:    sampling,
		CreatedAt:   now,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Upload is best-effort: a lost blob costs the gallery URL, not the
		// delivery of this response.
		if err := a.objects.Put(gctx, record.StorageKey, bytes.NewReader(image), int64(len(image)), imageContentType); err != nil {
			logger.Error("asset upload failed", "key", record.StorageKey, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := a.store.SaveRecord(record); err != nil {
			return fmt.Errorf("save record: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Generation{}, err
	}

	url, err := a.objects.PresignGet(ctx, record.StorageKey, presignExpiry)
	if err != nil {
		logger.Warn("presign failed", "key", record.StorageKey, "error", err)
		url = ""
	}

	a.publish(events.Event{
		Type:       events.TypeGenerationCompleted,
		UserID:     req.UserID,
		Day:        day,
		IsModified: isModified,
		OccurredAt: time.Now().UTC(),
	})
	return domain.Generation{Record: record, Image: image, URL: url}, nil
}

// Login returns the user for a display name, creating it on first sight.
func (a *App) Login(name string) (domain.User, error) {
	user, err := a.store.GetOrCreateUserByName(name)
	if err != nil {
		return domain.User{}, fmt.Errorf("get or create user: %w", err)
	}
	return user, nil
}

// GetUser resolves a user ID, as the session middleware needs.
func (a *App) GetUser(id string) (domain.User, bool, error) {
	return a.store.GetUserByID(id)
}

// ListGenerations returns the caller's records, newest first, with presigned
// asset URLs where the object store supports them.
func (a *App) ListGenerations(ctx context.Context, userID string, limit int) ([]domain.Generation, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	records, err := a.store.ListRecordsByUser(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	items := make([]domain.Generation, 0, len(records))
	for _, rec := range records {
		url, err := a.objects.PresignGet(ctx, rec.StorageKey, presignExpiry)
		if err != nil {
			url = ""
		}
		items = append(items, domain.Generation{Record: rec, URL: url})
	}
	return items, nil
}

// Stats summarizes the observatory counters.
type Stats struct {
	Users        int    `json:"users"`
	Generations  int    `json:"generations"`
	Day          string `json:"day"`
	QuotaUsed    int    `json:"quotaUsed"`
	QuotaCeiling int    `json:"quotaCeiling"`
}

// Stats reads the totals for the admin observatory. The quota count is
// advisory like every ledger read.
func (a *App) Stats(ctx context.Context) (Stats, error) {
	users, err := a.store.UserCount()
	if err != nil {
		return Stats{}, fmt.Errorf("count users: %w", err)
	}
	generations, err := a.store.RecordCount()
	if err != nil {
		return Stats{}, fmt.Errorf("count records: %w", err)
	}
	day := quota.DayKey(time.Now())
	used, err := a.ledger.Count(ctx, day)
	if err != nil {
		return Stats{}, fmt.Errorf("read quota: %w", err)
	}
	return Stats{
		Users:        users,
		Generations:  generations,
		Day:          day,
		QuotaUsed:    used,
		QuotaCeiling: a.ledger.Ceiling(),
	}, nil
}

// resolveSource picks the transmutation source: inline bytes win, then a
// prior record's stored asset. Reuse is restricted to the caller's own
// records.
func (a *App) resolveSource(ctx context.Context, req GenerateRequest) (*ai.SourceImage, error) {
	if req.Source != nil && len(req.Source.Data) > 0 {
		return req.Source, nil
	}
	recordID := strings.TrimSpace(req.SourceRecordID)
	if recordID == "" {
		return nil, nil
	}
	records, err := a.store.ListRecordsByUser(req.UserID, 200)
	if err != nil {
		return nil, fmt.Errorf("load source record: %w", err)
	}
	for _, rec := range records {
		if rec.ID != recordID {
			continue
		}
		data, err := a.objects.Get(ctx, rec.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSourceNotFound, err)
		}
		return &ai.SourceImage{MIMEType: imageContentType, Data: data}, nil
	}
	return nil, ErrSourceNotFound
}

func (a *App) storageKey(userID string, isModified bool, now time.Time) string {
	prefix := "gen_"
	if isModified {
		prefix = "mod_"
	}
	return a.rootFolder + "/" + userID + "/" + prefix + now.Format(filenameLayout) + ".png"
}

// publish is fire-and-forget with a short leash so a dead broker cannot slow
// a generation down.
func (a *App) publish(event events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.publisher.Publish(ctx, event); err != nil {
		util.LoggerFromContext(ctx).Debug("event publish failed", "type", event.Type, "error", err)
	}
}
