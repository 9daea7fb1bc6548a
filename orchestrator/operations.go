package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	foundry "github.com/NateBaldwinDesign/design-system-foundry-sub006"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/gitrepo"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/internal/hydrate"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/pkg/activity"
	"github.com/NateBaldwinDesign/design-system-foundry-sub006/schema"
)

// SaveOptions selects how a save reaches the repository.
type SaveOptions struct {
	// Message is the commit message; a default is derived when empty.
	Message string
	// Direct commits to the bound branch. When false the save goes through
	// a fresh branch and a pull request.
	Direct bool
	// PRTitle and PRBody describe the pull request for staged saves.
	PRTitle string
	PRBody  string
}

// SaveReceipt reports where a save landed.
type SaveReceipt struct {
	Branch      string
	PullRequest *gitrepo.PullRequest
}

// RefreshCause names why a refresh was requested; it decides which cached
// state survives the reload.
type RefreshCause int

const (
	// RefreshManual is a user-driven reload. Local content, baseline, and
	// the repository's permission cache entry are all dropped.
	RefreshManual RefreshCause = iota
	// RefreshBranchSwitch reloads after the binding moved to another branch.
	// Write access is repository-scoped, so the permission entry survives.
	RefreshBranchSwitch
	// RefreshEditExit reloads when an edit session ends without saving.
	// Only content and baseline reset; permissions survive.
	RefreshEditExit
)

func (c RefreshCause) preservesPermissions() bool {
	return c != RefreshManual
}

// RefreshOptions controls which local state a refresh preserves.
type RefreshOptions struct {
	Cause RefreshCause
}

// Load fetches the document bound to target, decodes and validates it, and
// installs it as the layer's content and baseline. A missing file on an
// otherwise reachable branch is bootstrapped: a minimal document is committed
// immediately and used as the baseline.
func (o *Orchestrator) Load(ctx context.Context, target foundry.SourceContext) error {
	return o.enqueue(ctx, func(ctx context.Context) error {
		return o.load(ctx, target)
	})
}

// Refresh re-fetches the bound document and replaces local content and
// baseline with the remote state.
func (o *Orchestrator) Refresh(ctx context.Context, target foundry.SourceContext, opts RefreshOptions) error {
	return o.enqueue(ctx, func(ctx context.Context) error {
		binding, err := o.binding(target)
		if err != nil {
			return err
		}
		if !opts.Cause.preservesPermissions() {
			o.perms.Invalidate(binding.RepositoryURI)
		}
		return o.load(ctx, target)
	})
}

// Save validates and serializes the layer's current document and writes it
// back, either directly to the bound branch or via a branch and pull
// request. The baseline moves to the saved content on success.
func (o *Orchestrator) Save(ctx context.Context, target foundry.SourceContext, opts SaveOptions) (SaveReceipt, error) {
	var receipt SaveReceipt
	err := o.enqueue(ctx, func(ctx context.Context) error {
		var err error
		receipt, err = o.save(ctx, target, opts)
		return err
	})
	return receipt, err
}

// Export serializes the layer's current document for downstream consumption.
// It is stricter than Save: local unsaved edits or a diverged remote block it
// until the caller saves or reloads.
func (o *Orchestrator) Export(ctx context.Context, target foundry.SourceContext) ([]byte, error) {
	var content []byte
	err := o.enqueue(ctx, func(ctx context.Context) error {
		var err error
		content, err = o.export(ctx, target)
		return err
	})
	return content, err
}

func (o *Orchestrator) export(ctx context.Context, target foundry.SourceContext) ([]byte, error) {
	binding, err := o.binding(target)
	if err != nil {
		return nil, err
	}
	doc, err := o.current(target, binding)
	if err != nil {
		return nil, err
	}
	if count := o.tracker.DiffCount(doc); count > 0 {
		return nil, &foundry.ValidationError{
			Layer:  doc.Kind,
			Issues: []string{fmt.Sprintf("%d unsaved change(s) against baseline; save or reload before exporting", count)},
		}
	}

	remote, err := o.fetch(ctx, binding)
	switch {
	case err == nil:
		if err := o.guardDivergence(ctx, binding, doc, remote.Content); err != nil {
			return nil, err
		}
	case foundry.IsNotFound(err):
		// Never written; nothing to have diverged from.
	default:
		return nil, normalizeRepoError(binding, err)
	}
	return marshalDocument(doc)
}

func (o *Orchestrator) load(ctx context.Context, target foundry.SourceContext) error {
	binding, err := o.binding(target)
	if err != nil {
		return err
	}

	fc, err := o.fetch(ctx, binding)
	if foundry.IsNotFound(err) {
		return o.bootstrap(ctx, target, binding)
	}
	if err != nil {
		return normalizeRepoError(binding, err)
	}

	doc, err := o.decode(binding, fc.Content)
	if err != nil {
		return err
	}
	if err := o.validate(doc); err != nil {
		return err
	}
	if err := o.install(doc); err != nil {
		return err
	}
	o.tracker.SetBaseline(doc)

	if o.emitter != nil {
		o.emitter.Emit(ctx, activity.BuildLayerLoadedEvent(activity.EventInput{
			Layer:         doc.Kind.String(),
			LayerID:       doc.LayerID(),
			RepositoryURI: binding.RepositoryURI,
		}))
	}
	return nil
}

// fetch reads through the authenticated client, falling back once to the
// anonymous client for public repositories when the authenticated read fails
// for any reason other than a missing file.
func (o *Orchestrator) fetch(ctx context.Context, binding foundry.RepositoryBinding) (gitrepo.FileContent, error) {
	fc, err := o.repo.GetFileContent(ctx, binding.RepositoryURI, binding.FilePath, binding.Branch)
	if err == nil || foundry.IsNotFound(err) || o.fallback == nil {
		return fc, err
	}
	o.logger.Warn("authenticated read failed, retrying anonymously",
		"repository", binding.RepositoryURI, "path", binding.FilePath, "error", err)
	anon, anonErr := o.fallback.GetFileContent(ctx, binding.RepositoryURI, binding.FilePath, binding.Branch)
	if anonErr != nil {
		// Report the authenticated failure; the fallback was best effort.
		return gitrepo.FileContent{}, err
	}
	return anon, nil
}

func (o *Orchestrator) decode(binding foundry.RepositoryBinding, content []byte) (foundry.LayerDocument, error) {
	hctx := hydrate.Context{
		RepositoryURI: binding.RepositoryURI,
		FilePath:      binding.FilePath,
		Kind:          binding.Kind,
	}
	if hctx.Kind == foundry.LayerUnknown {
		hctx.Kind = hydrate.SniffLayerKind(content)
	}
	switch hctx.Kind {
	case foundry.LayerCore:
		doc, err := hydrate.NewDecoder[foundry.CoreDocument]().DecodeBytes(hctx, content)
		if err != nil {
			return foundry.LayerDocument{}, err
		}
		return foundry.CoreLayerDocument(doc), nil
	case foundry.LayerPlatformExtension:
		ext, err := hydrate.NewDecoder[foundry.PlatformExtension]().DecodeBytes(hctx, content)
		if err != nil {
			return foundry.LayerDocument{}, err
		}
		return foundry.PlatformLayerDocument(ext), nil
	case foundry.LayerThemeOverride:
		ov, err := hydrate.NewDecoder[foundry.ThemeOverride]().DecodeBytes(hctx, content)
		if err != nil {
			return foundry.LayerDocument{}, err
		}
		return foundry.ThemeLayerDocument(ov), nil
	default:
		return foundry.LayerDocument{}, fmt.Errorf("orchestrator: cannot determine layer kind of %s", binding.FilePath)
	}
}

func (o *Orchestrator) validate(doc foundry.LayerDocument) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	var core *foundry.CoreDocument
	if loaded, ok := o.stores.Core(); ok {
		core = &loaded
	}
	var result schema.Result
	switch doc.Kind {
	case foundry.LayerCore:
		result = schema.ValidateCoreData(*doc.Core)
	case foundry.LayerPlatformExtension:
		result = schema.ValidatePlatformExtension(*doc.Platform, core)
	case foundry.LayerThemeOverride:
		result = schema.ValidateThemeOverrideFile(*doc.Theme, core)
	}
	if !result.IsValid {
		return &foundry.ValidationError{Layer: doc.Kind, Issues: result.Messages()}
	}
	return nil
}

func (o *Orchestrator) install(doc foundry.LayerDocument) error {
	switch doc.Kind {
	case foundry.LayerCore:
		o.stores.SetCore(*doc.Core)
		return nil
	case foundry.LayerPlatformExtension:
		return o.stores.SetPlatformExtension(*doc.Platform)
	case foundry.LayerThemeOverride:
		return o.stores.SetThemeOverride(*doc.Theme)
	default:
		return doc.Validate()
	}
}

// current returns the layer's document from the stores.
func (o *Orchestrator) current(target foundry.SourceContext, binding foundry.RepositoryBinding) (foundry.LayerDocument, error) {
	switch target.Kind() {
	case foundry.SourcePlatform:
		platformID, _ := target.PlatformID()
		if ext, ok := o.stores.PlatformExtension(platformID); ok {
			return foundry.PlatformLayerDocument(ext), nil
		}
	case foundry.SourceTheme:
		themeID, _ := target.ThemeID()
		if ov, ok := o.stores.ThemeOverride(themeID); ok {
			return foundry.ThemeLayerDocument(ov), nil
		}
	default:
		if core, ok := o.stores.Core(); ok {
			return foundry.CoreLayerDocument(core), nil
		}
	}
	return foundry.LayerDocument{}, &foundry.NotFoundError{
		RepositoryURI: binding.RepositoryURI,
		FilePath:      binding.FilePath,
		Branch:        binding.Branch,
	}
}

func (o *Orchestrator) save(ctx context.Context, target foundry.SourceContext, opts SaveOptions) (SaveReceipt, error) {
	binding, err := o.binding(target)
	if err != nil {
		return SaveReceipt{}, err
	}
	doc, err := o.current(target, binding)
	if err != nil {
		return SaveReceipt{}, err
	}
	if err := o.validate(doc); err != nil {
		return SaveReceipt{}, err
	}

	content, err := marshalDocument(doc)
	if err != nil {
		return SaveReceipt{}, err
	}
	if len(content) > o.sizeLimit {
		return SaveReceipt{}, &foundry.SizeLimitError{Layer: doc.Kind, Size: len(content), Limit: o.sizeLimit}
	}
	if !o.perms.HasWriteAccess(ctx, binding.RepositoryURI) {
		return SaveReceipt{}, &foundry.PermissionError{RepositoryURI: binding.RepositoryURI}
	}

	// The remote read serves two purposes: the blob SHA for the update and
	// the divergence gate against the baseline.
	sha := ""
	remote, err := o.fetch(ctx, binding)
	switch {
	case err == nil:
		sha = remote.SHA
		if err := o.guardDivergence(ctx, binding, doc, remote.Content); err != nil {
			return SaveReceipt{}, err
		}
	case foundry.IsNotFound(err):
		// First save of a bootstrap-less layer; fall through to create.
	default:
		return SaveReceipt{}, normalizeRepoError(binding, err)
	}

	message := opts.Message
	if message == "" {
		message = fmt.Sprintf("Update %s", binding.FilePath)
	}

	receipt := SaveReceipt{Branch: binding.Branch}
	if opts.Direct {
		if err := o.write(ctx, binding, binding.Branch, content, sha, message); err != nil {
			return SaveReceipt{}, err
		}
	} else {
		branch := "foundry/save-" + uuid.NewString()[:8]
		if err := o.repo.CreateBranch(ctx, binding.RepositoryURI, binding.Branch, branch); err != nil {
			return SaveReceipt{}, normalizeRepoError(binding, err)
		}
		if err := o.write(ctx, binding, branch, content, sha, message); err != nil {
			return SaveReceipt{}, err
		}
		title := opts.PRTitle
		if title == "" {
			title = message
		}
		pr, err := o.repo.CreatePullRequest(ctx, binding.RepositoryURI, title, opts.PRBody, branch, binding.Branch)
		if err != nil {
			return SaveReceipt{}, normalizeRepoError(binding, err)
		}
		receipt.Branch = branch
		receipt.PullRequest = &pr
	}

	o.tracker.SetBaseline(doc)
	if o.emitter != nil {
		o.emitter.Emit(ctx, activity.BuildLayerSavedEvent(activity.EventInput{
			Layer:         doc.Kind.String(),
			LayerID:       doc.LayerID(),
			RepositoryURI: binding.RepositoryURI,
			Metadata:      saveMetadata(receipt, opts.Direct),
		}))
	}
	return receipt, nil
}

func (o *Orchestrator) write(ctx context.Context, binding foundry.RepositoryBinding, branch string, content []byte, sha, message string) error {
	var err error
	if sha == "" {
		err = o.repo.CreateFile(ctx, binding.RepositoryURI, binding.FilePath, content, branch, message)
	} else {
		err = o.repo.UpdateFile(ctx, binding.RepositoryURI, binding.FilePath, content, sha, branch, message)
	}
	if err != nil {
		return normalizeRepoError(binding, err)
	}
	return nil
}

// bootstrap seeds a missing file with a minimal schema-compliant document,
// commits it, and installs it as content and baseline.
func (o *Orchestrator) bootstrap(ctx context.Context, target foundry.SourceContext, binding foundry.RepositoryBinding) error {
	doc := o.seedDocument(target)
	content, err := marshalDocument(doc)
	if err != nil {
		return err
	}
	message := fmt.Sprintf("Initialize %s", binding.FilePath)
	if err := o.repo.CreateFile(ctx, binding.RepositoryURI, binding.FilePath, content, binding.Branch, message); err != nil {
		return normalizeRepoError(binding, err)
	}
	if err := o.install(doc); err != nil {
		return err
	}
	o.tracker.SetBaseline(doc)

	if o.emitter != nil {
		o.emitter.Emit(ctx, activity.BuildLayerBootstrappedEvent(activity.EventInput{
			Layer:         doc.Kind.String(),
			LayerID:       doc.LayerID(),
			RepositoryURI: binding.RepositoryURI,
		}))
	}
	return nil
}

func (o *Orchestrator) seedDocument(target foundry.SourceContext) foundry.LayerDocument {
	systemID := ""
	if core, ok := o.stores.Core(); ok {
		systemID = core.SystemID
	}
	switch target.Kind() {
	case foundry.SourcePlatform:
		platformID, _ := target.PlatformID()
		return foundry.PlatformLayerDocument(foundry.PlatformExtension{
			SystemID:   systemID,
			PlatformID: platformID,
			Version:    "1.0.0",
		})
	case foundry.SourceTheme:
		themeID, _ := target.ThemeID()
		return foundry.ThemeLayerDocument(foundry.ThemeOverride{
			SystemID: systemID,
			ThemeID:  themeID,
		})
	default:
		if systemID == "" {
			systemID = uuid.NewString()
		}
		return foundry.CoreLayerDocument(foundry.CoreDocument{
			SystemID:   systemID,
			SystemName: "Design System",
			Version:    "1.0.0",
		})
	}
}

func marshalDocument(doc foundry.LayerDocument) ([]byte, error) {
	var payload any
	switch doc.Kind {
	case foundry.LayerCore:
		payload = doc.Core
	case foundry.LayerPlatformExtension:
		payload = doc.Platform
	case foundry.LayerThemeOverride:
		payload = doc.Theme
	default:
		return nil, doc.Validate()
	}
	content, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("orchestrator: serialize document: %w", err)
	}
	return append(content, '\n'), nil
}

// normalizeRepoError folds host responses into the typed error set. Auth
// rejections become permission errors; everything else passes through.
// guardDivergence compares fetched remote content against the layer's
// baseline and returns a DivergenceError when they no longer agree. Remote
// content that fails to decode cannot match any baseline, so with one
// recorded it counts as diverged; without one the decode failure itself is
// surfaced.
func (o *Orchestrator) guardDivergence(ctx context.Context, binding foundry.RepositoryBinding, doc foundry.LayerDocument, content []byte) error {
	remoteDoc, decodeErr := o.decode(binding, content)
	if decodeErr != nil {
		if _, ok := o.tracker.Baseline(doc.Kind, doc.LayerID()); !ok {
			return decodeErr
		}
	} else if !o.tracker.Diverged(remoteDoc) {
		return nil
	}
	if o.emitter != nil {
		o.emitter.Emit(ctx, activity.BuildDivergenceDetectedEvent(activity.EventInput{
			Layer:         doc.Kind.String(),
			LayerID:       doc.LayerID(),
			RepositoryURI: binding.RepositoryURI,
		}))
	}
	return &foundry.DivergenceError{Layer: doc.Kind, LayerID: doc.LayerID()}
}

// saveMetadata describes where a save landed for the layer-saved event.
func saveMetadata(receipt SaveReceipt, direct bool) map[string]any {
	meta := map[string]any{
		"branch": receipt.Branch,
		"direct": direct,
	}
	if receipt.PullRequest != nil {
		meta["pullRequest"] = receipt.PullRequest.Number
	}
	return meta
}

func normalizeRepoError(binding foundry.RepositoryBinding, err error) error {
	if err == nil {
		return nil
	}
	var status *gitrepo.StatusError
	if errors.As(err, &status) && (status.Status == 401 || status.Status == 403) {
		return &foundry.PermissionError{RepositoryURI: binding.RepositoryURI, Err: err}
	}
	return err
}
