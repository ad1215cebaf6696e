// Package form keeps the in-progress popup form: object type, lifecycle state
// and the raw id list. Every change is persisted as a draft so a reopened
// popup shows the same values. Generating and uploading CSVs live elsewhere.
package form

import (
	"context"
	"fmt"
	"sync"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/clssck/VeevaBro/internal/catalog"
	"github.com/clssck/VeevaBro/internal/errs"
	"github.com/clssck/VeevaBro/internal/store"
)

// DraftStore persists the form draft.
type DraftStore interface {
	LoadDraft(ctx context.Context) (store.FormDraft, bool, error)
	SaveDraft(ctx context.Context, d store.FormDraft) error
	ClearDraft(ctx context.Context) error
}

// View is what a surface renders: both selectors with their options and the
// current values.
type View struct {
	Objects    []catalog.Object `json:"objects"`
	ObjectType string           `json:"objectType"`
	States     []catalog.State  `json:"states"`
	Lifecycle  string           `json:"lifecycle"`
	ObjectIDs  string           `json:"objectIds"`
}

type Controller struct {
	catalog *catalog.Catalog
	drafts  DraftStore

	mu    sync.Mutex
	state store.FormDraft
}

// New creates a controller showing the catalog defaults. Call Restore to
// load a saved draft.
func New(c *catalog.Catalog, drafts DraftStore) *Controller {
	if c == nil {
		c = catalog.Empty()
	}
	ctl := &Controller{catalog: c, drafts: drafts}
	ctl.state = ctl.defaults()
	return ctl
}

func (c *Controller) defaults() store.FormDraft {
	return store.FormDraft{ObjectType: c.catalog.First()}
}

// Catalog returns the catalog the selectors are populated from.
func (c *Controller) Catalog() *catalog.Catalog {
	return c.catalog
}

// Restore loads the saved draft. An object type no longer in the catalog
// falls back to the first one; a lifecycle not offered for the restored
// object type is left unselected. The id text is restored verbatim.
func (c *Controller) Restore(ctx context.Context) (View, error) {
	l := ctxzap.Extract(ctx)

	draft, ok, err := c.drafts.LoadDraft(ctx)
	if err != nil {
		return c.View(), fmt.Errorf("loading form draft: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !ok {
		c.state = c.defaults()
		return c.viewLocked(), nil
	}

	state := draft
	if _, known := c.catalog.Object(state.ObjectType); !known {
		if state.ObjectType != "" {
			l.Warn("saved object type not in catalog", zap.String("object_type", state.ObjectType))
		}
		state.ObjectType = c.catalog.First()
	}
	if state.Lifecycle != "" && !c.catalog.HasState(state.ObjectType, state.Lifecycle) {
		l.Warn("saved lifecycle not offered for object type",
			zap.String("object_type", state.ObjectType),
			zap.String("lifecycle", state.Lifecycle),
		)
		state.Lifecycle = ""
	}
	c.state = state

	l.Debug("form draft restored", zap.Any("draft", state))
	return c.viewLocked(), nil
}

// SelectObjectType switches the object type and repopulates the lifecycle
// options. The current lifecycle stays selected only if the new object type
// offers it.
func (c *Controller) SelectObjectType(ctx context.Context, objectType string) (View, error) {
	if _, ok := c.catalog.Object(objectType); !ok {
		return c.View(), unknownObject(c.catalog, objectType)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.ObjectType = objectType
	if !c.catalog.HasState(objectType, c.state.Lifecycle) {
		c.state.Lifecycle = ""
	}
	return c.viewLocked(), c.persistLocked(ctx)
}

// SelectLifecycle selects a lifecycle state of the current object type.
// An empty value clears the selection.
func (c *Controller) SelectLifecycle(ctx context.Context, lifecycle string) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if lifecycle != "" && !c.catalog.HasState(c.state.ObjectType, lifecycle) {
		return c.viewLocked(), unknownState(c.catalog, c.state.ObjectType, lifecycle)
	}
	c.state.Lifecycle = lifecycle
	return c.viewLocked(), c.persistLocked(ctx)
}

// SetObjectIDs stores the raw id text. It is validated only when a CSV is built.
func (c *Controller) SetObjectIDs(ctx context.Context, raw string) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.ObjectIDs = raw
	return c.viewLocked(), c.persistLocked(ctx)
}

// Reset clears the saved draft and shows the defaults: first object type,
// no lifecycle, no ids.
func (c *Controller) Reset(ctx context.Context) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = c.defaults()
	if err := c.drafts.ClearDraft(ctx); err != nil {
		return c.viewLocked(), fmt.Errorf("clearing form draft: %w", err)
	}
	ctxzap.Extract(ctx).Info("form reset")
	return c.viewLocked(), nil
}

// State returns the current field values.
func (c *Controller) State() store.FormDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View returns the current render state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	return View{
		Objects:    c.catalog.Objects(),
		ObjectType: c.state.ObjectType,
		States:     c.catalog.States(c.state.ObjectType),
		Lifecycle:  c.state.Lifecycle,
		ObjectIDs:  c.state.ObjectIDs,
	}
}

func (c *Controller) persistLocked(ctx context.Context) error {
	if err := c.drafts.SaveDraft(ctx, c.state); err != nil {
		ctxzap.Extract(ctx).Error("failed to save form draft", zap.Error(err))
		return fmt.Errorf("saving form draft: %w", err)
	}
	return nil
}

func unknownObject(cat *catalog.Catalog, value string) error {
	msg := "not in the catalog"
	if s := cat.SuggestObject(value); s != "" {
		msg = fmt.Sprintf("not in the catalog (did you mean %s?)", s)
	}
	return errs.NewValidationError("object type", value, msg)
}

func unknownState(cat *catalog.Catalog, objectType, value string) error {
	msg := fmt.Sprintf("not a lifecycle state of %s", objectType)
	if s := cat.SuggestState(objectType, value); s != "" {
		msg += fmt.Sprintf(" (did you mean %s?)", s)
	}
	return errs.NewValidationError("lifecycle state", value, msg)
}
