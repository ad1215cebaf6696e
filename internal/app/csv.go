package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clssck/VeevaBro/internal/csvdoc"
	"github.com/clssck/VeevaBro/internal/store"
)

// Export is a generated CSV and where it was saved.
type Export struct {
	Document *csvdoc.Document
	Location string // empty when no exporter is configured
}

// BuildCSV builds the document for the current form values without saving it.
func (a *App) BuildCSV(ctx context.Context) (*csvdoc.Document, error) {
	f := a.form.State()
	doc, err := csvdoc.Build(f.ObjectType, f.Lifecycle, f.ObjectIDs, a.cfg.IDRule, a.now())
	if err != nil {
		return nil, a.fail(ctx, err)
	}
	return doc, nil
}

// GenerateCSV builds the document for the current form values and saves it
// through the exporter.
func (a *App) GenerateCSV(ctx context.Context) (*Export, error) {
	doc, err := a.BuildCSV(ctx)
	if err != nil {
		return nil, err
	}

	out := &Export{Document: doc}
	if a.exporter != nil {
		loc, err := a.exporter.Export(ctx, doc.Filename, doc.ContentType, doc.Content)
		if err != nil {
			return nil, a.fail(ctx, fmt.Errorf("saving %s: %w", doc.Filename, err))
		}
		out.Location = loc
	}

	a.report(ctx, store.LevelInfo, "CSV file generated and downloaded",
		zap.String("file", doc.Filename),
		zap.Int("rows", doc.Rows),
		zap.String("location", out.Location),
	)
	return out, nil
}
