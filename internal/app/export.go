package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/galley/internal/export"
	"github.com/five82/galley/internal/kv"
	"github.com/five82/galley/internal/schema"
)

// maxParallelFetches bounds concurrent list requests during an export.
const maxParallelFetches = 4

// Export fetches each named grid with its remembered filter and writes them
// as sheets of one workbook at path. No names means every grid.
func (e *Env) Export(ctx context.Context, names []string, path string) error {
	defs, err := e.resolveGrids(names)
	if err != nil {
		return err
	}

	sheets := make([]export.Sheet, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)
	for i, def := range defs {
		g.Go(func() error {
			sheet, err := e.fetchSheet(gctx, def)
			if err != nil {
				return err
			}
			sheets[i] = sheet
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := export.Write(path, sheets...); err != nil {
		return err
	}
	e.Logger.Info("exported workbook", zap.String("path", path), zap.Int("sheets", len(sheets)))
	return nil
}

func (e *Env) fetchSheet(ctx context.Context, def schema.Definition) (export.Sheet, error) {
	filter, err := kv.LoadFilter(ctx, e.Session, def.Name, def.DefaultFilter())
	if err != nil {
		e.Logger.Warn("load saved filter failed", zap.String("grid", def.Name), zap.Error(err))
	}
	ctl, err := e.Controller(def)
	if err != nil {
		return export.Sheet{}, err
	}
	defer ctl.Close()

	if _, err := ctl.SetFilter(ctx, filter); err != nil {
		return export.Sheet{}, err
	}
	snap := ctl.Snapshot()
	return export.Sheet{
		Name:     def.DisplayTitle(),
		Schema:   def.Schema(),
		Original: snap.Original,
		Working:  snap.Working,
	}, nil
}

func (e *Env) resolveGrids(names []string) ([]schema.Definition, error) {
	if len(names) == 0 {
		return e.Grids.Grids, nil
	}
	defs := make([]schema.Definition, 0, len(names))
	for _, name := range names {
		def, ok := e.Grids.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown grid %q (have %v)", name, e.Grids.Names())
		}
		defs = append(defs, def)
	}
	return defs, nil
}
