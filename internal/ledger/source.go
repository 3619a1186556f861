package ledger

import (
	"context"
	"fmt"

	"github.com/five82/galley/internal/controller"
	"github.com/five82/galley/internal/grid"
	"github.com/five82/galley/internal/schema"
)

// Source binds a Client to one grid's list and save endpoints.
type Source struct {
	client *Client
	def    schema.Definition
}

var _ controller.DataSource = (*Source)(nil)

// Source returns the data source for def.
func (c *Client) Source(def schema.Definition) *Source {
	return &Source{client: c, def: def}
}

// FetchRows loads the grid's rows for filter.
func (s *Source) FetchRows(ctx context.Context, filter grid.Filter) ([]grid.Row, error) {
	rows, err := s.client.List(ctx, s.def.List, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.def.Name, err)
	}
	out := make([]grid.Row, len(rows))
	for i, r := range rows {
		out[i] = grid.Row(r)
	}
	return out, nil
}

// SaveChanges posts the change records.
func (s *Source) SaveChanges(ctx context.Context, records []grid.ChangeRecord) (controller.SaveResponse, error) {
	reply, err := s.client.Save(ctx, s.def.Save, records)
	if err != nil {
		return controller.SaveResponse{}, err
	}
	return controller.SaveResponse{Success: reply.Success, Message: reply.Message}, nil
}
