package commit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pattamap/server/internal/grid"
)

type establishmentDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Icon    string `json:"icon"`
	GridRow int    `json:"grid_row"`
	GridCol int    `json:"grid_col"`
}

type listResponse struct {
	Zone           string             `json:"zone"`
	Establishments []establishmentDTO `json:"establishments"`
}

// List fetches the authoritative establishment list for the client's zone.
func (c *Client) List(ctx context.Context) ([]grid.Entity, error) {
	var out listResponse
	if err := c.getJSON(ctx, c.zoneURL("establishments"), &out); err != nil {
		return nil, fmt.Errorf("list establishments: %w", err)
	}
	entities := make([]grid.Entity, 0, len(out.Establishments))
	for _, e := range out.Establishments {
		entities = append(entities, grid.Entity{
			ID:      e.ID,
			Pos:     grid.Position{Row: e.GridRow, Col: e.GridCol},
			Display: grid.Display{Name: e.Name, Icon: e.Icon, Type: e.Type},
		})
	}
	return entities, nil
}

// Identity is the caller as seen by the server.
type Identity struct {
	Name    string `json:"name"`
	CanEdit bool   `json:"can_edit"`
}

// Me returns the editor identity for the configured token.
// An unauthenticated caller is a valid, read-only identity rather than an error.
func (c *Client) Me(ctx context.Context) (Identity, error) {
	var id Identity
	err := c.getJSON(ctx, c.baseURL+"/api/me", &id)
	var ce *Error
	if errors.As(err, &ce) && ce.Status == http.StatusUnauthorized {
		return Identity{}, nil
	}
	if err != nil {
		return Identity{}, fmt.Errorf("fetch identity: %w", err)
	}
	return id, nil
}

func (c *Client) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		return &Error{Kind: classify(resp.StatusCode, string(b)), Status: resp.StatusCode, Body: string(b)}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}
