package commit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pattamap/server/internal/clock"
	"github.com/pattamap/server/internal/grid"
	"go.uber.org/zap"
)

// DefaultLockWindow is how long new drags stay blocked after a successful commit,
// giving server-side state time to propagate.
const DefaultLockWindow = 500 * time.Millisecond

const maxBodyBytes = 64 << 10

// Options configures a Client.
type Options struct {
	BaseURL    string // e.g. "http://localhost:8080"
	Zone       string
	Token      string // editor key, sent as a bearer token
	LockWindow time.Duration
	HTTPClient *http.Client
	Clock      clock.Clock
}

// Client talks to the zone-scoped move endpoint and owns the optimistic side of a commit.
type Client struct {
	baseURL    string
	zone       string
	token      string
	lockWindow time.Duration
	http       *http.Client
	clock      clock.Clock

	cfg   grid.Config
	board *grid.Board
	lock  *grid.Lock
	log   *zap.Logger
}

func New(opts Options, cfg grid.Config, board *grid.Board, lock *grid.Lock, log *zap.Logger) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		zone:       opts.Zone,
		token:      opts.Token,
		lockWindow: opts.LockWindow,
		http:       opts.HTTPClient,
		clock:      opts.Clock,
		cfg:        cfg,
		board:      board,
		lock:       lock,
		log:        log,
	}
	if c.lockWindow <= 0 {
		c.lockWindow = DefaultLockWindow
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.clock == nil {
		c.clock = clock.Real{}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

type moveRequest struct {
	EstablishmentID string `json:"establishmentId"`
	GridRow         int    `json:"grid_row"`
	GridCol         int    `json:"grid_col"`
	Zone            string `json:"zone"`
	SwapWithID      string `json:"swap_with_id,omitempty"`
}

// Commit moves entity to target, swapping with conflict when it is non-nil.
// Returns (false, nil) when target already is the entity's effective position.
// On any failure the optimistic positions are rolled back and a *Error is returned.
func (c *Client) Commit(ctx context.Context, entity grid.Entity, target grid.Position, conflict *grid.Entity) (bool, error) {
	if !c.cfg.Contains(target) {
		return false, &Error{Kind: KindBounds}
	}

	// A confirmed commit not yet folded into a refresh is where the server has the entity.
	origin := entity.Pos
	if eff, ok := c.board.Effective(entity.ID); ok {
		origin = eff
	}
	if origin == target {
		return false, nil
	}

	overlay := c.board.Overlay()
	req := overlay.NextRequest()
	positions := map[string]grid.Position{entity.ID: target}
	body := moveRequest{
		EstablishmentID: entity.ID,
		GridRow:         target.Row,
		GridCol:         target.Col,
		Zone:            c.zone,
	}
	if conflict != nil && conflict.ID != entity.ID {
		positions[conflict.ID] = origin
		body.SwapWithID = conflict.ID
	}
	overlay.Apply(req, positions)

	status, respBody, err := c.postMove(ctx, body)
	if err != nil {
		overlay.Rollback(req)
		kind := KindNetwork
		if ctx.Err() != nil {
			kind = KindTimeout
		}
		c.log.Warn("grid move request failed",
			zap.String("zone", c.zone),
			zap.String("establishment", entity.ID),
			zap.String("kind", kind.String()),
			zap.Error(err))
		return false, &Error{Kind: kind, Err: err}
	}
	if status < 200 || status > 299 {
		overlay.Rollback(req)
		kind := classify(status, respBody)
		c.log.Info("grid move rejected",
			zap.String("zone", c.zone),
			zap.String("establishment", entity.ID),
			zap.Int("status", status),
			zap.String("kind", kind.String()))
		return false, &Error{Kind: kind, Status: status, Body: respBody}
	}

	overlay.Confirm(req)
	c.lock.LockUntil(c.clock.Now().Add(c.lockWindow))
	c.log.Debug("grid move committed",
		zap.String("zone", c.zone),
		zap.String("establishment", entity.ID),
		zap.Stringer("target", target),
		zap.String("swap_with", body.SwapWithID))
	return true, nil
}

func (c *Client) postMove(ctx context.Context, body moveRequest) (int, string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, "", fmt.Errorf("encode move: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.zoneURL("grid-move"), bytes.NewReader(raw))
	if err != nil {
		return 0, "", fmt.Errorf("build move request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, "", fmt.Errorf("read move response: %w", err)
	}
	return resp.StatusCode, string(b), nil
}

func (c *Client) zoneURL(suffix string) string {
	return c.baseURL + "/api/zones/" + url.PathEscape(c.zone) + "/" + suffix
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
