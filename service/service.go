// Package service answers move requests over NATS.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"cyd/config"
	"cyd/engine"
)

// QueueGroup lets several daemons share one subject.
const QueueGroup = "cyd-workers"

// MaxRequestDepth bounds the depth a single request may ask for.
const MaxRequestDepth = 12

// Request asks for the best move either from a FEN or from a move history
// played from the start position. FEN wins when both are set. Zero depth or
// threads fall back to the daemon's configuration.
type Request struct {
	ID      string `json:"id,omitempty"`
	FEN     string `json:"fen,omitempty"`
	Moves   string `json:"moves,omitempty"`
	Depth   int    `json:"depth,omitempty"`
	Threads int    `json:"threads,omitempty"`
}

type Response struct {
	ID    string `json:"id"`
	Move  string `json:"move,omitempty"`
	Score int32  `json:"score"`
	Error string `json:"error,omitempty"`
}

var ErrBadRequest = errors.New("bad request")

type Service struct {
	cfg  *config.Config
	book engine.Book
}

// New reads the configured opening book once; every request gets its own
// table seeded from it.
func New(cfg *config.Config) *Service {
	return &Service{cfg: cfg, book: engine.OpenBook(cfg.BookPath)}
}

// Handle decodes one request and encodes its reply. Failures are reported in
// the reply's error field.
func (s *Service) Handle(ctx context.Context, data []byte) []byte {
	var req Request
	var resp Response
	if err := json.Unmarshal(data, &req); err != nil {
		resp = Response{ID: uuid.NewString(), Error: fmt.Errorf("%w: %v", ErrBadRequest, err).Error()}
	} else {
		resp = s.FindMove(ctx, req)
	}
	out, err := json.Marshal(resp)
	if err != nil {
		// Response only holds strings and ints.
		log.Err(err).Msg("encode-response")
		return []byte(`{"error":"internal"}`)
	}
	return out
}

func (s *Service) FindMove(ctx context.Context, req Request) Response {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	resp := Response{ID: req.ID}
	logger := log.With().Str("req-id", req.ID).Logger()

	pos, depth, threads, err := s.prepare(req)
	if err != nil {
		logger.Info().Err(err).Msg("rejected-request")
		resp.Error = err.Error()
		return resp
	}

	start := time.Now()
	tt := s.book.NewTransTable()
	res, err := engine.SearchParallel(ctx, pos, depth, threads, tt, s.cfg.SearchOptions())
	if err != nil {
		logger.Err(err).Msg("search-failed")
		resp.Error = err.Error()
		return resp
	}
	if res.Move == 0 {
		resp.Error = "no legal moves"
		return resp
	}
	resp.Move = res.Move.String()
	resp.Score = int32(res.Score)
	logger.Info().Str("move", resp.Move).Int32("score", resp.Score).
		Int("depth", depth).Int("threads", threads).
		Dur("elapsed", time.Since(start)).Msg("found-move")
	return resp
}

func (s *Service) prepare(req Request) (*engine.Position, int, int, error) {
	depth, threads := req.Depth, req.Threads
	if depth == 0 {
		depth = s.cfg.Depth
	}
	if threads == 0 {
		threads = s.cfg.Threads
	}
	if depth < 1 || depth > MaxRequestDepth {
		return nil, 0, 0, fmt.Errorf("%w: depth %d outside 1..%d", ErrBadRequest, depth, MaxRequestDepth)
	}
	if threads < 1 {
		return nil, 0, 0, fmt.Errorf("%w: threads %d", ErrBadRequest, threads)
	}

	if req.FEN != "" {
		pos, err := engine.NewPosition(req.FEN)
		return pos, depth, threads, err
	}
	pos, err := engine.ReplayMoves(req.Moves)
	return pos, depth, threads, err
}

// Connect dials url, retrying with backoff until ctx is done.
func Connect(ctx context.Context, url string) (*nats.Conn, error) {
	return retry.DoWithData(
		func() (*nats.Conn, error) {
			return nats.Connect(url, nats.Name("cyd"))
		},
		retry.Context(ctx),
		retry.Attempts(10),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			log.Err(err).Uint("n", n).Str("url", url).Msg("nats-connect-retry")
		}),
	)
}

// Serve answers requests on the configured subject until ctx is done, then
// drains the subscription.
func (s *Service) Serve(ctx context.Context, nc *nats.Conn) error {
	sub, err := nc.QueueSubscribe(s.cfg.Subject, QueueGroup, func(m *nats.Msg) {
		log.Debug().Int("bytes", len(m.Data)).Msg("request-received")
		if err := m.Respond(s.Handle(ctx, m.Data)); err != nil {
			log.Err(err).Msg("respond-failed")
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", s.cfg.Subject, err)
	}
	if err := nc.Flush(); err != nil {
		return err
	}
	if err := nc.LastError(); err != nil {
		return err
	}
	log.Info().Str("subject", s.cfg.Subject).Msg("listening")

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return err
	}
	return nil
}

// Requester is the part of *nats.Conn a Client needs.
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// Client sends requests to a running service.
type Client struct {
	nc      Requester
	subject string
	timeout time.Duration
}

func NewClient(nc Requester, subject string, timeout time.Duration) *Client {
	return &Client{nc: nc, subject: subject, timeout: timeout}
}

// FindMove asks the service for a move. A reply carrying an error is returned
// together with that error.
func (c *Client) FindMove(ctx context.Context, req Request) (Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	msg, err := c.nc.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		return Response{}, fmt.Errorf("requesting move: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return Response{}, fmt.Errorf("decoding reply: %w", err)
	}
	if resp.Error != "" {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}
