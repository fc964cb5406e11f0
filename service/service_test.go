package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyd/config"
	"cyd/engine"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func testService() *Service {
	cfg := config.DefaultConfig()
	cfg.BookPath = ""
	cfg.Depth = 1
	return New(cfg)
}

func roundTrip(t *testing.T, s *Service, req any) Response {
	data, err := json.Marshal(req)
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal(s.Handle(context.Background(), data), &resp))
	return resp
}

func TestHandleFEN(t *testing.T) {
	resp := roundTrip(t, testService(), Request{ID: "abc", FEN: "2k5/8/4q3/8/2B5/8/8/1K6 w - - 0 1"})
	assert.Equal(t, "abc", resp.ID)
	assert.Empty(t, resp.Error)
	assert.Equal(t, "c4e6", resp.Move)
	assert.Greater(t, resp.Score, int32(0))
}

func TestHandleMoves(t *testing.T) {
	resp := roundTrip(t, testService(), Request{Moves: "e2e4 e7e5", Depth: 1, Threads: 2})
	require.Empty(t, resp.Error)
	assert.NotEmpty(t, resp.ID)

	pos, err := engine.ReplayMoves("e2e4 e7e5")
	require.NoError(t, err)
	_, err = pos.ParseUCIMove(resp.Move)
	assert.NoError(t, err, "reply must be legal for white")
}

func TestHandleErrors(t *testing.T) {
	s := testService()
	cases := []struct {
		name string
		req  Request
	}{
		{"invalid fen", Request{FEN: "not a fen"}},
		{"illegal move", Request{Moves: "e2e4 e2e4"}},
		{"depth too large", Request{Depth: MaxRequestDepth + 1}},
		{"negative threads", Request{Threads: -1}},
		{"checkmated", Request{FEN: "k6R/8/1K6/8/8/8/8/8 b - - 0 1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := roundTrip(t, s, tc.req)
			assert.NotEmpty(t, resp.Error)
			assert.Empty(t, resp.Move)
		})
	}
}

func TestHandleMalformedJSON(t *testing.T) {
	var resp Response
	out := testService().Handle(context.Background(), []byte("{"))
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Contains(t, resp.Error, ErrBadRequest.Error())
	assert.NotEmpty(t, resp.ID)
}

func TestNewReadsBookOnce(t *testing.T) {
	start := engine.StartPosition()
	d2d4, err := start.ParseUCIMove("d2d4")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "book.json")
	contents := `{"` + strconv.FormatUint(start.Hash(), 10) + `": [` + strconv.Itoa(int(d2d4)) + `, true]}`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg := config.DefaultConfig()
	cfg.BookPath = path
	cfg.Depth = 1
	s := New(cfg)
	require.NoError(t, os.Remove(path))

	for i := 0; i < 2; i++ {
		entry, ok := s.book.NewTransTable().Get(start.Hash())
		require.True(t, ok)
		assert.Equal(t, d2d4, entry.Move)
		assert.Equal(t, engine.BookValue, entry.Value)

		resp := roundTrip(t, s, Request{})
		require.Empty(t, resp.Error)
		_, err := start.ParseUCIMove(resp.Move)
		assert.NoError(t, err)
	}
}

// handlerRequester answers requests in-process through a Service.
type handlerRequester struct {
	s        *Service
	subjects []string
}

func (h *handlerRequester) RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error) {
	h.subjects = append(h.subjects, subj)
	return &nats.Msg{Subject: subj, Data: h.s.Handle(ctx, data)}, nil
}

type failingRequester struct{}

func (failingRequester) RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error) {
	return nil, nats.ErrTimeout
}

type garbageRequester struct{}

func (garbageRequester) RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error) {
	return &nats.Msg{Data: []byte("not json")}, nil
}

func TestClientFindMove(t *testing.T) {
	rq := &handlerRequester{s: testService()}
	c := NewClient(rq, "cyd.findmove", time.Second)

	resp, err := c.FindMove(context.Background(), Request{ID: "r1", FEN: "2k5/8/4q3/8/2B5/8/8/1K6 w - - 0 1"})
	require.NoError(t, err)
	assert.Equal(t, "r1", resp.ID)
	assert.Equal(t, "c4e6", resp.Move)
	assert.Equal(t, []string{"cyd.findmove"}, rq.subjects)
}

func TestClientFindMoveErrors(t *testing.T) {
	c := NewClient(&handlerRequester{s: testService()}, "cyd.findmove", 0)
	resp, err := c.FindMove(context.Background(), Request{FEN: "not a fen"})
	require.Error(t, err)
	assert.Equal(t, resp.Error, err.Error())
	assert.NotEmpty(t, resp.ID)

	_, err = NewClient(failingRequester{}, "cyd.findmove", time.Second).FindMove(context.Background(), Request{})
	assert.True(t, errors.Is(err, nats.ErrTimeout))

	_, err = NewClient(garbageRequester{}, "cyd.findmove", time.Second).FindMove(context.Background(), Request{})
	assert.ErrorContains(t, err, "decoding reply")
}
