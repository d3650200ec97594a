package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zpam/mailtype/internal/logger"
	"github.com/zpam/mailtype/pkg/predict"
)

// Server answers requests read from r on w, one at a time.
type Server struct {
	predictor *predict.Predictor
	maxLimit  int

	dec *msgpack.Decoder
	out *bufio.Writer
	enc *msgpack.Encoder
	log *log.Logger

	requests uint64
}

// NewServer creates a server. Requested limits are capped at maxLimit; a
// missing limit uses the predictor's default.
func NewServer(p *predict.Predictor, maxLimit int, r io.Reader, w io.Writer) *Server {
	out := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(out)
	enc.UseCompactInts(true)
	return &Server{
		predictor: p,
		maxLimit:  maxLimit,
		dec:       msgpack.NewDecoder(r),
		out:       out,
		enc:       enc,
		log:       logger.New("ipc"),
	}
}

// Serve handles requests until end of input, ctx cancellation or a
// malformed request. EOF is a clean stop. Cancellation returns promptly even
// while a read is pending.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Debug("starting server")
	if err := s.send(StatusResponse{Status: StatusReady}); err != nil {
		return err
	}

	reqs := make(chan decoded)
	done := make(chan struct{})
	defer close(done)
	go s.readRequests(reqs, done)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var d decoded
		select {
		case <-ctx.Done():
			s.log.Debug("context cancelled", "requests", s.requests)
			return ctx.Err()
		case d = <-reqs:
		}

		if d.err != nil {
			if errors.Is(d.err, io.EOF) {
				s.log.Debug("input closed", "requests", s.requests)
				return nil
			}
			// A msgpack stream cannot be resynchronized after garbage.
			err := fmt.Errorf("failed to decode request: %w", d.err)
			if sendErr := s.send(StatusResponse{Status: StatusError, Error: "invalid request"}); sendErr != nil {
				return errors.Join(err, sendErr)
			}
			return err
		}
		s.requests++

		if err := s.handle(d.req); err != nil {
			return err
		}
	}
}

type decoded struct {
	req Request
	err error
}

// readRequests decodes requests into out until the first error, which is
// delivered too. It stops early once done is closed; a read blocked on the
// underlying reader ends only when that reader does.
func (s *Server) readRequests(out chan<- decoded, done <-chan struct{}) {
	for {
		var req Request
		err := s.dec.Decode(&req)
		select {
		case out <- decoded{req: req, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) handle(req Request) error {
	switch req.Action {
	case "":
		return s.send(s.suggest(req))
	case "stats":
		return s.send(s.stats(req))
	default:
		return s.send(StatusResponse{
			ID:     req.ID,
			Status: StatusError,
			Error:  fmt.Sprintf("unknown action: %s", req.Action),
		})
	}
}

func (s *Server) suggest(req Request) SuggestResponse {
	start := time.Now()

	limit := req.Limit
	if limit <= 0 {
		limit = s.predictor.K
	}
	if s.maxLimit > 0 && limit > s.maxLimit {
		limit = s.maxLimit
	}

	resp := SuggestResponse{ID: req.ID, Suggestions: []string{}, Context: []string{}}
	res, err := s.predictor.Predict(req.Text, limit)
	if res != nil {
		resp.Status = string(res.Status)
		if res.Context != nil {
			resp.Context = res.Context
		}
		if res.Words != nil {
			resp.Suggestions = res.Words
		}
	}
	if err != nil && !errors.Is(err, predict.ErrInsufficientContext) {
		resp.Status = string(predict.StatusError)
		resp.Error = err.Error()
		s.log.Warn("prediction failed", "id", req.ID, "err", err)
	}

	resp.TimeTaken = time.Since(start).Microseconds()
	s.log.Debug("suggest", "id", req.ID, "status", resp.Status, "count", len(resp.Suggestions))
	return resp
}

func (s *Server) stats(req Request) StatsResponse {
	info := s.predictor.Model.Info()
	resp := StatsResponse{
		ID:           req.ID,
		Status:       string(predict.StatusOK),
		Order:        info.Order,
		Contexts:     info.Contexts,
		Observations: info.Observations,
		Vocabulary:   info.Vocabulary,
		Requests:     s.requests,
	}
	if !info.LastTrained.IsZero() {
		resp.TrainedAt = info.LastTrained.Unix()
	}
	return resp
}

func (s *Server) send(v interface{}) error {
	if err := s.enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
