package kvserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"kvblast/internal/logging"
	"kvblast/internal/storage"
)

func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.FromContext(ctx).Warn("failed encoding response", zap.Error(err))
	}
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	s.writeJSON(ctx, w, errorResponse{Error: err.Error()})
}

func (s *Server) setKey(w http.ResponseWriter, r *http.Request) {
	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("decode request: %w", err))
		return
	}
	ttl := int64(-1)
	if req.TTL != nil {
		ttl = *req.TTL
	}

	var value *storage.Value
	switch v := req.Value.(type) {
	case string:
		value = storage.StringValue(v)
	case float64:
		value = storage.IntValue(int64(v))
	default:
		s.writeError(r.Context(), w, errors.New("value must be a string or an integer"))
		return
	}

	if err := s.store.Set(r.Context(), req.Key, value, ttl); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	s.writeJSON(r.Context(), w, successResponse{Success: true})
}

// getKey reports a missing or expired key as a null value, not an
// error.
func (s *Server) getKey(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	v, err := s.store.Get(r.Context(), key)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeJSON(r.Context(), w, getResponse{Value: nil})
		return
	}
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	out, err := decodeStored(v)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	s.writeJSON(r.Context(), w, getResponse{Value: out})
}

func (s *Server) deleteKey(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), mux.Vars(r)["key"]); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	s.writeJSON(r.Context(), w, successResponse{Success: true})
}

func (s *Server) listKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.Keys(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	s.writeJSON(r.Context(), w, keysResponse{Keys: keys})
}

// deleteKeys bulk-deletes by prefix; an absent body means every key.
func (s *Server) deleteKeys(w http.ResponseWriter, r *http.Request) {
	var req deleteKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(r.Context(), w, fmt.Errorf("decode request: %w", err))
		return
	}

	if err := s.store.DeletePrefix(r.Context(), req.Prefix); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	s.writeJSON(r.Context(), w, successResponse{Success: true})
}

func (s *Server) increment(w http.ResponseWriter, r *http.Request) {
	s.applyCounter(w, r, s.store.Increment)
}

func (s *Server) decrement(w http.ResponseWriter, r *http.Request) {
	s.applyCounter(w, r, s.store.Decrement)
}

func (s *Server) applyCounter(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, string, int64, *int64) (int64, error),
) {
	var req counterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("decode request: %w", err))
		return
	}

	n, err := op(r.Context(), mux.Vars(r)["key"], req.Value, req.Default)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	s.writeJSON(r.Context(), w, counterResponse{Value: n})
}

// getTTL reports -1 for both never-expiring and missing keys.
func (s *Server) getTTL(w http.ResponseWriter, r *http.Request) {
	ttl, err := s.store.TTL(r.Context(), mux.Vars(r)["key"])
	if errors.Is(err, storage.ErrNotFound) {
		s.writeJSON(r.Context(), w, ttlResponse{TTL: -1})
		return
	}
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	s.writeJSON(r.Context(), w, ttlResponse{TTL: ttl})
}

func (s *Server) setTTL(w http.ResponseWriter, r *http.Request) {
	var req setTTLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(r.Context(), w, fmt.Errorf("decode request: %w", err))
		return
	}

	if err := s.store.UpdateTTL(r.Context(), mux.Vars(r)["key"], req.TTL); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	s.writeJSON(r.Context(), w, successResponse{Success: true})
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(r.Context(), w, infoResponse{
		Version:   Version,
		GoVersion: runtime.Version(),
		BuildDate: BuildDate,
		Backend:   s.backend,
	})
}

func decodeStored(v *storage.Value) (interface{}, error) {
	switch v.Type {
	case storage.TypeInteger:
		n, err := strconv.ParseInt(string(v.Data), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse stored integer: %w", err)
		}
		return n, nil
	default:
		return string(v.Data), nil
	}
}
