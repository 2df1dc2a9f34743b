package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/obsidianstack/regionlatency/internal/aggregate"
)

// DefaultMaxBodyBytes is used when Options.MaxBodyBytes is not positive.
const DefaultMaxBodyBytes = 1 << 20

// Options configures the handler's cross-cutting behaviour.
type Options struct {
	// AllowedOrigins lists CORS origins; "*" permits any origin and echoes it
	// back. Empty behaves like ["*"].
	AllowedOrigins []string

	// AllowCredentials sets Access-Control-Allow-Credentials: true.
	AllowCredentials bool

	// MaxBodyBytes caps the POST / body size.
	MaxBodyBytes int64

	// Logger receives one line per request. Nil uses slog.Default().
	Logger *slog.Logger
}

// Handler serves the query, health and metrics routes.
type Handler struct {
	agg     *aggregate.Aggregator
	metrics *metrics
	logger  *slog.Logger
	maxBody int64
	router  chi.Router
}

// New creates a Handler over agg and registers all routes.
func New(agg *aggregate.Aggregator, opts Options) http.Handler {
	h := &Handler{
		agg:     agg,
		metrics: newMetrics(agg),
		logger:  opts.Logger,
		maxBody: opts.MaxBodyBytes,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(h.logRequests)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(corsOptions(opts)))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", h.health)
	r.Post("/", h.query)
	r.Method(http.MethodGet, "/metrics", h.metrics.handler())

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health serves GET /. The table is loaded before the listener starts, so
// liveness is all it reports.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// query serves POST / with the metrics for each requested region.
func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuery(w, r, h.maxBody)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonErr(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooBig.Limit))
			return
		}
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	res := h.agg.Compute(aggregate.Query{
		Regions:     req.Regions,
		ThresholdMs: req.ThresholdMs,
	})
	h.metrics.observeQuery(time.Since(start), res)

	h.logger.Debug("api: query computed",
		"request_id", RequestID(r.Context()),
		"regions_requested", len(req.Regions),
		"regions_matched", len(res),
		"threshold_ms", req.ThresholdMs,
	)

	jsonResp(w, http.StatusOK, toQueryResponse(res))
}

// --- helpers ----------------------------------------------------------------

// decodeQuery reads exactly one JSON object from the body. Wrong field types,
// non-object bodies and trailing data are rejected rather than coerced.
func decodeQuery(w http.ResponseWriter, r *http.Request, limit int64) (QueryRequest, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))

	var req *QueryRequest
	if err := dec.Decode(&req); err != nil {
		return QueryRequest{}, describeDecodeErr(err)
	}
	if req == nil {
		return QueryRequest{}, errors.New("request body must be a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return QueryRequest{}, err
		}
		return QueryRequest{}, errors.New("request body must contain a single JSON object")
	}
	return *req, nil
}

func describeDecodeErr(err error) error {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		tooBig    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooBig):
		return err
	case errors.Is(err, io.EOF):
		return errors.New("request body is empty")
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return errors.New("request body must be a JSON object")
		}
		return fmt.Errorf("field %q must be %s", typeErr.Field, expectedType(typeErr.Field))
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("malformed JSON: unexpected end of body")
	default:
		return fmt.Errorf("malformed JSON: %v", err)
	}
}

func expectedType(field string) string {
	switch field {
	case "regions":
		return "an array of strings"
	case "threshold_ms":
		return "a number"
	default:
		return "of a different type"
	}
}

func toQueryResponse(res aggregate.Result) QueryResponse {
	out := make(QueryResponse, len(res))
	for region, m := range res {
		out[region] = RegionMetricsResponse{
			AvgLatency: m.AvgLatency,
			P95Latency: m.P95Latency,
			AvgUptime:  m.AvgUptime,
			Breaches:   m.Breaches,
		}
	}
	return out
}

func corsOptions(opts Options) cors.Options {
	co := cors.Options{
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodOptions, http.MethodHead,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: opts.AllowCredentials,
		MaxAge:           600,
	}

	anyOrigin := len(opts.AllowedOrigins) == 0
	for _, o := range opts.AllowedOrigins {
		if o == "*" {
			anyOrigin = true
		}
	}
	if anyOrigin {
		// Echo the caller's origin: a literal "*" is rejected by browsers on
		// credentialed requests.
		co.AllowOriginFunc = func(_ *http.Request, _ string) bool { return true }
	} else {
		co.AllowedOrigins = opts.AllowedOrigins
	}
	return co
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
