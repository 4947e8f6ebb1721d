// Package tracking is the HTTP surface of the collector: the tracking pixel,
// the landing/training/reported pages, the event listing API and the
// post-commit SQS publisher.
package tracking

import (
	"context"
	"encoding/base64"
	"errors"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/phish-tracker/internal/domain"
	"github.com/ignite/phish-tracker/internal/pages"
	"github.com/ignite/phish-tracker/internal/pkg/httputil"
	"github.com/ignite/phish-tracker/internal/pkg/logger"
	"github.com/ignite/phish-tracker/internal/service/events"
)

// 1x1 transparent GIF, 42 bytes.
var pixelGIF = mustDecode("R0lGODlhAQABAPAAAAAAAAAAACH5BAEAAAAALAAAAAABAAEAAAICRAEAOw==")

func mustDecode(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// maxFormBytes bounds the landing page form body.
const maxFormBytes = 64 << 10

// Recorder is the event service as seen by the handlers.
type Recorder interface {
	RecordOpen(ctx context.Context, email string, campaignID int64, clientIP string) (*domain.Event, error)
	RecordClick(ctx context.Context, email string, campaignID int64, clientIP string) (*domain.Event, error)
	RecordSubmitted(ctx context.Context, form events.SubmittedForm, clientIP string) (*domain.Event, error)
	RecordReported(ctx context.Context, email string, campaignID int64, clientIP string) (*domain.Event, error)
	RecordDownloaded(ctx context.Context, email string, campaignID int64, clientIP string) (*domain.Event, error)
	ListEvents(ctx context.Context, f events.ListFilter) ([]domain.EventView, error)
}

// PageRenderer renders a named HTML page.
type PageRenderer interface {
	Render(ctx context.Context, name string, vars map[string]any) ([]byte, error)
}

// Pinger reports whether the database is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	svc            Recorder
	pages          PageRenderer
	db             Pinger
	allowedOrigins []string
	trustedProxies []netip.Prefix
}

// Option configures a Handler.
type Option func(*Handler)

// WithTrustedProxies lists the proxy networks whose X-Forwarded-For and
// X-Real-Ip headers are believed. Requests from any other peer are recorded
// with the peer address.
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(h *Handler) { h.trustedProxies = prefixes }
}

// NewHandler wires the handlers. db may be nil, in which case /ready always
// reports ready.
func NewHandler(svc Recorder, pages PageRenderer, db Pinger, allowedOrigins []string, opts ...Option) *Handler {
	h := &Handler{svc: svc, pages: pages, db: db, allowedOrigins: allowedOrigins}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)

	r.Route("/events", func(r chi.Router) {
		r.Get("/track_open", h.HandleOpen)
		r.Get("/track_click", h.HandleClick)
		r.Post("/track_submitted", h.HandleSubmitted)
		r.Get("/track_reported", h.HandleReported)
		r.Get("/track_downloaded", h.HandleDownloaded)

		r.Group(func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   h.allowedOrigins,
				AllowedMethods:   []string{"GET", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
				AllowCredentials: false,
				MaxAge:           300,
			}))
			r.Get("/", h.HandleList)
			r.Options("/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
		})
	})
	return r
}

func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	email, campaignID, ok := trackParams(w, r)
	if !ok {
		return
	}
	if _, err := h.svc.RecordOpen(r.Context(), email, campaignID, h.clientIP(r)); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.GIF(w, pixelGIF)
}

func (h *Handler) HandleClick(w http.ResponseWriter, r *http.Request) {
	email, campaignID, ok := trackParams(w, r)
	if !ok {
		return
	}
	evt, err := h.svc.RecordClick(r.Context(), email, campaignID, h.clientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.renderPage(w, r, pages.PageSubmission, map[string]any{
		"campaign_id":    evt.CampaignID,
		"employee_email": evt.Email,
		"employee_id":    evt.EmployeeID,
	})
}

func (h *Handler) HandleSubmitted(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	var err error
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(maxFormBytes)
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		httputil.BadRequest(w, "Invalid form body")
		return
	}
	form := events.SubmittedForm{
		EmployeeEmail: r.PostForm.Get("employee_email"),
		CampaignID:    r.PostForm.Get("campaign_id"),
		EmployeeID:    r.PostForm.Get("employee_id"),
	}
	evt, err := h.svc.RecordSubmitted(r.Context(), form, h.clientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.renderPage(w, r, pages.PageTraining, map[string]any{
		"campaign_id": evt.CampaignID,
		"email":       evt.Email,
	})
}

func (h *Handler) HandleReported(w http.ResponseWriter, r *http.Request) {
	email, campaignID, ok := trackParams(w, r)
	if !ok {
		return
	}
	evt, err := h.svc.RecordReported(r.Context(), email, campaignID, h.clientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.renderPage(w, r, pages.PageReported, map[string]any{
		"campaign_id": evt.CampaignID,
		"email":       evt.Email,
	})
}

func (h *Handler) HandleDownloaded(w http.ResponseWriter, r *http.Request) {
	email, campaignID, ok := trackParams(w, r)
	if !ok {
		return
	}
	if _, err := h.svc.RecordDownloaded(r.Context(), email, campaignID, h.clientIP(r)); err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "success"})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var f events.ListFilter
	for _, p := range []struct {
		name string
		dst  **int64
	}{
		{"campaign_id", &f.CampaignID},
		{"employee_id", &f.EmployeeID},
	} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.BadRequest(w, "Invalid "+p.name)
			return
		}
		*p.dst = &id
	}

	list, err := h.svc.ListEvents(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, list)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			logger.Warn("readiness check failed", "error", err)
			httputil.ServiceUnavailable(w, "database unavailable")
			return
		}
	}
	httputil.OK(w, map[string]string{"status": "ready"})
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, name string, vars map[string]any) {
	body, err := h.pages.Render(r.Context(), name, vars)
	if err != nil {
		// The event is already committed; only the page failed.
		logger.Error("render page failed", "page", name, "error", err, "request_id", middleware.GetReqID(r.Context()))
		httputil.InternalError(w, err)
		return
	}
	httputil.HTML(w, body)
}

// trackParams reads the email and campaign_id query parameters shared by the
// GET tracking endpoints, writing a 400 when either is unusable.
func trackParams(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	q := r.URL.Query()
	email := q.Get("email")
	if email == "" {
		httputil.BadRequest(w, "Missing required parameter: email")
		return "", 0, false
	}
	raw := q.Get("campaign_id")
	if raw == "" {
		httputil.BadRequest(w, "Missing required parameter: campaign_id")
		return "", 0, false
	}
	campaignID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		httputil.BadRequest(w, "Invalid campaign_id")
		return "", 0, false
	}
	return email, campaignID, true
}

// details are the client-facing messages for the service's sentinel errors.
var details = []struct {
	err    error
	detail string
}{
	{events.ErrCampaignNotFound, "Campaign not found"},
	{events.ErrEmployeeNotFound, "Employee not found"},
	{events.ErrMissingFields, "Missing required fields"},
	{events.ErrInvalidID, "Invalid ID format"},
	{events.ErrEmployeeMismatch, "Employee does not match email"},
}

func detailFor(err error) string {
	for _, d := range details {
		if errors.Is(err, d.err) {
			return d.detail
		}
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case events.IsNotFound(err):
		httputil.NotFound(w, detailFor(err))
	case events.IsBadRequest(err):
		httputil.BadRequest(w, detailFor(err))
	default:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		httputil.InternalError(w, err)
	}
}

// clientIP returns the address recorded with an event. Forwarding headers
// are only honoured when the direct peer is a trusted proxy; X-Forwarded-For
// is then walked from the right, skipping trusted hops.
func (h *Handler) clientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	if !h.trusted(peer) {
		return peer
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(v, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !h.trusted(hops[i]) {
			return hops[i]
		}
	}
	if len(hops) > 0 {
		return hops[0]
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-Ip")); xri != "" {
		return xri
	}
	return peer
}

func (h *Handler) trusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range h.trustedProxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
