package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"storefront-cart/metrics"
	models "storefront-cart/model"
	"storefront-cart/service"
)

// SessionCookie carries the id that selects a shopper's cart.
const SessionCookie = "cart_session"

// Carts resolves the cart for a session.
type Carts interface {
	Get(ctx context.Context, session string) (*service.CartStore, error)
}

// Handler is the HTTP layer in front of the session carts.
type Handler struct {
	carts   Carts
	metrics *metrics.Recorder
	health  func(ctx context.Context) error
	log     logrus.FieldLogger
}

// NewHandler returns a Handler. health may be nil.
func NewHandler(carts Carts, m *metrics.Recorder, health func(ctx context.Context) error, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{carts: carts, metrics: m, health: health, log: log.WithField("component", "http")}
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/cart", h.GetCart).Methods("GET")
	r.HandleFunc("/cart", h.ClearCart).Methods("DELETE")
	r.HandleFunc("/cart/products/{id}", h.AddProduct).Methods("POST")
	r.HandleFunc("/cart/products/{id}", h.RemoveProduct).Methods("DELETE")
	r.HandleFunc("/cart/products/{id}", h.UpdateProductAmount).Methods("PUT")

	r.HandleFunc("/healthz", h.Health).Methods("GET")
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods("GET")
	}
}

// --- request / response shapes ---
type updateAmountReq struct {
	Amount *int `json:"amount"`
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeCartErr maps a cart failure to a status code and the shopper message.
func writeCartErr(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch service.KindOf(err) {
	case service.KindOutOfStock:
		code = http.StatusConflict
	case service.KindNotFound:
		code = http.StatusNotFound
	case service.KindRemoteFailure:
		code = http.StatusBadGateway
	}
	writeErr(w, code, service.Message(err))
}

func productID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

// sessionID returns the session id carried by the request, if it has a
// well-formed one.
func sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// session returns the request's session id, issuing a new one if the
// request has none or an invalid one.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) string {
	if id, ok := sessionID(r); ok {
		return id
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, sid string) (*service.CartStore, bool) {
	cs, err := h.carts.Get(r.Context(), sid)
	if err != nil {
		h.log.WithError(err).WithField("session", sid).Error("load cart")
		writeErr(w, http.StatusInternalServerError, "cart unavailable")
		return nil, false
	}
	return cs, true
}

// mutate runs op against the session's cart. A store retired between the
// lookup and the call is looked up again once.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(*service.CartStore) error) (*service.CartStore, bool) {
	sid := h.session(w, r)
	for attempt := 0; ; attempt++ {
		cs, ok := h.load(w, r, sid)
		if !ok {
			return nil, false
		}
		err := op(cs)
		if errors.Is(err, service.ErrRetired) && attempt == 0 {
			continue
		}
		if err != nil {
			writeCartErr(w, err)
			return nil, false
		}
		return cs, true
	}
}

// --- Handler ---

// GetCart handles GET /cart
// Reading never creates a session: without a valid cookie the cart is empty.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(r)
	if !ok {
		writeJSON(w, http.StatusOK, models.Cart{}.Summarize())
		return
	}
	cs, ok := h.load(w, r, sid)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cs.Summary())
}

// AddProduct handles POST /cart/products/{id}
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid product id")
		return
	}
	cs, ok := h.mutate(w, r, func(cs *service.CartStore) error {
		return cs.AddProduct(r.Context(), id)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cs.Summary())
}

// RemoveProduct handles DELETE /cart/products/{id}
func (h *Handler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid product id")
		return
	}
	cs, ok := h.mutate(w, r, func(cs *service.CartStore) error {
		return cs.RemoveProduct(r.Context(), id)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cs.Summary())
}

// UpdateProductAmount handles PUT /cart/products/{id}
// body: { "amount": 3 }
func (h *Handler) UpdateProductAmount(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req updateAmountReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Amount == nil {
		writeErr(w, http.StatusBadRequest, "amount is required")
		return
	}
	// amount <= 0 is accepted and ignored by the cart
	cs, ok := h.mutate(w, r, func(cs *service.CartStore) error {
		return cs.UpdateProductAmount(r.Context(), id, *req.Amount)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cs.Summary())
}

// ClearCart handles DELETE /cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	_, ok := h.mutate(w, r, func(cs *service.CartStore) error {
		return cs.Clear(r.Context())
	})
	if !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			writeErr(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
