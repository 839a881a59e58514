package catalog

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	models "storefront-cart/model"
)

// Fixture is a catalog held in memory, in the db.json shape the storefront
// is developed against:
//
//	{"stock": [{"id": 1, "amount": 3}], "products": [{"id": 1, "title": ...}]}
type Fixture struct {
	mu       sync.RWMutex
	Stock    []models.Stock   `json:"stock"`
	Products []models.Product `json:"products"`
}

func LoadFixture(r io.Reader) (*Fixture, error) {
	var f Fixture
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decode fixture")
	}
	return &f, nil
}

// SetStock replaces or adds the stock row for id.
func (f *Fixture) SetStock(id int64, amount int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Stock {
		if f.Stock[i].ID == id {
			f.Stock[i].Amount = amount
			return
		}
	}
	f.Stock = append(f.Stock, models.Stock{ID: id, Amount: amount})
}

func (f *Fixture) stock(id int64) (models.Stock, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.Stock {
		if s.ID == id {
			return s, true
		}
	}
	return models.Stock{}, false
}

func (f *Fixture) product(id int64) (models.Product, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, p := range f.Products {
		if p.ID == id {
			p.Amount = 0
			return p, true
		}
	}
	return models.Product{}, false
}

func (f *Fixture) products() []models.Product {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Product, len(f.Products))
	copy(out, f.Products)
	return out
}

// Handler serves the fixture with the same routes the real catalog exposes.
func (f *Fixture) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/products", f.listProducts).Methods("GET")
	r.HandleFunc("/products/{id:[0-9]+}", f.getProduct).Methods("GET")
	r.HandleFunc("/stock/{id:[0-9]+}", f.getStock).Methods("GET")
	return r
}

func (f *Fixture) listProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, f.products())
}

func (f *Fixture) getProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	p, ok := f.product(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (f *Fixture) getStock(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	s, ok := f.stock(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
