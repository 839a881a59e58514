package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"storefront-cart/catalog"
	"storefront-cart/metrics"
	models "storefront-cart/model"
	"storefront-cart/store"
)

// DefaultNamespace prefixes every storage key.
const DefaultNamespace = "storefront"

// Key returns the storage key for a cart. An empty session gives the
// single-cart key "<namespace>:cart".
func Key(namespace, session string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	k := namespace + ":cart"
	if session != "" {
		k += ":" + session
	}
	return k
}

// CartStore owns one cart. Mutations are serialized by writeMu, so the
// read-check-write of each operation never interleaves with another; the
// snapshot itself is guarded by mu so reads don't wait on remote calls.
//
// Storage is written before the in-memory cart is replaced. A failed write
// leaves both as they were.
type CartStore struct {
	store    store.Store
	catalog  catalog.Catalog
	key      string
	log      logrus.FieldLogger
	metrics  *metrics.Recorder
	notifier Notifier

	writeMu sync.Mutex
	retired bool // set under writeMu once the registry has let go of this store

	mu   sync.RWMutex
	cart models.Cart
}

type Option func(*CartStore)

func WithKey(key string) Option { return func(s *CartStore) { s.key = key } }

func WithLogger(l logrus.FieldLogger) Option { return func(s *CartStore) { s.log = l } }

func WithMetrics(m *metrics.Recorder) Option { return func(s *CartStore) { s.metrics = m } }

func WithNotifier(n Notifier) Option { return func(s *CartStore) { s.notifier = n } }

// NewCartStore loads the persisted cart and returns a store ready for use.
// A missing or undecodable value starts an empty cart; a failing read is an
// error.
func NewCartStore(ctx context.Context, st store.Store, cat catalog.Catalog, opts ...Option) (*CartStore, error) {
	s := &CartStore{
		store:   st,
		catalog: cat,
		key:     Key(DefaultNamespace, ""),
		log:     logrus.StandardLogger(),
		cart:    models.Cart{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithFields(logrus.Fields{"component": "cart", "key": s.key})

	raw, err := st.Get(ctx, s.key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return s, nil
	case err != nil:
		return nil, &OpError{Op: "load", Kind: KindStorage, Err: err}
	}

	var cart models.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		s.log.WithError(err).Warn("persisted cart is not valid, starting empty")
		return s, nil
	}
	s.cart = dedupe(cart)
	s.log.WithField("items", len(s.cart)).Debug("cart loaded")
	return s, nil
}

// dedupe keeps the first entry per product id and drops entries with a
// non-positive amount, so a hand-edited value can't break the invariants.
func dedupe(c models.Cart) models.Cart {
	out := make(models.Cart, 0, len(c))
	for _, p := range c {
		if p.Amount < 1 || out.IndexOf(p.ID) >= 0 {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Cart returns a copy of the current cart.
func (s *CartStore) Cart() models.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

func (s *CartStore) Summary() models.Summary {
	return s.Cart().Summarize()
}

// AddProduct puts one more unit of productID in the cart, fetching its
// metadata when it is new. The stock check runs before the metadata fetch.
func (s *CartStore) AddProduct(ctx context.Context, productID int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.retired {
		return &OpError{Op: OpAdd, Kind: KindRetired, ProductID: productID}
	}

	stock, err := s.catalog.Stock(ctx, productID)
	if err != nil {
		return s.fail(ctx, &OpError{Op: OpAdd, Kind: KindRemoteFailure, ProductID: productID, Err: err})
	}

	current, found := s.cart.Find(productID)
	if current.Amount+1 > stock.Amount {
		return s.fail(ctx, &OpError{Op: OpAdd, Kind: KindOutOfStock, ProductID: productID})
	}

	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return s.fail(ctx, &OpError{Op: OpAdd, Kind: KindRemoteFailure, ProductID: productID, Err: err})
	}

	next := s.cart.Clone()
	if found {
		next[next.IndexOf(productID)].Amount++
	} else {
		next = append(next, models.Product{
			ID:     productID,
			Title:  product.Title,
			Price:  product.Price,
			Image:  product.Image,
			Amount: 1,
		})
	}
	return s.commit(ctx, OpAdd, productID, next)
}

// RemoveProduct drops the entry for productID.
func (s *CartStore) RemoveProduct(ctx context.Context, productID int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.retired {
		return &OpError{Op: OpRemove, Kind: KindRetired, ProductID: productID}
	}

	if s.cart.IndexOf(productID) < 0 {
		return s.fail(ctx, &OpError{Op: OpRemove, Kind: KindNotFound, ProductID: productID})
	}
	return s.commit(ctx, OpRemove, productID, s.cart.Without(productID))
}

// UpdateProductAmount sets the amount of an existing entry. A non-positive
// amount is ignored.
func (s *CartStore) UpdateProductAmount(ctx context.Context, productID int64, amount int) error {
	if amount <= 0 {
		s.metrics.Operation(OpUpdate, "ignored")
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.retired {
		return &OpError{Op: OpUpdate, Kind: KindRetired, ProductID: productID}
	}

	stock, err := s.catalog.Stock(ctx, productID)
	if err != nil {
		return s.fail(ctx, &OpError{Op: OpUpdate, Kind: KindRemoteFailure, ProductID: productID, Err: err})
	}
	if amount > stock.Amount {
		return s.fail(ctx, &OpError{Op: OpUpdate, Kind: KindOutOfStock, ProductID: productID})
	}

	i := s.cart.IndexOf(productID)
	if i < 0 {
		return s.fail(ctx, &OpError{Op: OpUpdate, Kind: KindNotFound, ProductID: productID})
	}
	next := s.cart.Clone()
	next[i].Amount = amount
	return s.commit(ctx, OpUpdate, productID, next)
}

// Clear empties the cart and removes its persisted value.
func (s *CartStore) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.retired {
		return &OpError{Op: OpClear, Kind: KindRetired}
	}

	if err := s.store.Delete(ctx, s.key); err != nil {
		return s.fail(ctx, &OpError{Op: OpClear, Kind: KindStorage, Err: err})
	}
	s.swap(models.Cart{})
	s.metrics.Operation(OpClear, "ok")
	s.log.Info("cart cleared")
	return nil
}

// retire waits for any in-flight mutation and then refuses all later ones
// with ErrRetired. The registry calls it before a session's cart may be
// loaded again, so one key never has two writers.
func (s *CartStore) retire() {
	s.writeMu.Lock()
	s.retired = true
	s.writeMu.Unlock()
}

// commit persists next and then makes it the current cart. Callers hold
// writeMu.
func (s *CartStore) commit(ctx context.Context, op string, productID int64, next models.Cart) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return s.fail(ctx, &OpError{Op: op, Kind: KindStorage, ProductID: productID, Err: err})
	}
	if err := s.store.Set(ctx, s.key, raw); err != nil {
		return s.fail(ctx, &OpError{Op: op, Kind: KindStorage, ProductID: productID, Err: err})
	}
	s.swap(next)

	s.metrics.Operation(op, "ok")
	s.metrics.CartSize(len(next))
	s.log.WithFields(logrus.Fields{"op": op, "product_id": productID, "items": len(next)}).Debug("cart updated")
	return nil
}

func (s *CartStore) swap(next models.Cart) {
	s.mu.Lock()
	s.cart = next
	s.mu.Unlock()
}

func (s *CartStore) fail(ctx context.Context, err *OpError) error {
	entry := s.log.WithFields(logrus.Fields{"op": err.Op, "product_id": err.ProductID, "kind": err.Kind.String()})
	if err.Err != nil {
		entry = entry.WithError(err.Err)
	}
	switch err.Kind {
	case KindRemoteFailure, KindStorage:
		entry.Warn("cart operation failed")
	default:
		entry.Info("cart operation rejected")
	}
	s.metrics.Operation(err.Op, err.Kind.String())

	if s.notifier != nil {
		s.notifier.Notify(ctx, Notification{
			Op:        err.Op,
			ProductID: err.ProductID,
			Kind:      err.Kind,
			Message:   Message(err),
		})
	}
	return err
}
