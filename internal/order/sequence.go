package order

import (
	"context"
	"strconv"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/badixth/chip-in-backend/internal/checkout"
	"github.com/badixth/chip-in-backend/internal/shopify"
)

const (
	counterNamespace = "custom"
	purchaseCountKey = "purchase_count"
)

// ProductCatalog is the slice of the platform API the sequence generator
// needs: product tags plus metafield read/modify/write.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID int64) (*shopify.Product, error)
	ProductMetafields(ctx context.Context, productID int64) ([]shopify.Metafield, error)
	CreateProductMetafield(ctx context.Context, productID int64, mf shopify.Metafield) error
	UpdateMetafield(ctx context.Context, metafieldID int64, value string) error
}

// SequenceGenerator advances the per-product purchase counter stored as a
// product metafield and mints class identifiers from it. The counter lives
// on the platform, so concurrent orders for the same product are serialized
// locally to keep the read-modify-write from losing increments.
type SequenceGenerator struct {
	catalog ProductCatalog

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewSequenceGenerator(catalog ProductCatalog) *SequenceGenerator {
	return &SequenceGenerator{
		catalog: catalog,
		locks:   make(map[int64]*sync.Mutex),
	}
}

func (g *SequenceGenerator) lockFor(productID int64) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[productID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[productID] = l
	}
	return l
}

// ClassMetafield walks the line items, advances the purchase counter for the
// first item whose counter can be updated and returns the class_id metafield
// to stamp onto the order. Counter failures are logged and skipped rather
// than failing the order; nil means no item produced an identifier.
func (g *SequenceGenerator) ClassMetafield(ctx context.Context, items []checkout.LineItem) *shopify.Metafield {
	lg := zctx.From(ctx)

	for _, item := range items {
		if item.ProductID == 0 {
			lg.Warn("Line item has no product id, skipping counter")
			continue
		}

		classID, err := g.advance(ctx, item)
		if err != nil {
			lg.Warn("Purchase counter update failed",
				zap.Int64("product_id", item.ProductID),
				zap.Error(err),
			)
			continue
		}

		return &shopify.Metafield{
			Namespace: counterNamespace,
			Key:       "class_id",
			Type:      "single_line_text_field",
			Value:     classID,
		}
	}
	return nil
}

func (g *SequenceGenerator) advance(ctx context.Context, item checkout.LineItem) (string, error) {
	l := g.lockFor(item.ProductID)
	l.Lock()
	defer l.Unlock()

	var (
		product    *shopify.Product
		metafields []shopify.Metafield
	)
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		p, err := g.catalog.GetProduct(grpCtx, item.ProductID)
		if err != nil {
			return errors.Wrap(err, "get product")
		}
		product = p
		return nil
	})
	grp.Go(func() error {
		mfs, err := g.catalog.ProductMetafields(grpCtx, item.ProductID)
		if err != nil {
			return errors.Wrap(err, "list metafields")
		}
		metafields = mfs
		return nil
	})
	if err := grp.Wait(); err != nil {
		return "", err
	}

	current := 0
	var existing *shopify.Metafield
	for i, mf := range metafields {
		// Only our own namespace; other apps may store a same-named key.
		if mf.Namespace != counterNamespace || mf.Key != purchaseCountKey {
			continue
		}
		existing = &metafields[i]
		// A malformed stored value restarts the counter at zero.
		current, _ = strconv.Atoi(mf.Value)
		break
	}

	qty := int(item.Quantity.IntPart())
	if qty <= 0 {
		qty = 1
	}
	next := current + qty

	if existing != nil {
		if err := g.catalog.UpdateMetafield(ctx, existing.ID, strconv.Itoa(next)); err != nil {
			return "", errors.Wrap(err, "update counter")
		}
	} else {
		mf := shopify.Metafield{
			Namespace: counterNamespace,
			Key:       purchaseCountKey,
			Type:      "number_integer",
			Value:     strconv.Itoa(next),
		}
		if err := g.catalog.CreateProductMetafield(ctx, item.ProductID, mf); err != nil {
			return "", errors.Wrap(err, "create counter")
		}
	}

	return ClassID(product.TagList(), next), nil
}
