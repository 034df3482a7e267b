package service

import (
	"context"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"

	"github.com/lalamig/storefront/internal/events"
	"github.com/lalamig/storefront/internal/logging"
	"github.com/lalamig/storefront/internal/models"
	"github.com/lalamig/storefront/internal/repo"
	"github.com/lalamig/storefront/internal/search"
)

type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Image       string  `json:"image"`
}

type CatalogService struct {
	Repo     *repo.GormRepo
	ES       *elasticsearch.Client
	Index    string
	Producer EventPublisher
}

func (s *CatalogService) CreateProduct(ctx context.Context, req CreateProductRequest) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.create_product")

	if req.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if req.Price < 0 || !wellFormed(req.Price) {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
	}
	if err := s.Repo.CreateProduct(ctx, product); err != nil {
		l.Error("create_product_error", "error", err)
		return nil, err
	}

	// Search indexing is best-effort: catalog writes do not depend on
	// elasticsearch being reachable.
	if s.ES != nil {
		if err := search.IndexProduct(ctx, s.ES, s.Index, product); err != nil {
			l.Warn("es_index_error", "productID", product.ID.String(), "error", err)
		}
	}

	if s.Producer != nil {
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		event := map[string]interface{}{
			"type":      "product_created",
			"productID": product.ID.String(),
			"name":      product.Name,
		}
		if err := s.Producer.PublishEvent(pubCtx, events.TopicProductEvents, product.ID.String(), event); err != nil {
			l.Warn("kafka_publish_error", "topic", events.TopicProductEvents, "error", err)
		}
	}

	l.Info("create_product_success", "productID", product.ID.String())
	return product, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.Repo.GetProduct(ctx, id)
}

func (s *CatalogService) ListProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, offset, limit)
}

func (s *CatalogService) SearchProducts(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	if s.ES == nil {
		return 0, nil, fmt.Errorf("search unavailable")
	}
	return search.Search(ctx, s.ES, s.Index, query, from, size)
}
