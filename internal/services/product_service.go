// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/events"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/store"
	"github.com/javajoker/storefront-backend/internal/utils"
)

// ImageRemover deletes images that products and categories no longer use.
type ImageRemover interface {
	DeleteByURL(ctx context.Context, url string) error
}

// ProductService manages the catalog: products, categories and providers.
type ProductService struct {
	store  store.Store
	bus    events.Bus
	images ImageRemover
}

type ProductRequest struct {
	Name        string               `json:"name" validate:"required,max=255"`
	Description string               `json:"description" validate:"required"`
	Price       float64              `json:"price" validate:"required,gt=0"`
	Stock       *int                 `json:"stock" validate:"required,min=0"`
	CategoryID  *uuid.UUID           `json:"category_id" validate:"required"`
	ProviderID  *uuid.UUID           `json:"provider_id" validate:"required"`
	ProductType models.ProductType   `json:"product_type" validate:"required,product_type"`
	Images      []string             `json:"images,omitempty" validate:"omitempty,dive,url"`
	Sizes       []string             `json:"sizes,omitempty" validate:"omitempty,dive,required,max=50"`
	Colors      []models.ColorOption `json:"colors,omitempty" validate:"omitempty,dive"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	CategoryID *uuid.UUID
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"required"`
	Image       string `json:"image" validate:"required,url"`
}

type ProviderRequest struct {
	Name  string `json:"name" validate:"required,max=150"`
	Phone string `json:"phone" validate:"required,phone"`
}

const relatedProductsLimit = 4

func NewProductService(st store.Store, bus events.Bus, images ImageRemover) *ProductService {
	return &ProductService{
		store:  st,
		bus:    bus,
		images: images,
	}
}

func (s *ProductService) CreateProduct(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	if len(req.Images) == 0 {
		return nil, ErrImagesRequired
	}

	product := &models.Product{}
	if err := s.applyProduct(ctx, product, req); err != nil {
		return nil, err
	}
	product.Images = pq.StringArray(req.Images)

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	publish(ctx, s.bus, events.TopicProducts, events.TypeProductCreated, product.ID.String(), product)
	return product, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return product, nil
}

// UpdateProduct replaces the editable fields. Images are kept when the request
// carries none; replaced images are removed from storage.
func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, req *ProductRequest) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.applyProduct(ctx, product, req); err != nil {
		return nil, err
	}

	var removed []string
	if len(req.Images) > 0 {
		removed = missingFrom(product.Images, req.Images)
		product.Images = pq.StringArray(req.Images)
	}

	if err := s.store.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.removeImages(ctx, removed...)
	publish(ctx, s.bus, events.TopicProducts, events.TypeProductUpdated, product.ID.String(), product)
	return product, nil
}

// DeleteProduct removes the product. Orders keep their snapshots; cart lines
// pointing at it disappear from the cart view on the next load.
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.removeImages(ctx, product.Images...)
	publish(ctx, s.bus, events.TopicProducts, events.TypeProductDeleted, id.String(), nil)
	return nil
}

// SearchProducts matches params.Search against product names.
func (s *ProductService) SearchProducts(ctx context.Context, params ProductSearchParams) ([]models.Product, int64, error) {
	products, total, err := s.store.ListProducts(ctx, store.ProductFilter{
		PaginationParams: params.PaginationParams,
		CategoryID:       params.CategoryID,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, total, nil
}

func (s *ProductService) GetProductsByCategory(ctx context.Context, categoryID uuid.UUID, params utils.PaginationParams) (*models.Category, []models.Product, int64, error) {
	category, err := s.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, nil, 0, err
	}

	products, total, err := s.SearchProducts(ctx, ProductSearchParams{
		PaginationParams: params,
		CategoryID:       &categoryID,
	})
	if err != nil {
		return nil, nil, 0, err
	}
	return category, products, total, nil
}

// GetRelatedProducts returns other products of the same category.
func (s *ProductService) GetRelatedProducts(ctx context.Context, id uuid.UUID) ([]models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.CategoryID == nil {
		return []models.Product{}, nil
	}

	products, _, err := s.store.ListProducts(ctx, store.ProductFilter{
		PaginationParams: utils.PaginationParams{Page: 1, Limit: relatedProductsLimit},
		CategoryID:       product.CategoryID,
		ExcludeID:        &product.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch related products: %w", err)
	}
	return products, nil
}

func (s *ProductService) applyProduct(ctx context.Context, product *models.Product, req *ProductRequest) error {
	if _, err := s.store.GetCategory(ctx, *req.CategoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to load category: %w", err)
	}
	if _, err := s.store.GetProvider(ctx, *req.ProviderID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrProviderNotFound
		}
		return fmt.Errorf("failed to load provider: %w", err)
	}

	sizes := pq.StringArray(nil)
	colors := models.ColorOptions(nil)
	if req.ProductType.RequiresSize() {
		sizes = pq.StringArray(trimAll(req.Sizes))
		if len(sizes) == 0 {
			return ErrVariantRequired
		}
	}
	if req.ProductType.RequiresColor() {
		if len(req.Colors) == 0 {
			return ErrVariantRequired
		}
		for _, c := range req.Colors {
			if strings.TrimSpace(c.Name) == "" {
				return ErrInvalidVariant
			}
			colors = append(colors, models.ColorOption{Name: strings.TrimSpace(c.Name), Image: c.Image})
		}
	}

	product.Name = strings.TrimSpace(req.Name)
	product.Description = strings.TrimSpace(req.Description)
	product.Price = req.Price
	product.Stock = *req.Stock
	product.CategoryID = req.CategoryID
	product.ProviderID = req.ProviderID
	product.ProductType = req.ProductType
	product.Sizes = sizes
	product.Colors = colors
	return nil
}

func (s *ProductService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	return categories, nil
}

func (s *ProductService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.store.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return category, nil
}

func (s *ProductService) CreateCategory(ctx context.Context, req *CategoryRequest) (*models.Category, error) {
	category := &models.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Image:       req.Image,
	}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *ProductService) UpdateCategory(ctx context.Context, id uuid.UUID, req *CategoryRequest) (*models.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	oldImage := category.Image
	category.Name = strings.TrimSpace(req.Name)
	category.Description = strings.TrimSpace(req.Description)
	category.Image = req.Image

	if err := s.store.UpdateCategory(ctx, category); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return nil, ErrCategoryExists
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	if oldImage != category.Image {
		s.removeImages(ctx, oldImage)
	}
	return category, nil
}

// DeleteCategory leaves products of the category in place; they simply stop
// appearing under it.
func (s *ProductService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}
	s.removeImages(ctx, category.Image)
	return nil
}

func (s *ProductService) ListProviders(ctx context.Context) ([]models.Provider, error) {
	providers, err := s.store.ListProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch providers: %w", err)
	}
	return providers, nil
}

func (s *ProductService) GetProvider(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	provider, err := s.store.GetProvider(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return provider, nil
}

func (s *ProductService) CreateProvider(ctx context.Context, req *ProviderRequest) (*models.Provider, error) {
	provider := &models.Provider{
		Name:  strings.TrimSpace(req.Name),
		Phone: strings.TrimSpace(req.Phone),
	}
	if err := s.store.CreateProvider(ctx, provider); err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	return provider, nil
}

func (s *ProductService) UpdateProvider(ctx context.Context, id uuid.UUID, req *ProviderRequest) (*models.Provider, error) {
	provider, err := s.GetProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	provider.Name = strings.TrimSpace(req.Name)
	provider.Phone = strings.TrimSpace(req.Phone)

	if err := s.store.UpdateProvider(ctx, provider); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("failed to update provider: %w", err)
	}
	return provider, nil
}

func (s *ProductService) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteProvider(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrProviderNotFound
		}
		return fmt.Errorf("failed to delete provider: %w", err)
	}
	return nil
}

// Helper methods

func (s *ProductService) removeImages(ctx context.Context, urls ...string) {
	if s.images == nil {
		return
	}
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.images.DeleteByURL(ctx, url); err != nil {
			logrus.WithError(err).WithField("url", url).Warn("Failed to delete image")
		}
	}
}

func missingFrom(old []string, current []string) []string {
	keep := make(map[string]struct{}, len(current))
	for _, u := range current {
		keep[u] = struct{}{}
	}
	var out []string
	for _, u := range old {
		if _, ok := keep[u]; !ok {
			out = append(out, u)
		}
	}
	return out
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
