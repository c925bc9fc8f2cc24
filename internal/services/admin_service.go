// internal/services/admin_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/events"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/store"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type AdminService struct {
	store  store.Store
	bus    events.Bus
	blobs  BlobStore
	config *config.Config
}

type AdminCustomerFilter struct {
	utils.PaginationParams
}

func NewAdminService(st store.Store, bus events.Bus, blobs BlobStore, config *config.Config) *AdminService {
	return &AdminService{
		store:  st,
		bus:    bus,
		blobs:  blobs,
		config: config,
	}
}

// GetDashboardStats reports every order status, including those with no
// orders. Revenue counts delivered orders only.
func (s *AdminService) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	counts, err := s.store.OrderStatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	stats := &models.DashboardStats{
		OrdersByStatus: make(map[models.OrderStatus]int64, len(models.OrderStatuses)),
	}
	for _, status := range models.OrderStatuses {
		stats.OrdersByStatus[status] = counts[status]
		stats.TotalOrders += counts[status]
	}

	if stats.Revenue, err = s.store.Revenue(ctx, models.OrderStatusDelivered); err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	if stats.Customers, err = s.store.CountUsers(ctx, models.UserRoleCustomer); err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}

	// Limit 0 would list everything; one row is enough to get the total.
	countOnly := utils.PaginationParams{Page: 1, Limit: 1}
	if _, stats.Products, err = s.store.ListProducts(ctx, store.ProductFilter{PaginationParams: countOnly}); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	threshold := s.config.Store.LowStockThreshold
	if _, stats.LowStock, err = s.store.ListProducts(ctx, store.ProductFilter{
		PaginationParams: countOnly,
		MaxStock:         &threshold,
	}); err != nil {
		return nil, fmt.Errorf("failed to count low stock products: %w", err)
	}

	return stats, nil
}

// GetLowStockProducts lists products at or below the configured threshold,
// scarcest first.
func (s *AdminService) GetLowStockProducts(ctx context.Context, params utils.PaginationParams) ([]models.Product, int64, error) {
	threshold := s.config.Store.LowStockThreshold
	params.Sort = "stock"
	params.Order = "asc"

	products, total, err := s.store.ListProducts(ctx, store.ProductFilter{
		PaginationParams: params,
		MaxStock:         &threshold,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch low stock products: %w", err)
	}
	return products, total, nil
}

// GetCustomers searches customers by name, last name, phone, document or
// email.
func (s *AdminService) GetCustomers(ctx context.Context, filter AdminCustomerFilter) ([]models.User, int64, error) {
	users, total, err := s.store.ListCustomers(ctx, store.CustomerFilter{PaginationParams: filter.PaginationParams})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch customers: %w", err)
	}
	return users, total, nil
}

// DeleteCustomer removes the customer together with their cart and orders.
// Payment proofs of the removed orders are deleted once the removal commits.
func (s *AdminService) DeleteCustomer(ctx context.Context, customerID, adminID uuid.UUID) error {
	var removedOrders []uuid.UUID
	var proofKeys []string

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		user, err := tx.GetUser(ctx, customerID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.IsAdmin() {
			return ErrCannotDeleteAdmin
		}

		orders, _, err := tx.ListOrders(ctx, store.OrderFilter{UserID: &customerID})
		if err != nil {
			return err
		}
		removedOrders, proofKeys = nil, nil
		for _, o := range orders {
			removedOrders = append(removedOrders, o.ID)
			if o.PaymentProofKey != "" {
				proofKeys = append(proofKeys, o.PaymentProofKey)
			}
		}

		if err := tx.DeleteOrdersByUser(ctx, customerID); err != nil {
			return err
		}
		if err := tx.ClearCart(ctx, customerID); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, customerID)
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrCannotDeleteAdmin) {
			return err
		}
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	for _, key := range proofKeys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			logrus.WithError(err).WithField("key", key).Error("Failed to delete payment proof of removed order")
		}
	}

	logrus.WithFields(logrus.Fields{
		"customer_id": customerID,
		"admin_id":    adminID,
		"orders":      len(removedOrders),
		"proofs":      len(proofKeys),
	}).Info("Customer deleted")

	s.createAuditLog(ctx, adminID, "delete_customer", "user", &customerID, map[string]interface{}{
		"orders_removed": len(removedOrders),
	})
	for _, id := range removedOrders {
		publish(ctx, s.bus, events.TopicOrders, events.TypeOrderDeleted, id.String(), nil)
	}
	publish(ctx, s.bus, events.CartTopic(customerID), events.TypeCartChanged, customerID.String(), nil)
	return nil
}

func (s *AdminService) createAuditLog(ctx context.Context, userID uuid.UUID, action, resourceType string, resourceID *uuid.UUID, newValues map[string]interface{}) {
	log := &models.AuditLog{
		UserID:       &userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		NewValues:    models.JSONB(newValues),
	}
	if err := s.store.CreateAuditLog(ctx, log); err != nil {
		logrus.WithError(err).WithField("action", action).Warn("Failed to create audit log")
	}
}
