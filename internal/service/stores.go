package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/importer"
	"stockledger/backend/internal/store"
)

// ListStores returns the registry. Store staff only see their own shop.
func (s *Service) ListStores(ctx context.Context) ([]domain.Store, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin {
		st, err := s.repo.GetStore(ctx, actor.StoreID)
		if errors.Is(err, store.ErrNotFound) {
			return []domain.Store{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []domain.Store{*st}, nil
	}
	return s.repo.ListStores(ctx)
}

func (s *Service) GetStore(ctx context.Context, id string) (domain.Store, error) {
	actor, err := requireRole(ctx)
	if err != nil {
		return domain.Store{}, err
	}
	id = strings.TrimSpace(id)
	if actor.Role != domain.RoleAdmin && id != actor.StoreID {
		return domain.Store{}, store.ErrNotFound
	}
	st, err := s.repo.GetStore(ctx, id)
	if err != nil {
		return domain.Store{}, err
	}
	return *st, nil
}

// CreateStore registers a shop and its owner.
func (s *Service) CreateStore(ctx context.Context, req domain.StoreRequest) (domain.Store, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Store{}, err
	}
	st, err := storeFromRequest(req)
	if err != nil {
		return domain.Store{}, err
	}
	st.Warehouse = st.ID == s.warehouseID
	st.CreatedAt = s.now()

	created, err := s.repo.CreateStore(ctx, st)
	if err != nil {
		return domain.Store{}, err
	}
	s.logAudit(ctx, created.ID, "store_create", "store", created.ID, "owner="+created.OwnerName)
	return *created, nil
}

// UpdateStore replaces a shop's name and owner details.
func (s *Service) UpdateStore(ctx context.Context, id string, req domain.StoreRequest) (domain.Store, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Store{}, err
	}
	req.ID = id
	st, err := storeFromRequest(req)
	if err != nil {
		return domain.Store{}, err
	}
	st.UpdatedAt = s.now()

	updated, err := s.repo.UpdateStore(ctx, st)
	if err != nil {
		return domain.Store{}, err
	}
	s.logAudit(ctx, updated.ID, "store_update", "store", updated.ID, "owner="+updated.OwnerName)
	return *updated, nil
}

// DeleteStore removes a shop that no longer has users or stock.
func (s *Service) DeleteStore(ctx context.Context, id string) error {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == s.warehouseID {
		return fmt.Errorf("%w: the warehouse cannot be removed", store.ErrInvalidInput)
	}
	if err := s.repo.DeleteStore(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, id, "store_delete", "store", id, "")
	return nil
}

// RegisterWarehouse makes sure the warehouse has a registry entry.
func (s *Service) RegisterWarehouse(ctx context.Context) error {
	_, err := s.repo.GetStore(ctx, s.warehouseID)
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	_, err = s.repo.CreateStore(ctx, domain.Store{
		ID:        s.warehouseID,
		Name:      "Central Warehouse",
		Warehouse: true,
		CreatedAt: s.now(),
	})
	if errors.Is(err, store.ErrConflict) {
		return nil
	}
	return err
}

func storeFromRequest(req domain.StoreRequest) (domain.Store, error) {
	st := domain.Store{
		ID:          strings.ToLower(strings.TrimSpace(req.ID)),
		Name:        strings.TrimSpace(req.Name),
		OwnerName:   strings.TrimSpace(req.OwnerName),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Email:       strings.TrimSpace(req.Email),
		Address:     strings.TrimSpace(req.Address),
	}
	if st.ID == "" || strings.ContainsAny(st.ID, " /?#") {
		return st, fmt.Errorf("%w: store id must be a non-empty slug", store.ErrInvalidInput)
	}
	if st.Name == "" || st.OwnerName == "" {
		return st, fmt.Errorf("%w: name and owner_name are required", store.ErrInvalidInput)
	}
	if st.Email != "" {
		if _, err := mail.ParseAddress(st.Email); err != nil {
			return st, fmt.Errorf("%w: invalid email", store.ErrInvalidInput)
		}
	}
	return st, nil
}

// ImportOrders files one restock request per uploaded row for a registered
// shop. Rows may carry their own note; note is used otherwise.
func (s *Service) ImportOrders(ctx context.Context, storeID string, filename string, r io.Reader, note string) (domain.ImportReport, error) {
	actor, err := requireRole(ctx, domain.RoleInventory, domain.RoleAdmin)
	if err != nil {
		return domain.ImportReport{}, err
	}
	storeID, err = s.storeFor(actor, storeID)
	if err != nil {
		return domain.ImportReport{}, err
	}
	shop, err := s.repo.GetStore(ctx, storeID)
	if err != nil {
		return domain.ImportReport{}, err
	}
	if shop.Warehouse || shop.ID == s.warehouseID {
		return domain.ImportReport{}, fmt.Errorf("%w: the warehouse cannot request from itself", store.ErrInvalidInput)
	}

	sheet, err := importer.ReadRows(filename, r)
	if err != nil {
		return domain.ImportReport{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	if err := sheet.Require("quantity"); err != nil {
		return domain.ImportReport{}, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	report := importTally{domain.ImportReport{Lines: make([]domain.ImportLineResult, 0, len(sheet.Rows))}}
	for _, row := range sheet.Rows {
		result := domain.ImportLineResult{Line: row.Line, Product: productLabel(row)}
		order, err := s.importOrderRow(ctx, actor, shop.ID, row, note, &result)
		if err != nil {
			result.Error = importError(err)
		} else {
			result.OK = true
			result.OrderID = order.ID
		}
		report.add(result)
	}

	s.logAudit(ctx, shop.ID, "order_import", "upload", filename, fmt.Sprintf("rows=%d,ok=%d,failed=%d", report.Processed, report.Succeeded, report.Failed))
	return report.ImportReport, nil
}

func (s *Service) importOrderRow(ctx context.Context, actor domain.Actor, storeID string, row importer.Row, note string, result *domain.ImportLineResult) (domain.OrderRequest, error) {
	product, err := s.resolveProduct(ctx, row)
	if err != nil {
		return domain.OrderRequest{}, err
	}
	result.Product = product.Name
	qty, err := importer.Quantity(row.Get("quantity"))
	if err != nil {
		return domain.OrderRequest{}, err
	}
	result.Quantity = qty
	if rowNote := row.Get("note"); rowNote != "" {
		note = rowNote
	}
	return s.createOrder(ctx, actor, storeID, *product, qty, note)
}
