package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
	"github.com/jakechorley/daycare-scheduler/pkg/db"
)

// GetDaycare retrieves a daycare
func (s *store) GetDaycare(ctx context.Context, daycareID string) (*model.Daycare, error) {
	var d model.Daycare
	err := s.q.QueryRow(ctx, `
		SELECT id, name FROM daycare WHERE id = $1
	`, daycareID).Scan(&d.ID, &d.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daycare %s: %w", daycareID, err)
	}
	return &d, nil
}

// GetStaff retrieves a staff member with the daycares they are associated with
func (s *store) GetStaff(ctx context.Context, staffID string) (*model.Staff, error) {
	var st model.Staff
	var role string
	err := s.q.QueryRow(ctx, `
		SELECT s.id, s.name, s.role, s.active,
			COALESCE(array_agg(sd.daycare_id) FILTER (WHERE sd.daycare_id IS NOT NULL), '{}')
		FROM staff s
		LEFT JOIN staff_daycare sd ON sd.staff_id = s.id
		WHERE s.id = $1
		GROUP BY s.id
	`, staffID).Scan(&st.ID, &st.Name, &role, &st.Active, &st.DaycareIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff %s: %w", staffID, err)
	}
	st.Role = model.Role(role)
	return &st, nil
}

// GetCustomer retrieves a customer
func (s *store) GetCustomer(ctx context.Context, customerID string) (*model.Customer, error) {
	var c model.Customer
	err := s.q.QueryRow(ctx, `
		SELECT id, name, active FROM customer WHERE id = $1
	`, customerID).Scan(&c.ID, &c.Name, &c.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer %s: %w", customerID, err)
	}
	return &c, nil
}

// GetPet retrieves a pet with its owners
func (s *store) GetPet(ctx context.Context, petID string) (*model.Pet, error) {
	var p model.Pet
	err := s.q.QueryRow(ctx, `
		SELECT p.id, p.name, p.active,
			COALESCE(array_agg(pc.customer_id) FILTER (WHERE pc.customer_id IS NOT NULL), '{}')
		FROM pet p
		LEFT JOIN pet_customer pc ON pc.pet_id = p.id
		WHERE p.id = $1
		GROUP BY p.id
	`, petID).Scan(&p.ID, &p.Name, &p.Active, &p.CustomerIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pet %s: %w", petID, err)
	}
	return &p, nil
}

// GetProducts retrieves the given products. Unknown IDs are reported as ErrNotFound.
func (s *store) GetProducts(ctx context.Context, productIDs []string) ([]model.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	rows, err := s.q.Query(ctx, `
		SELECT id, daycare_id, name, price::text, active
		FROM product
		WHERE id = ANY($1)
	`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.DaycareID, &p.Name, &p.Price, &p.Active); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	if len(products) != len(uniqueStrings(productIDs)) {
		return nil, fmt.Errorf("products %v: %w", productIDs, db.ErrNotFound)
	}
	return products, nil
}

func uniqueStrings(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
