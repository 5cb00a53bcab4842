package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rfqmarket/internal/search"
	"rfqmarket/models"
)

func (s *Storage) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	u := &models.User{}
	err := s.db.GetContext(ctx, u, `SELECT * FROM users WHERE id=$1`, id)
	if err != nil {
		return nil, wrap(err, "get user")
	}
	return u, nil
}

// UpsertUser creates the profile for a new subject or updates an existing one.
// Role, manufacturer status and rating aggregates are kept on update.
func (s *Storage) UpsertUser(ctx context.Context, u *models.User) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.ManufacturerStatus == "" && u.Role.CanManufacture() {
		u.ManufacturerStatus = models.ManufacturerPendingReview
	}
	query := `
        INSERT INTO users (
            id, email, full_name, role, company_name, phone_number, website, gst_number,
            address, city, state, zip_code, country, region, company_size, years_in_business,
            industry_vertical, manufacturing_types, primary_materials, certifications,
            facility_photos, max_dimensions, manufacturer_settings, buyer_settings,
            manufacturer_status)
        VALUES (
            :id, :email, :full_name, :role, :company_name, :phone_number, :website, :gst_number,
            :address, :city, :state, :zip_code, :country, :region, :company_size, :years_in_business,
            :industry_vertical, :manufacturing_types, :primary_materials, :certifications,
            :facility_photos, :max_dimensions, :manufacturer_settings, :buyer_settings,
            :manufacturer_status)
        ON CONFLICT (id) DO UPDATE SET
            email = EXCLUDED.email,
            full_name = EXCLUDED.full_name,
            company_name = EXCLUDED.company_name,
            phone_number = EXCLUDED.phone_number,
            website = EXCLUDED.website,
            gst_number = EXCLUDED.gst_number,
            address = EXCLUDED.address,
            city = EXCLUDED.city,
            state = EXCLUDED.state,
            zip_code = EXCLUDED.zip_code,
            country = EXCLUDED.country,
            region = EXCLUDED.region,
            company_size = EXCLUDED.company_size,
            years_in_business = EXCLUDED.years_in_business,
            industry_vertical = EXCLUDED.industry_vertical,
            manufacturing_types = EXCLUDED.manufacturing_types,
            primary_materials = EXCLUDED.primary_materials,
            certifications = EXCLUDED.certifications,
            facility_photos = EXCLUDED.facility_photos,
            max_dimensions = EXCLUDED.max_dimensions,
            manufacturer_settings = EXCLUDED.manufacturer_settings,
            buyer_settings = EXCLUDED.buyer_settings,
            updated_at = NOW()
        RETURNING *`

	rows, err := s.db.NamedQueryContext(ctx, query, u)
	if err != nil {
		return wrap(err, "upsert user")
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return wrap(err, "upsert user")
		}
		return fmt.Errorf("upsert user: %w", ErrNotFound)
	}
	return wrap(rows.StructScan(u), "upsert user")
}

// SetManufacturerStatus moves a manufacturer through review. Buyers are not
// matched and come back as ErrNotFound.
func (s *Storage) SetManufacturerStatus(ctx context.Context, id uuid.UUID, status models.ManufacturerStatus) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET manufacturer_status=$1, updated_at=NOW() WHERE id=$2 AND role IN ($3, $4)`,
		status, id, models.RoleManufacturer, models.RoleHybrid)
	if err != nil {
		return wrap(err, "set manufacturer status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("set manufacturer status: %w", ErrNotFound)
	}
	return nil
}

func (s *Storage) SearchManufacturers(ctx context.Context, f search.ManufacturerFilter, p search.Page) ([]models.User, int, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()

	var w search.Where
	f.Apply(&w)

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users `+w.SQL(), w.Args()...); err != nil {
		return nil, 0, wrap(err, "count manufacturers")
	}

	limit := w.Arg(p.Limit)
	offset := w.Arg(p.Offset())
	query := fmt.Sprintf(`SELECT * FROM users %s ORDER BY created_at DESC LIMIT %s OFFSET %s`, w.SQL(), limit, offset)

	users := []models.User{}
	if err := s.db.SelectContext(ctx, &users, query, w.Args()...); err != nil {
		return nil, 0, wrap(err, "search manufacturers")
	}
	return users, total, nil
}
