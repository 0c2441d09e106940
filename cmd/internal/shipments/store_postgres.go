package shipments

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements shipment persistence over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid identifier injection.
// - Soft delete is a timestamp write; every read predicate carries
//   deleted_at IS NULL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the shipment store (default "freight").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("shipments: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("shipments: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "freight",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("shipments: nil pool")
	}
	return st, nil
}

const shipmentColumns = `id, booking_reference,
	customer_name, collection_from, deliver_to, pickup_date, delivery_date,
	status, shipment_type,
	revenue_amount, cost_amount, driver_commission,
	lorry_no, lorry_company, driver_name,
	delivery_order_no, company_invoice_no, creditor_invoice_no,
	pod_image_url, creditor_invoice_file_url, remarks,
	created_at, updated_at, updated_by_user_id, deleted_at`

func (s *PostgresStore) Insert(ctx context.Context, sh Shipment) error {
	table := pgIdent(s.schema, "shipments")
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+table+` (`+shipmentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		         $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`,
		sh.ID, sh.BookingReference,
		sh.CustomerName, sh.CollectionFrom, sh.DeliverTo, sh.PickupDate.Time, sh.DeliveryDate.Time,
		string(sh.Status), string(sh.Type),
		sh.RevenueAmount, sh.CostAmount, sh.DriverCommission,
		sh.LorryNo, sh.LorryCompany, sh.DriverName,
		sh.DeliveryOrderNo, sh.CompanyInvoiceNo, sh.CreditorInvoiceNo,
		sh.PODImageURL, sh.CreditorInvoiceFileURL, sh.Remarks,
		sh.CreatedAt, sh.UpdatedAt, sh.UpdatedByUserID, sh.DeletedAt,
	)
	if err != nil {
		if pgIsUniqueViolation(err) {
			return ErrDuplicateRef
		}
		return err
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Shipment, error) {
	table := pgIdent(s.schema, "shipments")
	row := s.pool.QueryRow(ctx,
		`SELECT `+shipmentColumns+` FROM `+table+` WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanShipment(row)
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Shipment, error) {
	table := pgIdent(s.schema, "shipments")

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + shipmentColumns + ` FROM ` + table + ` WHERE deleted_at IS NULL`
	args := []any{}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += ` AND status = $1`
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Shipment{}
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, sh Shipment) error {
	table := pgIdent(s.schema, "shipments")
	ct, err := s.pool.Exec(ctx,
		`UPDATE `+table+`
		    SET customer_name = $1, collection_from = $2, deliver_to = $3,
		        pickup_date = $4, delivery_date = $5,
		        status = $6, shipment_type = $7,
		        revenue_amount = $8, cost_amount = $9, driver_commission = $10,
		        lorry_no = $11, lorry_company = $12, driver_name = $13,
		        delivery_order_no = $14, company_invoice_no = $15, creditor_invoice_no = $16,
		        pod_image_url = $17, creditor_invoice_file_url = $18, remarks = $19,
		        updated_at = $20, updated_by_user_id = $21
		  WHERE id = $22 AND deleted_at IS NULL`,
		sh.CustomerName, sh.CollectionFrom, sh.DeliverTo,
		sh.PickupDate.Time, sh.DeliveryDate.Time,
		string(sh.Status), string(sh.Type),
		sh.RevenueAmount, sh.CostAmount, sh.DriverCommission,
		sh.LorryNo, sh.LorryCompany, sh.DriverName,
		sh.DeliveryOrderNo, sh.CompanyInvoiceNo, sh.CreditorInvoiceNo,
		sh.PODImageURL, sh.CreditorInvoiceFileURL, sh.Remarks,
		sh.UpdatedAt, sh.UpdatedByUserID,
		sh.ID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SoftDelete(ctx context.Context, id string, now time.Time) error {
	table := pgIdent(s.schema, "shipments")
	ct, err := s.pool.Exec(ctx,
		`UPDATE `+table+`
		    SET deleted_at = $1, updated_at = $1
		  WHERE id = $2 AND deleted_at IS NULL`,
		now, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountByRefPrefix(ctx context.Context, prefix string) (int, error) {
	table := pgIdent(s.schema, "shipments")
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM `+table+` WHERE booking_reference LIKE $1 || '%'`,
		prefix).Scan(&n)
	return n, err
}

func scanShipment(row pgx.Row) (Shipment, error) {
	var (
		sh            Shipment
		status, typ   string
		pickup, deliv time.Time
	)
	err := row.Scan(
		&sh.ID, &sh.BookingReference,
		&sh.CustomerName, &sh.CollectionFrom, &sh.DeliverTo, &pickup, &deliv,
		&status, &typ,
		&sh.RevenueAmount, &sh.CostAmount, &sh.DriverCommission,
		&sh.LorryNo, &sh.LorryCompany, &sh.DriverName,
		&sh.DeliveryOrderNo, &sh.CompanyInvoiceNo, &sh.CreditorInvoiceNo,
		&sh.PODImageURL, &sh.CreditorInvoiceFileURL, &sh.Remarks,
		&sh.CreatedAt, &sh.UpdatedAt, &sh.UpdatedByUserID, &sh.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shipment{}, ErrNotFound
		}
		return Shipment{}, err
	}
	sh.Status = Status(status)
	sh.Type = Type(typ)
	sh.PickupDate = DateOf(pickup)
	sh.DeliveryDate = DateOf(deliv)
	return sh, nil
}

func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgIsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" // unique_violation
}
