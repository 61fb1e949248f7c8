package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/jmehdipour/customers-api/internal/model"
	"github.com/jmoiron/sqlx"
)

// customerRow is the flattened relational shape of a customer.
type customerRow struct {
	ID         int64  `db:"id"`
	FirstName  string `db:"firstname"`
	LastName   string `db:"lastname"`
	Email      string `db:"email"`
	Subscribed bool   `db:"subscribed"`
	Address1   string `db:"address1"`
	Address2   string `db:"address2"`
	City       string `db:"city"`
	Province   string `db:"province"`
	Country    string `db:"country"`
	Zip        string `db:"zip"`
}

func rowFromCustomer(c *model.Customer) customerRow {
	return customerRow{
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Email:      c.Email,
		Subscribed: c.Subscribed,
		Address1:   c.Address.Address1,
		Address2:   c.Address.Address2,
		City:       c.Address.City,
		Province:   c.Address.Province,
		Country:    c.Address.Country,
		Zip:        c.Address.Zip,
	}
}

func (r customerRow) toCustomer() model.Customer {
	return model.Customer{
		ID:         strconv.FormatInt(r.ID, 10),
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Email:      r.Email,
		Subscribed: r.Subscribed,
		Address: model.Address{
			Address1: r.Address1,
			Address2: r.Address2,
			City:     r.City,
			Province: r.Province,
			Country:  r.Country,
			Zip:      r.Zip,
		},
	}
}

const customerColumns = `id, firstname, lastname, email, subscribed, address1, address2, city, province, country, zip`

// MySQLCustomersRepository stores customers in the `customers` table.
type MySQLCustomersRepository struct {
	db *sqlx.DB
}

func NewMySQLCustomersRepository(db *sqlx.DB) *MySQLCustomersRepository {
	return &MySQLCustomersRepository{db: db}
}

var _ CustomersRepository = (*MySQLCustomersRepository)(nil)

// parseID maps ids the table can never hold to ErrNotFound.
func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

func (r *MySQLCustomersRepository) Create(ctx context.Context, c *model.Customer) error {
	const q = `
		INSERT INTO customers
		    (firstname, lastname, email, subscribed, address1, address2, city, province, country, zip, created_at, updated_at)
		VALUES
		    (:firstname, :lastname, :email, :subscribed, :address1, :address2, :city, :province, :country, :zip, NOW(), NOW())
	`
	res, err := r.db.NamedExecContext(ctx, q, rowFromCustomer(c))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = strconv.FormatInt(id, 10)
	return nil
}

func (r *MySQLCustomersRepository) Get(ctx context.Context, id string) (*model.Customer, error) {
	n, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var row customerRow
	err = r.db.GetContext(ctx, &row, `SELECT `+customerColumns+` FROM customers WHERE id = ? LIMIT 1`, n)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c := row.toCustomer()
	return &c, nil
}

func (r *MySQLCustomersRepository) Update(ctx context.Context, c *model.Customer) error {
	n, err := parseID(c.ID)
	if err != nil {
		return err
	}

	const q = `
		UPDATE customers
		   SET firstname = :firstname, lastname = :lastname, email = :email, subscribed = :subscribed,
		       address1 = :address1, address2 = :address2, city = :city, province = :province,
		       country = :country, zip = :zip, updated_at = NOW()
		 WHERE id = :id
	`
	row := rowFromCustomer(c)
	row.ID = n
	if _, err := r.db.NamedExecContext(ctx, q, row); err != nil {
		return err
	}

	// MySQL reports 0 affected rows for an unchanged row, so existence is checked separately.
	var one int
	err = r.db.GetContext(ctx, &one, `SELECT 1 FROM customers WHERE id = ? LIMIT 1`, n)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *MySQLCustomersRepository) Delete(ctx context.Context, id string) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, n)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MySQLCustomersRepository) List(ctx context.Context, f model.Filter) ([]model.Customer, error) {
	q, args := buildListQuery(f)

	var rows []customerRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]model.Customer, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toCustomer())
	}
	return out, nil
}

// buildListQuery turns the filter into a WHERE clause. Column names equal the
// condition field names, which come from a fixed set.
func buildListQuery(f model.Filter) (string, []any) {
	q := `SELECT ` + customerColumns + ` FROM customers`
	conds := f.Conditions()
	args := make([]any, 0, len(conds))
	if len(conds) > 0 {
		parts := make([]string, 0, len(conds))
		for _, c := range conds {
			parts = append(parts, c.Field+" = ?")
			args = append(args, c.Value)
		}
		q += " WHERE " + strings.Join(parts, " AND ")
	}
	q += " ORDER BY id ASC"
	return q, args
}

func (r *MySQLCustomersRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
