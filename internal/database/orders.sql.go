package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertOrder = `-- name: InsertOrder :one
INSERT INTO orders (cnumber, total, articles, place, "table", traite)
VALUES ($1, $2, $3, $4, $5, false)
RETURNING id, cnumber, total, articles, "table", place, traite, created_at
`

type InsertOrderParams struct {
	Cnumber  int64          `json:"cnumber"`
	Total    pgtype.Numeric `json:"total"`
	Articles string         `json:"articles"`
	Place    string         `json:"place"`
	Table    pgtype.Int4    `json:"table"`
}

func (q *Queries) InsertOrder(ctx context.Context, arg InsertOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, insertOrder,
		arg.Cnumber,
		arg.Total,
		arg.Articles,
		arg.Place,
		arg.Table,
	)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.Cnumber,
		&i.Total,
		&i.Articles,
		&i.Table,
		&i.Place,
		&i.Traite,
		&i.CreatedAt,
	)
	return i, err
}

const listOrders = `-- name: ListOrders :many
SELECT id, cnumber, total, articles, "table", place, traite, created_at
FROM orders
WHERE ($1::boolean IS NULL OR traite = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2
`

type ListOrdersParams struct {
	Traite pgtype.Bool `json:"traite"`
	Limit  int32       `json:"limit"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Traite, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		var i Order
		if err := rows.Scan(
			&i.ID,
			&i.Cnumber,
			&i.Total,
			&i.Articles,
			&i.Table,
			&i.Place,
			&i.Traite,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markOrderProcessed = `-- name: MarkOrderProcessed :one
UPDATE orders SET traite = true
WHERE id = $1
RETURNING id, cnumber, total, articles, "table", place, traite, created_at
`

func (q *Queries) MarkOrderProcessed(ctx context.Context, id int64) (Order, error) {
	row := q.db.QueryRow(ctx, markOrderProcessed, id)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.Cnumber,
		&i.Total,
		&i.Articles,
		&i.Table,
		&i.Place,
		&i.Traite,
		&i.CreatedAt,
	)
	return i, err
}
