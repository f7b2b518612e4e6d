package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Order struct {
	ID        int64              `json:"id"`
	Cnumber   int64              `json:"cnumber"`
	Total     pgtype.Numeric     `json:"total"`
	Articles  string             `json:"articles"`
	Table     pgtype.Int4        `json:"table"`
	Place     string             `json:"place"`
	Traite    bool               `json:"traite"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}
