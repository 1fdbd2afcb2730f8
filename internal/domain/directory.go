package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Doctor and Patient are read-only reference entities from the scheduling
// core's perspective; accounts are managed elsewhere.

type Doctor struct {
	bun.BaseModel `bun:"table:doctors,alias:d"`

	ID             uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name           string    `bun:"name,notnull" json:"name"`
	Specialization string    `bun:"specialization,notnull" json:"specialization"`
	Phone          string    `bun:"phone,notnull" json:"phone"`
	Email          string    `bun:"email,notnull" json:"email"`
	CreatedAt      time.Time `bun:"created_at,notnull" json:"-"`
}

type Patient struct {
	bun.BaseModel `bun:"table:patients,alias:p"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Phone     string    `bun:"phone,notnull" json:"phone"`
	Email     string    `bun:"email,notnull" json:"email"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"-"`
}
