package models

import "github.com/google/uuid"

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every model in dependency order.
func All() []any {
	return []any{
		&User{},
		&Good{},
		&Stock{},
		&UniqueItem{},
		&Transaction{},
		&TransactionItem{},
	}
}
