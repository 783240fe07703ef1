package main

import (
	"time"
)

// Record is the row/document shape every source is decoded into. Parse objects use
// objectId/createdAt, Mongo documents _id/created_at and SQL rows id/created_at.
type Record struct {
	ID        string    `db:"id" json:"objectId" bson:"_id"`
	Title     string    `db:"title" json:"title" bson:"title"`
	Note      string    `db:"note" json:"note,omitempty" bson:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt" bson:"created_at"`
}

// GetColumns lists the columns written on insert. id is left to the database.
func (Record) GetColumns() []string {
	return []string{
		"title", "note", "created_at",
	}
}

func (r *Record) ToColumns(cols []string) []interface{} {
	values := make([]interface{}, len(cols))
	for i, col := range cols {
		switch col {
		case "title":
			values[i] = r.Title
		case "note":
			values[i] = r.nullableNote()
		case "created_at":
			values[i] = r.CreatedAt
		}
	}

	return values
}

func (r *Record) nullableNote() interface{} {
	if r.Note == "" {
		return nil
	}

	return r.Note
}
