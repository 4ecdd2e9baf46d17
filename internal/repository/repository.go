// Package repository handles all interactions with the database.
//
// It contains raw SQL queries and methods to fetch, persist,
// or update data, abstracting SQL logic away from the service layer.
// Queries use $n placeholders, which both the pgx and the SQLite
// drivers accept.
package repository
