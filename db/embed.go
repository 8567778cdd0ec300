// Package db provides the embedded shop schema.
package db

import _ "embed"

// Schema contains the DDL for the products, coupons, orders, and
// order_items tables. Statements are idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string
