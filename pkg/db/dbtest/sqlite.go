// Package dbtest opens throwaway sqlite databases shaped like the postgres schema.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS offers (
  id TEXT PRIMARY KEY,
  slug TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  main_product_name TEXT NOT NULL,
  main_product_price_cents INTEGER NOT NULL,
  main_product_compare_at_cents INTEGER,
  order_bumps TEXT NOT NULL DEFAULT '[]',
  upsell TEXT,
  integrations TEXT NOT NULL DEFAULT '{}',
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_offers_slug ON offers (slug);
CREATE TABLE IF NOT EXISTS seller_integrations (
  seller_id TEXT PRIMARY KEY,
  ad_pixel_id TEXT,
  ad_access_token TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS sales (
  id TEXT PRIMARY KEY,
  transaction_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  offer_id TEXT NOT NULL,
  buyer_name TEXT NOT NULL,
  buyer_email TEXT NOT NULL,
  items TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  currency TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  total_amount_cents INTEGER NOT NULL,
  platform_fee_cents INTEGER NOT NULL,
  seller_net_cents INTEGER NOT NULL,
  charged_amount_cents INTEGER NOT NULL,
  status TEXT NOT NULL,
  settled_at DATETIME NOT NULL,
  refunded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_sales_transaction_id ON sales (transaction_id);
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_events_event_aggregate ON outbox_events (event_type, aggregate_type, aggregate_id);
`

// Open returns a private in-memory database with every table created. The
// connection pool is pinned to one connection so concurrent callers serialize
// on sqlite's single writer instead of failing with SQLITE_BUSY.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}
