package storage

import (
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
)

// buildMySQLDSN constructs a MySQL DSN. clientFoundRows makes RowsAffected
// count matched rows, so re-saving an unchanged page is not mistaken for a missing row.
func buildMySQLDSN(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, port)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.ClientFoundRows = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	if cfg.SSLMode == "require" {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}

func OpenMySQL(dsn string) (*SQLStore, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	configurePool(conn)
	return newSQLStore(conn, mysqlDialect)
}

var mysqlDialect = dialect{
	name:        "mysql",
	placeholder: sq.Question,
	migrations: []string{
		`CREATE TABLE IF NOT EXISTS scrapbook_pages (
			user_id VARCHAR(191) NOT NULL,
			collection_slug VARCHAR(191) NOT NULL,
			blocks JSON NOT NULL,
			updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			UNIQUE KEY uq_scrapbook_pages (user_id, collection_slug),
			KEY idx_scrapbook_pages_user (user_id)
		) DEFAULT CHARSET=utf8mb4`,
	},
	isUniqueViolation: func(err error) bool {
		var me *mysql.MySQLError
		return errors.As(err, &me) && me.Number == 1062
	},
}
