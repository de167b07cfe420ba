package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// sqlDrivers maps location schemes to database/sql driver names.
var sqlDrivers = map[string]string{
	"postgres":   "pgx",
	"postgresql": "pgx",
	"mysql":      "mysql",
	"sqlserver":  "sqlserver",
}

type sqlSource struct{}

func (sqlSource) CanOpen(location string) bool {
	scheme, _, ok := strings.Cut(location, "://")
	if !ok {
		return false
	}
	_, known := sqlDrivers[strings.ToLower(scheme)]
	return known
}

// Open runs opt.Query against the database and types the result like delimited
// text, so the same inference and null rules apply.
func (sqlSource) Open(ctx context.Context, location string, opt Options) (*Dataset, error) {
	if strings.TrimSpace(opt.Query) == "" {
		return nil, fmt.Errorf("sql source %s: a query is required", redactDSN(location))
	}
	driver, dsn := sqlDSN(location)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, opt.Query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	header, records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	// values were formatted by us, so the locale is fixed
	opt.DecimalSeparator, opt.ThousandsSeparator = '.', 0
	ds, err := fromRecords(header, records, opt)
	if err != nil {
		return nil, err
	}
	ds.Name = driver + " query"
	ds.Source = redactDSN(location)
	return ds, nil
}

// sqlDSN converts a location into a driver name and the DSN that driver expects.
// go-sql-driver/mysql takes its own DSN syntax, so the scheme is stripped.
func sqlDSN(location string) (driver, dsn string) {
	scheme, rest, _ := strings.Cut(location, "://")
	driver = sqlDrivers[strings.ToLower(scheme)]
	if driver == "mysql" {
		return driver, rest
	}
	return driver, location
}

func scanRecords(rows *sql.Rows) ([]string, [][]string, error) {
	header, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("columns: %w", err)
	}
	var records [][]string
	for rows.Next() {
		raw := make([]any, len(header))
		ptrs := make([]any, len(header))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan row %d: %w", len(records)+1, err)
		}
		rec := make([]string, len(header))
		for i, v := range raw {
			rec[i] = sqlString(v)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows: %w", err)
	}
	return header, records, nil
}

func sqlString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

// redactDSN hides a password in URL-style locations.
func redactDSN(location string) string {
	scheme, rest, ok := strings.Cut(location, "://")
	if !ok {
		return location
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return location
	}
	user, _, hasPass := strings.Cut(rest[:at], ":")
	if !hasPass {
		return location
	}
	return scheme + "://" + user + ":***" + rest[at:]
}
