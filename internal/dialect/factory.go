package dialect

import "fmt"

// Get returns the Strategy implementation for a driver name.
func Get(driver string) (Strategy, error) {
	switch driver {
	case "mysql":
		return &MySQL{}, nil
	case "postgres":
		return &Postgres{}, nil
	case "sqlserver", "mssql":
		return &MSSQL{}, nil
	case "oracle":
		return &Oracle{}, nil
	case "sqlite", "sqlite3":
		return &SQLite{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// Ensure interface implementation
var _ Strategy = (*MySQL)(nil)
var _ Strategy = (*Postgres)(nil)
var _ Strategy = (*MSSQL)(nil)
var _ Strategy = (*Oracle)(nil)
var _ Strategy = (*SQLite)(nil)
