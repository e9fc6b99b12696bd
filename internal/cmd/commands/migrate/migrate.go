package migrate

import (
	"database/sql"
	"flag"
	"fmt"

	// The sqlite driver is registered by golang-migrate's sqlite database
	// package through modernc.org/sqlite.
	_ "github.com/lib/pq"

	"github.com/hashicorp-forge/courier/internal/cmd/base"
	"github.com/hashicorp-forge/courier/internal/migrate"
	"github.com/hashicorp-forge/courier/pkg/database"
)

type Command struct {
	*base.Command

	flagConfig   string
	flagDriver   string
	flagDSN      string
	flagRollback int
	flagStatus   bool
}

func (c *Command) Synopsis() string {
	return "Apply the database schema"
}

func (c *Command) Help() string {
	return `Usage: courier migrate [options]

  Applies the embedded schema migrations to a PostgreSQL or SQLite
  database. The connection is taken from -dsn, or from the database block
  of -config.

  Examples:

    courier migrate -driver=postgres -dsn="host=localhost user=postgres dbname=courier sslmode=disable"
    courier migrate -driver=sqlite -dsn=courier.db` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("migrate", flag.ContinueOnError))
	f.StringVar(&c.flagConfig, "config", "", "Path to the configuration file")
	f.StringVar(&c.flagDriver, "driver", "", "Database driver (postgres|sqlite)")
	f.StringVar(&c.flagDSN, "dsn", "", "Database connection string")
	f.IntVar(&c.flagRollback, "rollback", 0, "Revert this many migrations instead of applying")
	f.BoolVar(&c.flagStatus, "status", false, "Print the current schema version and exit")
	return f
}

func (c *Command) Run(args []string) int {
	if err := c.Flags().Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	driver, dsn, err := c.connection()
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error opening database: %v", err))
		return 1
	}
	defer sqlDB.Close()
	if err := sqlDB.Ping(); err != nil {
		c.UI.Error(fmt.Sprintf("error connecting to database: %v", err))
		return 1
	}

	switch {
	case c.flagStatus:
	case c.flagRollback > 0:
		if err := migrate.Rollback(sqlDB, driver, c.flagRollback); err != nil {
			c.UI.Error(err.Error())
			return 1
		}
	default:
		if err := migrate.RunMigrations(sqlDB, driver); err != nil {
			c.UI.Error(err.Error())
			return 1
		}
	}

	version, dirty, err := migrate.GetMigrationVersion(sqlDB, driver)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error reading schema version: %v", err))
		return 1
	}
	c.UI.Output(fmt.Sprintf("schema version %d (dirty: %t)", version, dirty))
	return 0
}

// connection resolves the driver and DSN from flags, falling back to the
// configuration file.
func (c *Command) connection() (driver, dsn string, err error) {
	driver, dsn = c.flagDriver, c.flagDSN
	if dsn == "" && c.flagConfig != "" {
		cfg, err := c.LoadConfig(c.flagConfig)
		if err != nil {
			return "", "", err
		}
		if driver == "" {
			driver = cfg.Database.Driver
		}
		dsn = database.Config{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}.PostgresDSN()
		if driver == migrate.DriverSQLite {
			dsn = cfg.Database.DSN
		}
	}
	if driver == "" {
		driver = migrate.DriverPostgres
	}
	if driver != migrate.DriverPostgres && driver != migrate.DriverSQLite {
		return "", "", fmt.Errorf("unsupported driver %q (must be postgres or sqlite)", driver)
	}
	if dsn == "" {
		return "", "", fmt.Errorf("a -dsn or a -config with a database block is required")
	}
	return driver, dsn, nil
}
