package report

import (
	"database/sql"
	"log"
	"time"

	"github.com/BurntSushi/migration"
	_ "github.com/go-sql-driver/mysql"

	"github.com/uga-libraries/aip-aptrust/pipeline"
)

// This file implements the outcome store on MySQL, for deployments where
// several staff machines share one reporting database.

type msqlStore struct {
	db *sql.DB
}

var _ Store = &msqlStore{}

// List of migrations to perform. Add new ones to the end.
// DO NOT change the order of items already in this list.
var mysqlMigrations = []migration.Migrator{
	mysqlschema1,
}

// Adapt the schema versioning for MySQL

var mysqlVersioning = dbVersion{
	GetSQL:    `SELECT max(version) FROM migration_version`,
	SetSQL:    `INSERT INTO migration_version (version, applied) VALUES (?, now())`,
	CreateSQL: `CREATE TABLE migration_version (version INTEGER, applied datetime)`,
}

// NewMysqlStore connects to a MySQL database and returns an outcome store,
// running any pending schema migrations first.
func NewMysqlStore(dial string) (*msqlStore, error) {
	db, err := migration.OpenWith(
		"mysql",
		dial,
		mysqlMigrations,
		mysqlVersioning.Get,
		mysqlVersioning.Set)
	if err != nil {
		log.Printf("Open Mysql: %s", err.Error())
		return nil, err
	}
	return &msqlStore{db: db}, nil
}

func (ms *msqlStore) SaveResult(batchID string, res *pipeline.Result) error {
	const insertOutcome = `INSERT INTO outcomes (batch, package, bag, state, category, reasons, created) VALUES (?, ?, ?, ?, ?, ?, ?)`
	const insertRename = `INSERT INTO renames (batch, package, oldpath, newpath, reasons) VALUES (?, ?, ?, ?, ?)`

	out, renames := rows(batchID, res, time.Now())
	_, err := ms.db.Exec(insertOutcome,
		out.BatchID, out.PackageID, out.BagName, out.State, out.Category, out.Reasons, out.When)
	if err != nil {
		return err
	}
	for _, r := range renames {
		_, err = ms.db.Exec(insertRename,
			r.BatchID, r.PackageID, r.OldPath, r.NewPath, r.Reasons)
		if err != nil {
			return err
		}
	}
	return nil
}

func (ms *msqlStore) Outcomes(batchID string) ([]OutcomeRow, error) {
	const queryAll = `
		SELECT batch, package, bag, state, category, reasons, created
		FROM outcomes
		ORDER BY created DESC`
	const queryBatch = `
		SELECT batch, package, bag, state, category, reasons, created
		FROM outcomes
		WHERE batch = ?
		ORDER BY created DESC`

	var rows *sql.Rows
	var err error
	if batchID == "" {
		rows, err = ms.db.Query(queryAll)
	} else {
		rows, err = ms.db.Query(queryBatch, batchID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []OutcomeRow
	for rows.Next() {
		var out OutcomeRow
		err = rows.Scan(&out.BatchID, &out.PackageID, &out.BagName,
			&out.State, &out.Category, &out.Reasons, &out.When)
		if err != nil {
			return nil, err
		}
		result = append(result, out)
	}
	return result, rows.Err()
}

func (ms *msqlStore) Renames(packageID string) ([]RenameRow, error) {
	const query = `
		SELECT batch, package, oldpath, newpath, reasons
		FROM renames
		WHERE package = ?`

	rows, err := ms.db.Query(query, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []RenameRow
	for rows.Next() {
		var r RenameRow
		err = rows.Scan(&r.BatchID, &r.PackageID, &r.OldPath, &r.NewPath, &r.Reasons)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (ms *msqlStore) Close() error {
	return ms.db.Close()
}

// database migrations. each one is a go function. Add them to the
// list mysqlMigrations at top of this file for them to be run.

func mysqlschema1(tx migration.LimitedTx) error {
	var s = []string{
		`CREATE TABLE IF NOT EXISTS outcomes (
		id int PRIMARY KEY AUTO_INCREMENT,
		batch varchar(64),
		package varchar(255),
		bag varchar(255),
		state varchar(32),
		category varchar(32),
		reasons text,
		created datetime,
		INDEX outcomes_batch (batch),
		INDEX outcomes_package (package))`,

		`CREATE TABLE IF NOT EXISTS renames (
		id int PRIMARY KEY AUTO_INCREMENT,
		batch varchar(64),
		package varchar(255),
		oldpath text,
		newpath text,
		reasons text,
		INDEX renames_package (package))`,
	}
	return execlist(tx, s)
}

// execlist exec's each item in the list, return if there is an error.
// Used to work around mysql driver not handling compound exec statements.
func execlist(tx migration.LimitedTx, stms []string) error {
	var err error
	for _, s := range stms {
		_, err = tx.Exec(s)
		if err != nil {
			break
		}
	}
	return err
}
