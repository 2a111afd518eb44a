package report

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/cznic/ql/driver"

	"github.com/uga-libraries/aip-aptrust/pipeline"
)

// This file implements the outcome store on the QL embedded database.
// It is intended for development and single-machine deployments.

type qlStore struct {
	db *sql.DB
}

var _ Store = &qlStore{}

const qlOutcomeInit = `
	CREATE TABLE IF NOT EXISTS outcomes (
		batch string,
		package string,
		bag string,
		state string,
		category string,
		reasons string,
		created time
	);
	CREATE INDEX IF NOT EXISTS outcomebatch ON outcomes (batch);
	CREATE INDEX IF NOT EXISTS outcomepackage ON outcomes (package);
	CREATE INDEX IF NOT EXISTS outcomecreated ON outcomes (created);
`

const qlRenameInit = `
	CREATE TABLE IF NOT EXISTS renames (
		batch string,
		package string,
		oldpath string,
		newpath string,
		reasons string
	);
	CREATE INDEX IF NOT EXISTS renamepackage ON renames (package);
`

// NewQlStore makes an outcome store backed by a QL database file. The
// filename "memory" means to keep everything in memory.
func NewQlStore(filename string) *qlStore {
	var db *sql.DB
	var err error
	if filename == "memory" {
		db, err = sql.Open("ql-mem", "mem.db")
	} else {
		db, err = sql.Open("ql", filename)
	}
	if err == nil {
		_, err = performExec(db, qlOutcomeInit)
	}
	if err == nil {
		_, err = performExec(db, qlRenameInit)
	}
	if err != nil {
		log.Printf("Open QL: %s", err.Error())
		return nil
	}
	return &qlStore{db: db}
}

func (qs *qlStore) SaveResult(batchID string, res *pipeline.Result) error {
	const insertOutcome = `INSERT INTO outcomes VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7)`
	const insertRename = `INSERT INTO renames VALUES (?1, ?2, ?3, ?4, ?5)`

	out, renames := rows(batchID, res, time.Now())
	_, err := performExec(qs.db, insertOutcome,
		out.BatchID, out.PackageID, out.BagName, out.State, out.Category, out.Reasons, out.When)
	if err != nil {
		return err
	}
	for _, r := range renames {
		_, err = performExec(qs.db, insertRename,
			r.BatchID, r.PackageID, r.OldPath, r.NewPath, r.Reasons)
		if err != nil {
			return err
		}
	}
	return nil
}

func (qs *qlStore) Outcomes(batchID string) ([]OutcomeRow, error) {
	const queryAll = `
		SELECT batch, package, bag, state, category, reasons, created
		FROM outcomes
		ORDER BY created DESC`
	const queryBatch = `
		SELECT batch, package, bag, state, category, reasons, created
		FROM outcomes
		WHERE batch == ?1
		ORDER BY created DESC`

	var rows *sql.Rows
	var err error
	if batchID == "" {
		rows, err = qs.db.Query(queryAll)
	} else {
		rows, err = qs.db.Query(queryBatch, batchID)
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

func (qs *qlStore) Renames(packageID string) ([]RenameRow, error) {
	const query = `
		SELECT batch, package, oldpath, newpath, reasons
		FROM renames
		WHERE package == ?1`

	rows, err := qs.db.Query(query, packageID)
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

func (qs *qlStore) Close() error {
	return qs.db.Close()
}

func performExec(db *sql.DB, query string, args ...interface{}) (sql.Result, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	var result sql.Result
	result, err = tx.Exec(query, args...)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	err = tx.Commit()
	return result, err
}
