// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

// Package record stores IOSSM mailbox transactions and DDR init reports in SQLite.
package record

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/Seagate/iossm-lib/pkg/iossm"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
	"k8s.io/klog/v2"
)

// SQLiteRecorder batches mailbox transactions and writes them to a SQLite database.
// It implements iossm.Tracer.
type SQLiteRecorder struct {
	*sql.DB
	mu        sync.Mutex
	statement *sql.Stmt
	path      string
	session   string
	pending   []iossm.Transaction
	seq       int
	batchSize int
}

// NewSQLiteRecorder creates a recorder writing to path. Pending transactions are
// flushed when the program exits through atexit.
func NewSQLiteRecorder(path string) *SQLiteRecorder {
	r := &SQLiteRecorder{
		path:      path,
		session:   xid.New().String(),
		batchSize: 1000,
	}
	atexit.Register(func() { r.Flush() })
	return r
}

// Session returns the identifier attached to every row this recorder writes.
func (r *SQLiteRecorder) Session() string {
	return r.session
}

// Init opens the database and creates the tables.
func (r *SQLiteRecorder) Init() error {
	db, err := sql.Open("sqlite3", r.path)
	if err != nil {
		return err
	}
	r.DB = db

	_, err = r.Exec(`
		CREATE TABLE IF NOT EXISTS mailbox (
			session     TEXT,
			seq         INTEGER,
			base        INTEGER,
			ip_type     INTEGER,
			instance_id INTEGER,
			cmd_type    TEXT,
			opcode      TEXT,
			params      TEXT,
			status      INTEGER,
			data0       INTEGER,
			data1       INTEGER,
			data2       INTEGER,
			error       TEXT,
			start_ns    INTEGER,
			end_ns      INTEGER
		);
		CREATE TABLE IF NOT EXISTS report (
			session TEXT,
			run_id  TEXT,
			ok      INTEGER,
			error   TEXT,
			report  TEXT
		);`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	r.statement, err = r.Prepare(`INSERT INTO mailbox VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	klog.V(iossm.DBG_LVL_BASIC).InfoS("record.SQLiteRecorder", "path", r.path, "session", r.session)
	return nil
}

// Transaction queues one mailbox transaction.
func (r *SQLiteRecorder) Transaction(t iossm.Transaction) {
	r.mu.Lock()
	r.pending = append(r.pending, t)
	full := len(r.pending) >= r.batchSize
	r.mu.Unlock()

	if full {
		r.Flush()
	}
}

// Flush writes the queued transactions in one database transaction.
func (r *SQLiteRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.DB == nil || len(r.pending) == 0 {
		return
	}

	tx, err := r.Begin()
	if err != nil {
		klog.Error(err)
		return
	}
	stmt := tx.Stmt(r.statement)
	seq := r.seq
	for _, t := range r.pending {
		params, _ := json.Marshal(t.Request.Params)
		errStr := ""
		if t.Err != nil {
			errStr = t.Err.Error()
		}
		_, err = stmt.Exec(
			r.session,
			seq,
			int64(t.Base),
			t.Request.IPType,
			t.Request.InstanceID,
			t.Request.CmdType.String(),
			t.Request.Opcode.String(),
			string(params),
			int64(t.Response.Status),
			int64(t.Response.Data[0]),
			int64(t.Response.Data[1]),
			int64(t.Response.Data[2]),
			errStr,
			t.Start.UnixNano(),
			t.End.UnixNano(),
		)
		if err != nil {
			klog.Error(err)
			_ = tx.Rollback()
			return
		}
		seq++
	}
	if err := tx.Commit(); err != nil {
		klog.Error(err)
		return
	}
	r.seq = seq
	r.pending = r.pending[:0]
}

// RecordReport stores the outcome of a DDR init run. rep may be partial when runErr is set.
func (r *SQLiteRecorder) RecordReport(rep *iossm.Report, runErr error) error {
	r.Flush()

	b, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	runID := ""
	if rep != nil {
		runID = rep.RunID
	}
	errStr := ""
	if runErr != nil {
		errStr = runErr.Error()
	}
	_, err = r.Exec(`INSERT INTO report VALUES (?, ?, ?, ?, ?)`, r.session, runID, runErr == nil, errStr, string(b))
	return err
}

// Close flushes pending rows and closes the database.
func (r *SQLiteRecorder) Close() error {
	r.Flush()
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}
