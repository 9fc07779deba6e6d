package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of all tables created so far.
	ListTables() []string

	// Flush writes all buffered entries to the database.
	Flush() error

	// Close flushes and closes the database.
	Close() error
}

// New creates a DataRecorder that writes to path + ".sqlite3". An empty path
// picks a unique name. The file must not exist yet. Buffered entries are
// flushed when the program exits through atexit.
func New(path string) (DataRecorder, error) {
	w := &sqliteWriter{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	if err := w.Init(); err != nil {
		return nil, err
	}

	atexit.Register(func() { _ = w.Flush() })

	return w, nil
}

// NewWithDB creates a new DataRecorder with a given database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		DB:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { _ = w.Flush() })

	return w
}

type table struct {
	columns []string
	entries []any
}

// sqliteWriter is the writer that writes data into SQLite database
type sqliteWriter struct {
	*sql.DB

	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int
	closed     bool
}

// Init establishes a connection to the database.
func (t *sqliteWriter) Init() error {
	if t.dbName == "" {
		t.dbName = "v2p_record_" + xid.New().String()
	}

	filename := t.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		return fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return fmt.Errorf("open %s: %w", filename, err)
	}

	t.DB = db

	return nil
}

func isAllowedType(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	types := reflect.TypeOf(entry)
	if types == nil || types.Kind() != reflect.Struct {
		return fmt.Errorf("entry of type %T is not a struct", entry)
	}

	for i := 0; i < types.NumField(); i++ {
		field := types.Field(i)

		if !isAllowedType(field.Type.Kind()) {
			return fmt.Errorf("field %s of type %s cannot be recorded",
				field.Name, field.Type)
		}
	}

	return nil
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) error {
	if err := checkStructFields(sampleEntry); err != nil {
		return err
	}

	if _, exists := t.tables[tableName]; exists {
		return fmt.Errorf("table %s already exists", tableName)
	}

	columns := structs.Names(sampleEntry)
	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + strings.Join(columns, ", \n\t") + "\n" + `);`

	if _, err := t.Exec(createTableSQL); err != nil {
		return fmt.Errorf("create table %s: %w", tableName, err)
	}

	t.tables[tableName] = &table{columns: columns}

	return nil
}

func (t *sqliteWriter) InsertData(tableName string, entry any) error {
	table, exists := t.tables[tableName]
	if !exists {
		return fmt.Errorf("table %s does not exist", tableName)
	}

	table.entries = append(table.entries, entry)

	t.entryCount++
	if t.entryCount >= t.batchSize {
		return t.Flush()
	}

	return nil
}

func (t *sqliteWriter) ListTables() []string {
	tables := make([]string, 0, len(t.tables))
	for table := range t.tables {
		tables = append(tables, table)
	}

	return tables
}

func (t *sqliteWriter) Flush() error {
	if t.entryCount == 0 || t.closed {
		return nil
	}

	tx, err := t.Begin()
	if err != nil {
		return fmt.Errorf("begin flush: %w", err)
	}

	for tableName, table := range t.tables {
		if err := insertAll(tx, tableName, table); err != nil {
			return errors.Join(err, tx.Rollback())
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit flush: %w", err)
	}

	for _, table := range t.tables {
		table.entries = nil
	}

	t.entryCount = 0

	return nil
}

func insertAll(tx *sql.Tx, tableName string, table *table) error {
	if len(table.entries) == 0 {
		return nil
	}

	placeholders := make([]string, len(table.columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}

	sqlStr := "INSERT INTO " + tableName +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"

	stmt, err := tx.Prepare(sqlStr)
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", tableName, err)
	}
	defer stmt.Close()

	for _, entry := range table.entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return fmt.Errorf("insert into %s: %w", tableName, err)
		}
	}

	return nil
}

func (t *sqliteWriter) Close() error {
	if t.closed {
		return nil
	}

	flushErr := t.Flush()
	t.closed = true

	return errors.Join(flushErr, t.DB.Close())
}
