// Package store persists pipeline frames to ClickHouse or Postgres and loads
// query results back into frames.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"strings"

	"github.com/invertedv/cornfit/frame"
)

var (
	//go:embed skeletons/clickhouse/create.txt
	chCreate string
	//go:embed skeletons/postgres/create.txt
	pgCreate string

	//go:embed skeletons/clickhouse/fields.txt
	chFields string
	//go:embed skeletons/postgres/fields.txt
	pgFields string

	//go:embed skeletons/clickhouse/dropif.txt
	chDropIf string
	//go:embed skeletons/postgres/dropif.txt
	pgDropIf string

	//go:embed skeletons/clickhouse/insert.txt
	chInsert string
	//go:embed skeletons/postgres/insert.txt
	pgInsert string

	//go:embed skeletons/clickhouse/types.txt
	chTypes string
	//go:embed skeletons/postgres/types.txt
	pgTypes string
)

// supported dialects
const (
	CH = "clickhouse"
	PG = "postgres"
)

var dtNames = map[string]frame.DataTypes{
	"float":    frame.DTfloat,
	"int":      frame.DTint,
	"string":   frame.DTstring,
	"category": frame.DTcategory,
}

// Dialect renders and runs the SQL for one database flavor.  The statements
// come from embedded skeletons with ?Placeholder markers.
type Dialect struct {
	db      *sql.DB
	dialect string

	types map[frame.DataTypes]string

	create string
	fields string
	dropIf string
	insert string

	bufSize int // in MB
}

func NewDialect(dialect string, db *sql.DB) (*Dialect, error) {
	dialect = strings.ToLower(dialect)

	d := &Dialect{db: db, dialect: dialect, bufSize: 64, types: make(map[frame.DataTypes]string)}

	var typesTxt string
	switch dialect {
	case CH:
		d.create, d.fields, d.dropIf, d.insert = chCreate, chFields, chDropIf, chInsert
		typesTxt = chTypes
	case PG:
		d.create, d.fields, d.dropIf, d.insert = pgCreate, pgFields, pgDropIf, pgInsert
		typesTxt = pgTypes
	default:
		return nil, fmt.Errorf("no skeletons for database %s", dialect)
	}

	// embedded files end with a newline the statements do not want
	d.create = strings.TrimRight(d.create, "\n")
	d.fields = strings.TrimRight(d.fields, "\n")
	d.dropIf = strings.TrimRight(d.dropIf, "\n")
	d.insert = strings.TrimRight(d.insert, "\n")

	for _, line := range strings.Split(typesTxt, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		kv := strings.Split(line, ",")
		if len(kv) != 2 {
			return nil, fmt.Errorf("bad type mapping line: %s", line)
		}

		dt, ok := dtNames[strings.TrimSpace(kv[0])]
		if !ok {
			return nil, fmt.Errorf("unknown data type in type map: %s", kv[0])
		}

		d.types[dt] = strings.TrimSpace(kv[1])
	}

	return d, nil
}

// *********** Methods ***********

func (d *Dialect) DialectName() string {
	return d.dialect
}

func (d *Dialect) DB() *sql.DB {
	return d.db
}

func (d *Dialect) Close() error {
	return d.db.Close()
}

func (d *Dialect) BufSize() int {
	return d.bufSize
}

func (d *Dialect) SetBufSize(mb int) {
	d.bufSize = mb
}

// Exists reports whether tableName exists.
func (d *Dialect) Exists(tableName string) (bool, error) {
	switch d.dialect {
	case CH:
		row := d.db.QueryRow(fmt.Sprintf("EXISTS TABLE %s", tableName))

		var exist uint8
		if e := row.Scan(&exist); e != nil {
			return false, e
		}

		return exist == 1, nil
	case PG:
		row := d.db.QueryRow(fmt.Sprintf("SELECT to_regclass('%s')", tableName))

		var exist any
		if e := row.Scan(&exist); e != nil {
			return false, e
		}

		return exist != nil, nil
	}

	return false, fmt.Errorf("unsupported dialect %s", d.dialect)
}

func (d *Dialect) DropTable(tableName string) error {
	qry := strings.ReplaceAll(d.dropIf, "?TableName", tableName)
	_, e := d.db.Exec(qry)

	return e
}

// CreateTable creates tableName shaped like df.  orderBy is the storage sort
// key, defaulting to the first column.
func (d *Dialect) CreateTable(tableName, orderBy string, df *frame.Frame) error {
	create, e := d.renderCreate(tableName, orderBy, df)
	if e != nil {
		return e
	}

	_, e = d.db.Exec(create)

	return e
}

func (d *Dialect) renderCreate(tableName, orderBy string, df *frame.Frame) (string, error) {
	cols := df.ColumnNames()
	if orderBy == "" {
		orderBy = cols[0]
	}

	create := strings.ReplaceAll(d.create, "?TableName", tableName)
	create = strings.Replace(create, "?OrderBy", orderBy, 1)

	var flds []string
	for _, name := range cols {
		col, e := df.Column(name)
		if e != nil {
			return "", e
		}

		dbType, e := d.dbtype(col.VectorType())
		if e != nil {
			return "", e
		}

		field := strings.ReplaceAll(d.fields, "?Field", name)
		field = strings.ReplaceAll(field, "?Type", dbType)
		flds = append(flds, field)
	}

	create = strings.Replace(create, "?fields", strings.Join(flds, ",\n"), 1)
	if strings.Contains(create, "?") {
		return "", fmt.Errorf("create still has placeholders: %s", create)
	}

	return create, nil
}

// InsertFrame appends df's rows to tableName, flushing in bufSize chunks.
func (d *Dialect) InsertFrame(tableName string, df *frame.Frame) error {
	const (
		bSep   = byte(',')
		bOpen  = byte('(')
		bClose = byte(')')
	)

	var buffer []byte
	bsize := d.bufSize * 1024 * 1024

	for row := 0; row < df.RowCount(); row++ {
		if buffer != nil {
			buffer = append(buffer, bSep)
		}

		buffer = append(buffer, bOpen)
		vals := df.Row(row)
		for ind := 0; ind < len(vals); ind++ {
			buffer = append(append(buffer, []byte(toSQL(vals[ind]))...), bSep)
		}

		buffer[len(buffer)-1] = bClose

		if bsize > 0 && len(buffer) >= bsize {
			if e := d.insertValues(tableName, df.ColumnNames(), buffer); e != nil {
				return e
			}

			buffer = nil
		}
	}

	if buffer == nil {
		return nil
	}

	return d.insertValues(tableName, df.ColumnNames(), buffer)
}

func (d *Dialect) insertValues(tableName string, fields []string, values []byte) error {
	qry := strings.Replace(d.insert, "?TableName", tableName, 1)
	qry = strings.Replace(qry, "?Fields", strings.Join(fields, ","), 1)
	qry = strings.Replace(qry, "?Values", string(values), 1)

	_, e := d.db.Exec(qry)

	return e
}

// SaveFrame writes df to tableName, replacing any existing table when
// overwrite is true.
func (d *Dialect) SaveFrame(tableName, orderBy string, df *frame.Frame, overwrite bool) error {
	exists, e := d.Exists(tableName)
	if e != nil {
		return e
	}

	if exists && !overwrite {
		return fmt.Errorf("table %s exists", tableName)
	}

	if exists {
		if e := d.DropTable(tableName); e != nil {
			return e
		}
	}

	if e := d.CreateTable(tableName, orderBy, df); e != nil {
		return e
	}

	return d.InsertFrame(tableName, df)
}

// LoadFrame runs qry and returns the result as a frame.  Column types come
// from the first non-null value: integer types map to DTint, floating types
// to DTfloat, everything else to DTstring.
func (d *Dialect) LoadFrame(qry string) (*frame.Frame, error) {
	rows, e := d.db.Query(qry)
	if e != nil {
		return nil, e
	}
	defer func() { _ = rows.Close() }()

	names, e := rows.Columns()
	if e != nil {
		return nil, e
	}

	var data [][]any
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for ind := range vals {
			ptrs[ind] = &vals[ind]
		}

		if e := rows.Scan(ptrs...); e != nil {
			return nil, e
		}

		data = append(data, vals)
	}

	if e := rows.Err(); e != nil {
		return nil, e
	}

	var cols []*frame.Col
	for ind, name := range names {
		col, e := frame.NewCol(name, columnVector(data, ind))
		if e != nil {
			return nil, e
		}

		cols = append(cols, col)
	}

	return frame.NewFrame(cols...)
}

// columnVector builds one column from scanned rows.
func columnVector(data [][]any, ind int) *frame.Vector {
	dt := frame.DTstring
	for _, rowVals := range data {
		switch rowVals[ind].(type) {
		case nil:
			continue
		case float32, float64:
			dt = frame.DTfloat
		case int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64:
			dt = frame.DTint
		default:
			dt = frame.DTstring
		}

		break
	}

	vec := frame.MakeVector(dt, len(data))
	for row, rowVals := range data {
		switch dt {
		case frame.DTfloat:
			vec.SetFloat(asFloat(rowVals[ind]), row)
		case frame.DTint:
			vec.SetInt(asInt(rowVals[ind]), row)
		default:
			vec.SetString(asString(rowVals[ind]), row)
		}
	}

	return vec
}

// null sentinels, matching nothing the pipeline produces
const nullString = "!null"

func asFloat(v any) float64 {
	switch x := v.(type) {
	case nil:
		return math.MaxFloat64
	case float32:
		return float64(x)
	case float64:
		return x
	}

	panic(fmt.Errorf("unsupported float value %v in LoadFrame", v))
}

func asInt(v any) int {
	switch x := v.(type) {
	case nil:
		return math.MaxInt
	case int:
		return x
	case int8:
		return int(x)
	case int16:
		return int(x)
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		return int(x)
	case uint8:
		return int(x)
	case uint16:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	}

	panic(fmt.Errorf("unsupported int value %v in LoadFrame", v))
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return nullString
	case string:
		return x
	case []byte:
		return string(x)
	}

	return fmt.Sprintf("%v", v)
}

// toSQL renders val for a VALUES list.
func toSQL(val any) string {
	switch x := val.(type) {
	case float64:
		return fmt.Sprintf("%v", x)
	case int:
		return fmt.Sprintf("%d", x)
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	default:
		panic(fmt.Errorf("unsupported data type in toSQL"))
	}
}

func (d *Dialect) dbtype(dt frame.DataTypes) (string, error) {
	if t, ok := d.types[dt]; ok {
		return t, nil
	}

	return "", fmt.Errorf("cannot find type %s to map to DB type", dt)
}
