package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrorDump flattens an error chain and any database driver detail found in it.
type ErrorDump struct {
	TopMessage string
	Code       Code
	Chain      []string

	Driver        string
	DriverCode    string
	Constraint    string
	Table         string
	Column        string
	Detail        string
	DriverMessage string
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.readDriver(err)
	return d
}

func (d *ErrorDump) readDriver(err error) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.Driver = "postgres"
		d.DriverCode = pgxErr.Code
		d.Constraint = pgxErr.ConstraintName
		d.Table = pgxErr.TableName
		d.Column = pgxErr.ColumnName
		d.Detail = pgxErr.Detail
		d.DriverMessage = pgxErr.Message
		return
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.Driver = "postgres"
		d.DriverCode = string(pqErr.Code)
		d.Constraint = pqErr.Constraint
		d.Table = pqErr.Table
		d.Column = pqErr.Column
		d.Detail = pqErr.Detail
		d.DriverMessage = pqErr.Message
		return
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		d.Driver = "sqlite"
		d.DriverCode = fmt.Sprintf("%d", int(liteErr.ExtendedCode))
		d.DriverMessage = liteErr.Error()
	}
}

// LogFields returns the non-empty parts of the dump as log fields.
func (d ErrorDump) LogFields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	if len(d.Chain) > 0 {
		fields["error_chain"] = d.Chain
	}
	for k, v := range d.driverFields() {
		fields[k] = v
	}
	return fields
}

// DebugDetails is the payload exposed to clients when debug details are on.
func (d ErrorDump) DebugDetails() map[string]any {
	details := map[string]any{
		"cause": d.TopMessage,
		"chain": d.Chain,
	}
	if d.Driver != "" {
		details["db_driver"] = d.Driver
		details["db_code"] = d.DriverCode
		if d.Detail != "" {
			details["db_detail"] = d.Detail
		}
	}
	return details
}

func (d ErrorDump) driverFields() map[string]string {
	out := map[string]string{}
	for k, v := range map[string]string{
		"db_driver":     d.Driver,
		"db_code":       d.DriverCode,
		"db_constraint": d.Constraint,
		"db_table":      d.Table,
		"db_column":     d.Column,
		"db_detail":     d.Detail,
		"db_message":    d.DriverMessage,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
