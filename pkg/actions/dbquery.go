package actions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blackcoderx/barrage/pkg/config"
	"github.com/blackcoderx/barrage/pkg/dbconn"
	"github.com/blackcoderx/barrage/pkg/interpolate"
	"github.com/blackcoderx/barrage/pkg/pool"
	"github.com/blackcoderx/barrage/pkg/runctx"
)

// DbQuery runs an interpolated SQL statement against one of the plan's
// named database targets and, if Assign is set, stores the result rows
// (as a slice of column-name -> text-rendered-value maps) in the context.
// With a WithItems source, the query runs once per resolved item with that
// item injected into the interpolation context, same as Request; the
// assign target holds the last item's result.
type DbQuery struct {
	Name   string
	Target string
	Query  string
	Assign string // optional

	WithItems *WithItems // optional

	DB *dbconn.Manager
}

func (q *DbQuery) Execute(ctx context.Context, rc runctx.Context, reports *[]Report, p *pool.Pool, cfg *config.Config) error {
	def, ok := cfg.Dbs[q.Target]
	if !ok {
		return fmt.Errorf("db_query %q: no such database %q", q.Name, q.Target)
	}
	dsn, err := def.DSN()
	if err != nil {
		return fmt.Errorf("db_query %q: %w", q.Name, err)
	}
	conn, err := q.DB.Get(q.Target, dsn)
	if err != nil {
		return fmt.Errorf("db_query %q: %w", q.Name, err)
	}

	var items []interface{}
	if q.WithItems != nil {
		resolved, err := q.WithItems.Resolve()
		if err != nil {
			return fmt.Errorf("db_query %q: %w", q.Name, err)
		}
		items = resolved
	} else {
		items = []interface{}{nil}
	}

	for idx, item := range items {
		itemCtx := rc
		if q.WithItems != nil {
			itemCtx = rc.Clone()
			itemCtx["item"] = item
			itemCtx["item_index"] = idx
		}
		if err := q.executeOne(ctx, itemCtx, rc, conn, cfg.RelaxedInterpolations); err != nil {
			return fmt.Errorf("db_query %q: %w", q.Name, err)
		}
	}
	return nil
}

func (q *DbQuery) executeOne(ctx context.Context, itemCtx, outerCtx runctx.Context, conn *pgxpool.Pool, relaxed bool) error {
	interp := interpolate.New(itemCtx, relaxed)
	sqlText, err := interp.Resolve(q.Query)
	if err != nil {
		return err
	}

	rows, err := conn.Query(ctx, sqlText)
	if err != nil {
		return fmt.Errorf("query execution failed: %w", err)
	}
	defer rows.Close()

	// Rows are stored JSON-shaped ([]interface{} of map[string]interface{})
	// so a later {{ key[0].column }} interpolation can walk into them.
	var results []interface{}
	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return fmt.Errorf("reading row failed: %w", err)
		}
		row := make(map[string]interface{}, len(values))
		for i, v := range values {
			name := string(fields[i].Name)
			if v == nil {
				row[name] = "null"
			} else {
				row[name] = fmt.Sprint(v)
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if q.Assign != "" {
		outerCtx[q.Assign] = results
	}
	return nil
}
