package loader

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"

	"github.com/KaramelBytes/tabscope/internal/table"
)

// ReadParquet decodes a Parquet file. Column kinds come from the Arrow schema, so
// no inference is applied; unit labels are still split from column names.
func ReadParquet(data []byte, opt Options) (*Dataset, error) {
	pf, err := file.NewParquetReader(bytes.NewReader(data), file.WithReadProps(&parquet.ReaderProperties{}))
	if err != nil {
		return nil, fmt.Errorf("create parquet reader: %w", err)
	}
	defer pf.Close()

	mem := memory.NewGoAllocator()
	ar, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("create arrow reader: %w", err)
	}
	tbl, err := ar.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("read parquet data: %w", err)
	}
	defer tbl.Release()

	total := int(tbl.NumRows())
	n := total
	ds := &Dataset{TotalRows: total}
	if opt.MaxRows > 0 && n > opt.MaxRows {
		n = opt.MaxRows
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", n, total))
	}

	header := make([]string, tbl.NumCols())
	for i := range header {
		header[i] = tbl.Schema().Field(i).Name
	}
	names, units := cleanHeader(header)
	cols := make([]*table.Column, len(names))
	for i := range cols {
		kind, vals, err := arrowValues(tbl.Column(i), n)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", names[i], err)
		}
		unit := units[i]
		if kind == table.KindNumeric && opt.UnitNormalize && unit != "" {
			if _, nu, ok := normalizeUnit(0, unit, opt); ok {
				for r, v := range vals {
					if x, ok := v.Float(); ok {
						y, _, _ := normalizeUnit(x, unit, opt)
						vals[r] = table.Num(y)
					}
				}
				unit = nu
			}
		}
		c, err := table.ColumnOf(names[i], kind, vals)
		if err != nil {
			return nil, err
		}
		cols[i] = c.WithUnit(unit)
	}
	t, err := table.New(cols...)
	if err != nil {
		return nil, err
	}
	ds.Table = t
	return ds, nil
}

// arrowValues flattens the first n rows of a chunked column.
func arrowValues(col *arrow.Column, n int) (table.Kind, []table.Value, error) {
	kind := arrowKind(col.DataType())
	vals := make([]table.Value, 0, n)
	for _, chunk := range col.Data().Chunks() {
		for pos := 0; pos < chunk.Len() && len(vals) < n; pos++ {
			v, err := arrowValue(chunk, pos, kind)
			if err != nil {
				return kind, nil, err
			}
			vals = append(vals, v)
		}
	}
	return kind, vals, nil
}

func arrowKind(dt arrow.DataType) table.Kind {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64,
		arrow.DECIMAL128, arrow.DECIMAL256:
		return table.KindNumeric
	case arrow.BOOL:
		return table.KindBool
	case arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP:
		return table.KindDatetime
	}
	return table.KindText
}

func arrowValue(col arrow.Array, pos int, kind table.Kind) (table.Value, error) {
	if col.IsNull(pos) {
		return table.Null(kind), nil
	}
	switch col.DataType().ID() {
	case arrow.INT8:
		return table.Num(float64(col.(*array.Int8).Value(pos))), nil
	case arrow.INT16:
		return table.Num(float64(col.(*array.Int16).Value(pos))), nil
	case arrow.INT32:
		return table.Num(float64(col.(*array.Int32).Value(pos))), nil
	case arrow.INT64:
		return table.Num(float64(col.(*array.Int64).Value(pos))), nil
	case arrow.UINT8:
		return table.Num(float64(col.(*array.Uint8).Value(pos))), nil
	case arrow.UINT16:
		return table.Num(float64(col.(*array.Uint16).Value(pos))), nil
	case arrow.UINT32:
		return table.Num(float64(col.(*array.Uint32).Value(pos))), nil
	case arrow.UINT64:
		return table.Num(float64(col.(*array.Uint64).Value(pos))), nil
	case arrow.FLOAT16:
		return table.Num(float64(col.(*array.Float16).Value(pos).Float32())), nil
	case arrow.FLOAT32:
		return table.Num(float64(col.(*array.Float32).Value(pos))), nil
	case arrow.FLOAT64:
		return table.Num(col.(*array.Float64).Value(pos)), nil
	case arrow.DECIMAL128, arrow.DECIMAL256:
		f, err := strconv.ParseFloat(col.ValueStr(pos), 64)
		if err != nil {
			return table.Value{}, err
		}
		return table.Num(f), nil
	case arrow.BOOL:
		return table.Bool(col.(*array.Boolean).Value(pos)), nil
	case arrow.DATE32:
		return table.Time(col.(*array.Date32).Value(pos).ToTime()), nil
	case arrow.DATE64:
		return table.Time(col.(*array.Date64).Value(pos).ToTime()), nil
	case arrow.TIMESTAMP:
		unit := col.DataType().(*arrow.TimestampType).Unit
		return table.Time(col.(*array.Timestamp).Value(pos).ToTime(unit)), nil
	case arrow.STRING:
		return table.Text(col.(*array.String).Value(pos)), nil
	case arrow.LARGE_STRING:
		return table.Text(col.(*array.LargeString).Value(pos)), nil
	}
	return table.Text(col.ValueStr(pos)), nil
}
