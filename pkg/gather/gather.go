package gather

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/VioletaStepanyan/ukv/pkg/arena"
	"github.com/VioletaStepanyan/ukv/pkg/bitmap"
	"github.com/VioletaStepanyan/ukv/pkg/config"
	"github.com/VioletaStepanyan/ukv/pkg/log"
	"github.com/VioletaStepanyan/ukv/pkg/store"
	"github.com/VioletaStepanyan/ukv/pkg/telemetry"
)

// Gather runs the columnar extraction algorithm of spec §4.3: one batched
// document fetch, then one column j at a time (outer loop, for cache
// locality on fixed-width outputs per spec), invoking extractor against
// every document i and packing the conversion-table result into bitmaps
// plus either scalars or tape-backed offsets/lengths.
//
// Columns run on a bounded worker pool sized by cfg.GatherColumnParallelism
// (0 or 1 disables parallelism); every column writes into its own bitmaps
// and scalar buffer, so only the shared tape needs synchronization.
//
// tel receives a span and duration histogram for the whole call; a nil tel
// disables telemetry (equivalent to telemetry.NewNoop()).
func Gather(db *store.Database, extractor Extractor, layout Layout, cfg *config.Config, ar *arena.Arena, tel telemetry.Telemetry) (result *Result, err error) {
	if tel == nil {
		tel = telemetry.NewNoop()
	}
	ctx, span := tel.StartSpan(context.Background(), "gather."+telemetry.OpGather,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentGather),
		attribute.String(telemetry.AttrOperation, telemetry.OpGather),
	)
	start := time.Now()
	defer func() {
		defer span.End()
		status := telemetry.StatusOk
		if err != nil {
			status = telemetry.StatusError
			span.SetStatus(codes.Error, err.Error())
		}
		telemetry.RecordDuration(ctx, tel, "ukv.gather.op.duration", start,
			attribute.String(telemetry.AttrOperation, telemetry.OpGather),
			attribute.String(telemetry.AttrStatus, status),
		)
	}()

	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	n := layout.docsCount()
	m := layout.fieldsCount()
	if len(layout.Collections) != n {
		return nil, ErrMismatchedLengths
	}
	if len(layout.FieldTypes) != m {
		return nil, ErrMismatchedLengths
	}

	docRes, err := db.Read(store.ReadRequest{Collections: layout.Collections, Keys: layout.Keys}, store.ReadOptions{WantValues: true}, ar)
	if err != nil {
		return nil, err
	}
	docBytes := make([][]byte, n)
	for i := 0; i < n; i++ {
		if !bitmap.Get(docRes.Presence, i) {
			continue
		}
		off := docRes.Offsets[i]
		length := docRes.Lengths[i]
		docBytes[i] = docRes.Tape[off : off+length]
	}

	tw := &tapeWriter{}
	columns := make([]Column, m)

	limit := cfg.GatherColumnParallelism
	if limit <= 0 {
		limit = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(limit)

	for j := 0; j < m; j++ {
		j := j
		g.Go(func() error {
			col, cerr := gatherColumn(extractor, layout.FieldNames[j], layout.FieldTypes[j], docBytes, tw)
			if cerr != nil {
				return cerr
			}
			columns[j] = col
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tapeCopy, err := ar.Alloc(len(tw.buf), 1)
	if err != nil {
		return nil, err
	}
	copy(tapeCopy, tw.buf)

	log.Default().
		WithContext(ctx).
		WithField("component", "gather").
		WithField("docs", n).
		WithField("fields", m).
		WithField("tape_bytes", len(tapeCopy)).
		Debug("gather complete")

	return &Result{Columns: columns, Tape: tapeCopy}, nil
}

func gatherColumn(extractor Extractor, name string, ft FieldType, docBytes [][]byte, tw *tapeWriter) (Column, error) {
	n := len(docBytes)
	col := Column{
		Name:      name,
		Type:      ft,
		Validity:  bitmap.New(n),
		Converted: bitmap.New(n),
		Collided:  bitmap.New(n),
	}
	if ft.Variable() {
		col.Offsets = make([]uint32, n)
		col.Lengths = make([]uint32, n)
	} else {
		col.Scalars = make([]byte, n*ft.Width())
	}

	for i := 0; i < n; i++ {
		var v Value
		if docBytes[i] != nil {
			extracted, err := extractor.Extract(docBytes[i], name)
			if err != nil {
				return Column{}, wrapExtractorErr(i, err)
			}
			v = extracted
		}

		cell := convertCell(v, ft)
		if cell.collided {
			bitmap.Set(col.Collided, i)
			continue
		}
		if !cell.valid {
			continue
		}
		bitmap.Set(col.Validity, i)
		if cell.converted {
			bitmap.Set(col.Converted, i)
		}

		if ft.Variable() {
			offset, length := tw.append(cell.varBytes)
			col.Offsets[i] = offset
			col.Lengths[i] = length
		} else {
			copy(col.Scalars[i*ft.Width():(i+1)*ft.Width()], cell.scalar)
		}
	}

	return col, nil
}
