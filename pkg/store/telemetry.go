package store

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/VioletaStepanyan/ukv/pkg/telemetry"
)

// instrument wraps one operation in a span plus a duration histogram.
// Store's blocking, synchronous API (spec §5: "no coroutines, no
// cancellation mid-operation") carries no context.Context of its own, so
// spans are rooted on a fresh background context rather than threading one
// through every call site.
func (db *Database) instrument(op Op) func(err *error) {
	name := string(op)
	ctx, span := db.tel.StartSpan(context.Background(), "store."+name,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentStore),
		attribute.String(telemetry.AttrOperation, name),
	)
	start := time.Now()
	return func(errp *error) {
		defer span.End()
		status := telemetry.StatusOk
		if errp != nil && *errp != nil {
			status = telemetry.StatusError
			span.SetStatus(codes.Error, (*errp).Error())
		}
		telemetry.RecordDuration(ctx, db.tel, "ukv.store.op.duration", start,
			attribute.String(telemetry.AttrOperation, name),
			attribute.String(telemetry.AttrStatus, status),
		)
	}
}
