package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/marianocruz/pos-inventory-backend/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"
	// POS terminals replay sales with the same transaction id; carrying it in
	// the log context lets a replayed request be traced back to the original.
	transactionIDHeader = "X-Transaction-Id"
)

// RequestID tags every request with a correlation id and, when the POS client
// sends one, the sale transaction id.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
				if txnID := r.Header.Get(transactionIDHeader); txnID != "" {
					ctx = logg.WithTransactionID(ctx, txnID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
