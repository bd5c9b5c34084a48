package httpapi

import (
	"expvar"
	"net/http"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /transactions", app.createTransactionHandler)
	mux.HandleFunc("GET /transactions/{id}", app.getTransactionHandler)
	mux.HandleFunc("POST /transactions/{id}/items", app.addItemHandler)
	mux.HandleFunc("POST /transactions/{id}/cash", app.insertCashHandler)
	mux.HandleFunc("POST /transactions/{id}/payment", app.payHandler)
	mux.HandleFunc("POST /products", app.addProductHandler)
	mux.HandleFunc("GET /products/{id}", app.getProductHandler)
	mux.HandleFunc("DELETE /products/{id}", app.deleteProductHandler)
	mux.HandleFunc("POST /products/{id}/restock", app.restockHandler)
	mux.HandleFunc("POST /cash", app.addCashHandler)
	mux.HandleFunc("POST /cash/collect", app.collectCashHandler)
	mux.HandleFunc("GET /cash", app.getCashHandler)
	mux.HandleFunc("GET /sales/{id}", app.getSalesHandler)
	mux.HandleFunc("GET /healthz", app.healthHandler)
	mux.HandleFunc("GET /debug/metrics", app.metricsHandler)
	mux.Handle("GET /debug/vars", expvar.Handler())
	mux.HandleFunc("GET /openapi.yaml", app.openapiHandler)
	mux.HandleFunc("GET /docs", app.docsHandler)
	return WithRequestID(WithLogging(mux))
}
