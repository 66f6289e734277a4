package forecast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vendimia/forecast-backend/internal/insights"
	"github.com/vendimia/forecast-backend/internal/predictions"
	"github.com/vendimia/forecast-backend/internal/sales"
	"github.com/vendimia/forecast-backend/internal/timeseries"
	pkgerrors "github.com/vendimia/forecast-backend/pkg/errors"
)

type stubService struct {
	generalTrain   predictions.TrainResult
	generalPredict predictions.PredictResult
	productTrain   predictions.ProductTrainResult
	productPredict predictions.ProductPredictResult
	recent         []sales.DailySummary
	summary        insights.Summary
	trendAlert     insights.TrendAlert
	err            error

	gotTenant      string
	gotProductID   string
	gotHistoryDays int
	gotHorizonDays int
}

func (s *stubService) GeneralTrain(ctx context.Context, tenantID string, historyDays int) (predictions.TrainResult, error) {
	s.gotTenant, s.gotHistoryDays = tenantID, historyDays
	return s.generalTrain, s.err
}

func (s *stubService) GeneralPredict(ctx context.Context, tenantID string, historyDays, horizonDays int) (predictions.PredictResult, error) {
	s.gotTenant, s.gotHistoryDays, s.gotHorizonDays = tenantID, historyDays, horizonDays
	return s.generalPredict, s.err
}

func (s *stubService) ProductTrain(ctx context.Context, tenantID string, historyDays int) (predictions.ProductTrainResult, error) {
	s.gotTenant, s.gotHistoryDays = tenantID, historyDays
	return s.productTrain, s.err
}

func (s *stubService) ProductPredict(ctx context.Context, tenantID, productID string, historyDays, horizonDays int) (predictions.ProductPredictResult, error) {
	s.gotTenant, s.gotProductID, s.gotHistoryDays, s.gotHorizonDays = tenantID, productID, historyDays, horizonDays
	return s.productPredict, s.err
}

func (s *stubService) RecentSales(ctx context.Context, tenantID string, days int) ([]sales.DailySummary, error) {
	s.gotTenant, s.gotHistoryDays = tenantID, days
	return s.recent, s.err
}

func (s *stubService) Summary(ctx context.Context, tenantID string, historyDays, horizonDays int) (insights.Summary, error) {
	s.gotTenant, s.gotHistoryDays, s.gotHorizonDays = tenantID, historyDays, horizonDays
	return s.summary, s.err
}

func (s *stubService) TrendAlert(ctx context.Context, tenantID string, historyDays, horizonDays int) (insights.TrendAlert, error) {
	s.gotTenant, s.gotHistoryDays, s.gotHorizonDays = tenantID, historyDays, horizonDays
	return s.trendAlert, s.err
}

func serve(t *testing.T, method, pattern string, handler http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Method(method, pattern, handler)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	r.ServeHTTP(rec, req)
	return rec
}

func serveJSON(t *testing.T, method, pattern string, handler http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Method(method, pattern, handler)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
}

func point(d int, v float64) timeseries.Point {
	return timeseries.Point{Date: time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC), Value: v}
}

func TestGeneralTrainResponds(t *testing.T) {
	svc := &stubService{generalTrain: predictions.TrainResult{Observations: 31}}

	rec := serve(t, http.MethodPost, "/{tenantId}/train", GeneralTrain(svc, nil), "/tenant-1/train?dias_historial=60")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotTenant != "tenant-1" || svc.gotHistoryDays != 60 {
		t.Fatalf("unexpected service args %q/%d", svc.gotTenant, svc.gotHistoryDays)
	}

	var body trainResponse
	decodeData(t, rec, &body)
	if body.Mensaje != msgModelTrained {
		t.Fatalf("unexpected mensaje %q", body.Mensaje)
	}
	if body.Observaciones != 31 {
		t.Fatalf("expected 31 observations, got %d", body.Observaciones)
	}
}

func TestGeneralTrainNoDataIsStill200(t *testing.T) {
	svc := &stubService{generalTrain: predictions.TrainResult{NoData: true}}

	rec := serve(t, http.MethodPost, "/{tenantId}/train", GeneralTrain(svc, nil), "/tenant-1/train")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on no data, got %d", rec.Code)
	}

	var body trainResponse
	decodeData(t, rec, &body)
	if body.Mensaje != msgNoSalesData {
		t.Fatalf("unexpected mensaje %q", body.Mensaje)
	}
}

func TestGeneralTrainAcceptsJSONBody(t *testing.T) {
	svc := &stubService{generalTrain: predictions.TrainResult{Observations: 10}}

	rec := serveJSON(t, http.MethodPost, "/{tenantId}/train", GeneralTrain(svc, nil), "/tenant-1/train", `{"dias_historial":45}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotHistoryDays != 45 {
		t.Fatalf("expected dias_historial from the body, got %d", svc.gotHistoryDays)
	}
}

func TestGeneralTrainQueryOverridesBody(t *testing.T) {
	svc := &stubService{generalTrain: predictions.TrainResult{Observations: 10}}

	rec := serveJSON(t, http.MethodPost, "/{tenantId}/train", GeneralTrain(svc, nil), "/tenant-1/train?dias_historial=60", `{"dias_historial":45}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotHistoryDays != 60 {
		t.Fatalf("expected the query parameter to win, got %d", svc.gotHistoryDays)
	}
}

func TestGeneralTrainRejectsInvalidBody(t *testing.T) {
	svc := &stubService{}

	rec := serveJSON(t, http.MethodPost, "/{tenantId}/train", GeneralTrain(svc, nil), "/tenant-1/train", `{"dias_historial":-1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an out-of-range body, got %d", rec.Code)
	}
}

func TestGeneralTrainRejectsUnknownBodyField(t *testing.T) {
	svc := &stubService{}

	rec := serveJSON(t, http.MethodPost, "/{tenantId}/train", GeneralTrain(svc, nil), "/tenant-1/train", `{"dias":30}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown body field, got %d", rec.Code)
	}
}

func TestGeneralTrainInvalidQueryParam(t *testing.T) {
	svc := &stubService{}

	rec := serve(t, http.MethodPost, "/{tenantId}/train", GeneralTrain(svc, nil), "/tenant-1/train?dias_historial=abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGeneralPredictWireFormat(t *testing.T) {
	svc := &stubService{generalPredict: predictions.PredictResult{
		History:     timeseries.Series{point(1, 120.5)},
		Predictions: timeseries.Series{point(2, 130.123456)},
		HistoryDays: 90,
		HorizonDays: 90,
	}}

	rec := serve(t, http.MethodGet, "/{tenantId}/predict", GeneralPredict(svc, nil), "/tenant-1/predict")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body generalPredictResponse
	decodeData(t, rec, &body)
	if len(body.Historial) != 1 || body.Historial[0].Fecha != "2024-01-01" || body.Historial[0].VentaTotal != 120.5 {
		t.Fatalf("unexpected historial %+v", body.Historial)
	}
	if len(body.Predicciones) != 1 || body.Predicciones[0].Fecha != "2024-01-02" {
		t.Fatalf("unexpected predicciones %+v", body.Predicciones)
	}
	if body.Predicciones[0].VentaTotalPredicho != 130.123456 {
		t.Fatalf("store-wide prediction must stay unrounded, got %f", body.Predicciones[0].VentaTotalPredicho)
	}
	if body.DiasHistorial != 90 || body.DiasPrediccion != 90 {
		t.Fatalf("unexpected windows %d/%d", body.DiasHistorial, body.DiasPrediccion)
	}
}

func TestGeneralPredictEmptyHistoryMessage(t *testing.T) {
	svc := &stubService{generalPredict: predictions.PredictResult{HistoryDays: 90, HorizonDays: 90}}

	rec := serve(t, http.MethodGet, "/{tenantId}/predict", GeneralPredict(svc, nil), "/tenant-1/predict")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body generalPredictResponse
	decodeData(t, rec, &body)
	if body.Mensaje != msgNoSalesData {
		t.Fatalf("expected no-data mensaje, got %q", body.Mensaje)
	}
	if len(body.Historial) != 0 || len(body.Predicciones) != 0 {
		t.Fatal("expected empty historial and predicciones")
	}
}

func TestGeneralPredictServiceError(t *testing.T) {
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeDependency, "store down")}

	rec := serve(t, http.MethodGet, "/{tenantId}/predict", GeneralPredict(svc, nil), "/tenant-1/predict")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestProductTrainListsProducts(t *testing.T) {
	productID := uuid.MustParse("4b1f5a6c-9e2d-4f3a-8b7c-1a2b3c4d5e6f")
	svc := &stubService{productTrain: predictions.ProductTrainResult{
		Trained: []predictions.ProductTraining{{ProductID: productID, Title: "Pan integral", Observations: 14}},
		Skipped: 2,
	}}

	rec := serve(t, http.MethodPost, "/{tenantId}/train", ProductTrain(svc, nil), "/tenant-1/train")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body productTrainResponse
	decodeData(t, rec, &body)
	if body.Mensaje != msgModelsTrained {
		t.Fatalf("unexpected mensaje %q", body.Mensaje)
	}
	if len(body.Productos) != 1 || body.Productos[0].Titulo != "Pan integral" {
		t.Fatalf("unexpected productos %+v", body.Productos)
	}
	if body.Productos[0].ProductoID != productID.String() {
		t.Fatalf("unexpected producto_id %q", body.Productos[0].ProductoID)
	}
	if body.Omitidos != 2 {
		t.Fatalf("expected 2 omitidos, got %d", body.Omitidos)
	}
}

func TestProductPredictNoData(t *testing.T) {
	svc := &stubService{productPredict: predictions.ProductPredictResult{NoData: true, HorizonDays: 7}}

	rec := serve(t, http.MethodGet, "/{tenantId}/predict", ProductPredict(svc, nil), "/tenant-1/predict")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body productPredictResponse
	decodeData(t, rec, &body)
	if body.Mensaje != msgNoSalesData {
		t.Fatalf("expected no-data mensaje, got %q", body.Mensaje)
	}
	if body.DiasPrediccion != 7 {
		t.Fatalf("expected horizon 7, got %d", body.DiasPrediccion)
	}
}

func TestProductPredictSingleProductWireFormat(t *testing.T) {
	productID := uuid.MustParse("4b1f5a6c-9e2d-4f3a-8b7c-1a2b3c4d5e6f")
	svc := &stubService{productPredict: predictions.ProductPredictResult{
		Products: []predictions.ProductForecast{{
			ProductID:   productID,
			Title:       "Pan integral",
			History:     timeseries.Series{point(1, 42.5)},
			Predictions: timeseries.Series{point(2, 12.34)},
		}},
		HorizonDays: 7,
	}}

	rec := serve(t, http.MethodGet, "/{tenantId}/predict", ProductPredict(svc, nil), "/tenant-1/predict?producto_id="+productID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotProductID != productID.String() {
		t.Fatalf("expected producto_id to reach the service, got %q", svc.gotProductID)
	}

	var body productPredictResponse
	decodeData(t, rec, &body)
	if len(body.Productos) != 1 {
		t.Fatalf("expected one product, got %d", len(body.Productos))
	}
	p := body.Productos[0]
	if len(p.Historial) != 1 || p.Historial[0].Fecha != "2024-01-01" || p.Historial[0].MontoVendido != 42.5 {
		t.Fatalf("unexpected historial %+v", p.Historial)
	}
	if len(p.Predicciones) != 1 || p.Predicciones[0].Prediccion != 12.34 {
		t.Fatalf("unexpected predicciones %+v", p.Predicciones)
	}
}

func TestProductPredictBatchOmitsHistory(t *testing.T) {
	svc := &stubService{productPredict: predictions.ProductPredictResult{
		Products: []predictions.ProductForecast{{
			ProductID:   uuid.New(),
			Title:       "Pan integral",
			Predictions: timeseries.Series{point(2, 12.34)},
		}},
		HorizonDays: 7,
	}}

	rec := serve(t, http.MethodGet, "/{tenantId}/predict", ProductPredict(svc, nil), "/tenant-1/predict")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotProductID != "" {
		t.Fatalf("expected no producto_id in batch mode, got %q", svc.gotProductID)
	}
	if strings.Contains(rec.Body.String(), "historial") {
		t.Fatalf("batch responses must omit historial: %s", rec.Body.String())
	}
}

func TestProductPredictBodyProductID(t *testing.T) {
	productID := uuid.MustParse("4b1f5a6c-9e2d-4f3a-8b7c-1a2b3c4d5e6f")
	svc := &stubService{productPredict: predictions.ProductPredictResult{HorizonDays: 7, NoData: true}}

	rec := serveJSON(t, http.MethodPost, "/{tenantId}/predict", ProductPredict(svc, nil), "/tenant-1/predict",
		`{"producto_id":"`+productID.String()+`","dias_prediccion":14}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotProductID != productID.String() {
		t.Fatalf("expected producto_id from the body, got %q", svc.gotProductID)
	}
	if svc.gotHorizonDays != 14 {
		t.Fatalf("expected dias_prediccion from the body, got %d", svc.gotHorizonDays)
	}
}

func TestProductPredictRejectsMalformedBodyProductID(t *testing.T) {
	svc := &stubService{}

	rec := serveJSON(t, http.MethodPost, "/{tenantId}/predict", ProductPredict(svc, nil), "/tenant-1/predict", `{"producto_id":"not-a-uuid"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed producto_id, got %d", rec.Code)
	}
}

func TestRecentSalesWireFormat(t *testing.T) {
	svc := &stubService{recent: []sales.DailySummary{
		{Date: time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC), Count: 3, Total: 150.75, AvgTicket: 50.25},
	}}

	rec := serve(t, http.MethodGet, "/{tenantId}/sales/recent", RecentSales(svc, nil), "/tenant-1/sales/recent?dias=7")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotHistoryDays != 7 {
		t.Fatalf("expected dias=7 to reach the service, got %d", svc.gotHistoryDays)
	}

	var body recentSalesResponse
	decodeData(t, rec, &body)
	if len(body.Ventas) != 1 {
		t.Fatalf("expected one day, got %d", len(body.Ventas))
	}
	day := body.Ventas[0]
	if day.Fecha != "2024-01-05" || day.CantidadVentas != 3 || day.MontoVendido != 150.75 || day.TicketPromedio != 50.25 {
		t.Fatalf("unexpected day %+v", day)
	}
}

func TestSummaryWireFormat(t *testing.T) {
	svc := &stubService{summary: insights.Summary{
		HistoryDays: 90, HorizonDays: 90,
		MaxValue: 80, MaxDate: "2024-01-02",
		MinValue: 30, MinDate: "2024-01-03",
	}}

	rec := serve(t, http.MethodGet, "/{tenantId}/summary", Summary(svc, nil), "/tenant-1/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body summaryResponse
	decodeData(t, rec, &body)
	if body.VentaMaxima != 80 || body.FechaMaxima != "2024-01-02" {
		t.Fatalf("unexpected maximum %f/%s", body.VentaMaxima, body.FechaMaxima)
	}
	if body.VentaMinima != 30 || body.FechaMinima != "2024-01-03" {
		t.Fatalf("unexpected minimum %f/%s", body.VentaMinima, body.FechaMinima)
	}
}

func TestTrendAlertWireFormat(t *testing.T) {
	svc := &stubService{trendAlert: insights.TrendAlert{
		Alert: true, Detail: "sustained decline projected over the coming days",
		From: "2024-01-01", To: "2024-01-07", Slope: -60,
	}}

	rec := serve(t, http.MethodGet, "/{tenantId}/trend-alert", TrendAlert(svc, nil), "/tenant-1/trend-alert")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body trendAlertResponse
	decodeData(t, rec, &body)
	if !body.Alerta {
		t.Fatal("expected alerta true")
	}
	if body.Desde != "2024-01-01" || body.Hasta != "2024-01-07" {
		t.Fatalf("unexpected window %s..%s", body.Desde, body.Hasta)
	}
	if body.Variacion != -60 {
		t.Fatalf("expected variacion -60, got %f", body.Variacion)
	}
}

func TestHandlersWithoutService(t *testing.T) {
	rec := serve(t, http.MethodGet, "/{tenantId}/predict", GeneralPredict(nil, nil), "/tenant-1/predict")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without a service, got %d", rec.Code)
	}
}
