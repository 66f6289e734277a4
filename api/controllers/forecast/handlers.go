package forecast

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendimia/forecast-backend/api/responses"
	"github.com/vendimia/forecast-backend/api/validators"
	"github.com/vendimia/forecast-backend/internal/predictions"
	pkgerrors "github.com/vendimia/forecast-backend/pkg/errors"
	"github.com/vendimia/forecast-backend/pkg/logger"
)

const (
	paramHistoryDays = "dias_historial"
	paramHorizonDays = "dias_prediccion"
	paramRecentDays  = "dias"
	paramProductID   = "producto_id"

	maxWindowDays = 365
	maxRecentDays = 90
)

type trainRequest struct {
	DiasHistorial int `json:"dias_historial" validate:"omitempty,min=1,max=365"`
}

type productPredictRequest struct {
	ProductoID     string `json:"producto_id" validate:"omitempty,uuid"`
	DiasHistorial  int    `json:"dias_historial" validate:"omitempty,min=1,max=365"`
	DiasPrediccion int    `json:"dias_prediccion" validate:"omitempty,min=1,max=365"`
}

func tenantID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "tenantId")
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	return id, nil
}

// decodeOptionalBody fills dest from a JSON body when one was sent. Requests
// without a body keep dest at its zero value.
func decodeOptionalBody(r *http.Request, dest any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return validators.DecodeJSONBody(r, dest)
}

// GeneralTrain fits and persists the tenant's store-wide model.
func GeneralTrain(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forecast service unavailable"))
			return
		}

		tenant, err := tenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body trainRequest
		if err := decodeOptionalBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		historyDays, err := validators.ParseQueryInt(r, paramHistoryDays, body.DiasHistorial, 1, maxWindowDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GeneralTrain(r.Context(), tenant, historyDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result.NoData {
			responses.WriteSuccess(w, trainResponse{Mensaje: msgNoSalesData})
			return
		}
		responses.WriteSuccess(w, trainResponse{Mensaje: msgModelTrained, Observaciones: result.Observations})
	}
}

// GeneralPredict returns the tenant's historical window and forward forecast.
func GeneralPredict(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forecast service unavailable"))
			return
		}

		tenant, err := tenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		historyDays, err := validators.ParseQueryInt(r, paramHistoryDays, 0, 1, maxWindowDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		horizonDays, err := validators.ParseQueryInt(r, paramHorizonDays, 0, 1, maxWindowDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GeneralPredict(r.Context(), tenant, historyDays, horizonDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toGeneralPredictResponse(result))
	}
}

// ProductTrain fits and persists one model per product with usable history.
func ProductTrain(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forecast service unavailable"))
			return
		}

		tenant, err := tenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body trainRequest
		if err := decodeOptionalBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		historyDays, err := validators.ParseQueryInt(r, paramHistoryDays, body.DiasHistorial, 1, maxWindowDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ProductTrain(r.Context(), tenant, historyDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProductTrainResponse(result))
	}
}

// ProductPredict returns the short-horizon forecast per product. An optional
// producto_id narrows the run to one product and includes its history.
func ProductPredict(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forecast service unavailable"))
			return
		}

		tenant, err := tenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body productPredictRequest
		if err := decodeOptionalBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		historyDays, err := validators.ParseQueryInt(r, paramHistoryDays, body.DiasHistorial, 1, maxWindowDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		horizonDays, err := validators.ParseQueryInt(r, paramHorizonDays, body.DiasPrediccion, 1, maxWindowDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID := r.URL.Query().Get(paramProductID)
		if productID == "" {
			productID = body.ProductoID
		}

		result, err := svc.ProductPredict(r.Context(), tenant, productID, historyDays, horizonDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toProductPredictResponse(result))
	}
}

// RecentSales reports the tenant's latest days of recorded activity.
func RecentSales(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forecast service unavailable"))
			return
		}

		tenant, err := tenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		days, err := validators.ParseQueryInt(r, paramRecentDays, 0, 1, maxRecentDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RecentSales(r.Context(), tenant, days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toRecentSalesResponse(result))
	}
}

// Summary reports the extremes of the tenant's forward forecast.
func Summary(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forecast service unavailable"))
			return
		}

		tenant, err := tenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		historyDays, err := validators.ParseQueryInt(r, paramHistoryDays, 0, 1, maxWindowDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		horizonDays, err := validators.ParseQueryInt(r, paramHorizonDays, 0, 1, maxWindowDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Summary(r.Context(), tenant, historyDays, horizonDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSummaryResponse(result))
	}
}

// TrendAlert reports whether the forecast projects a sustained decline.
func TrendAlert(svc predictions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "forecast service unavailable"))
			return
		}

		tenant, err := tenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		historyDays, err := validators.ParseQueryInt(r, paramHistoryDays, 0, 1, maxWindowDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		horizonDays, err := validators.ParseQueryInt(r, paramHorizonDays, 0, 1, maxWindowDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.TrendAlert(r.Context(), tenant, historyDays, horizonDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTrendAlertResponse(result))
	}
}
